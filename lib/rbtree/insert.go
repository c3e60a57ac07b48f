package rbtree

// Add inserts key. It returns ErrDuplicateKey, leaving the tree unchanged,
// if the key is already present. Any other error comes from resizing the
// file and leaves the tree unusable.
func (t *Tree[K]) Add(key K) error {
	if t.err != nil {
		return t.err
	}
	if isNaN(key) {
		return ErrInvalidKey
	}
	x, err := t.addBST(key)
	if err != nil {
		return err
	}
	t.fixInsert(x)
	return nil
}

// addBST links a new red node for key as a leaf and returns its index.
func (t *Tree[K]) addBST(key K) (uint64, error) {
	var parent ref
	left := false
	for cur := t.root(); cur.set; {
		n := t.mem.Get(cur.idx)
		switch {
		case key < n.key:
			parent, cur, left = cur, n.left, true
		case key > n.key:
			parent, cur, left = cur, n.right, false
		default:
			return 0, ErrDuplicateKey
		}
	}

	x, err := t.newNode(key)
	if err != nil {
		return 0, err
	}
	t.setParent(some(x), parent)
	switch {
	case !parent.set:
		t.setRoot(some(x))
	case left:
		t.mem.Update(parent.idx, func(n *node[K]) { n.left = some(x) })
	default:
		t.mem.Update(parent.idx, func(n *node[K]) { n.right = some(x) })
	}
	return x, nil
}

// fixInsert restores the red-black properties after x was linked as a red leaf.
func (t *Tree[K]) fixInsert(x uint64) {
	for {
		p := t.parentOf(x)
		if !p.set || !t.isRed(some(x)) || !t.isRed(p) {
			break
		}
		// a red parent is never the root, so the grandparent exists
		g := t.parentOf(p.idx)

		if p == t.leftOf(g.idx) {
			if u := t.rightOf(g.idx); t.isRed(u) {
				t.setRed(u.idx, false)
				t.setRed(p.idx, false)
				t.setRed(g.idx, true)
				x = g.idx
				continue
			}
			if some(x) == t.rightOf(p.idx) {
				t.rotateLeft(p.idx)
				x, p = p.idx, some(x)
			}
			t.rotateRight(g.idx)
		} else {
			if u := t.leftOf(g.idx); t.isRed(u) {
				t.setRed(u.idx, false)
				t.setRed(p.idx, false)
				t.setRed(g.idx, true)
				x = g.idx
				continue
			}
			if some(x) == t.leftOf(p.idx) {
				t.rotateRight(p.idx)
				x, p = p.idx, some(x)
			}
			t.rotateLeft(g.idx)
		}
		t.swapColor(p.idx, g.idx)
		x = p.idx
	}
	t.blackenRoot()
}

func (t *Tree[K]) swapColor(a, b uint64) {
	ra, rb := t.isRed(some(a)), t.isRed(some(b))
	t.setRed(a, rb)
	t.setRed(b, ra)
}

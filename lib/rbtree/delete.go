package rbtree

// Del removes key. Removing an absent key is a no-op. An error comes from
// shrinking the file and leaves the tree unusable.
func (t *Tree[K]) Del(key K) error {
	if t.err != nil {
		return t.err
	}
	x, ok := t.delBST(key)
	if !ok {
		return nil
	}

	n := t.mem.Get(x)
	child := n.left
	if !child.set {
		child = n.right
	}
	t.replaceChild(n.parent, some(x), child)
	t.setParent(child, n.parent)

	if n.red || t.isRed(child) {
		if child.set {
			t.setRed(child.idx, false)
		}
	} else {
		t.fixDelete(child, n.parent)
	}

	if err := t.removeSlot(x); err != nil {
		return err
	}
	t.blackenRoot()
	return nil
}

// delBST finds the node to unlink for key. A node with two children takes
// over its successor's key, and the successor is returned instead.
func (t *Tree[K]) delBST(key K) (uint64, bool) {
	x, ok := t.find(key)
	if !ok {
		return 0, false
	}
	n := t.mem.Get(x)
	if !n.left.set || !n.right.set {
		return x, true
	}
	m := n.right.idx
	for l := t.leftOf(m); l.set; l = t.leftOf(m) {
		m = l.idx
	}
	succ := t.mem.Get(m).key
	t.mem.Update(x, func(n *node[K]) { n.key = succ })
	return m, true
}

// fixDelete resolves a missing black node at x, the (possibly absent)
// child of p.
func (t *Tree[K]) fixDelete(x, p ref) {
	for p.set && !t.isRed(x) {
		if x == t.leftOf(p.idx) {
			s := t.rightOf(p.idx)
			if t.isRed(s) {
				t.setRed(s.idx, false)
				t.setRed(p.idx, true)
				t.rotateLeft(p.idx)
				s = t.rightOf(p.idx)
			}
			if !s.set {
				x, p = p, t.parentOf(p.idx)
				continue
			}
			if !t.isRed(t.leftOf(s.idx)) && !t.isRed(t.rightOf(s.idx)) {
				t.setRed(s.idx, true)
				x, p = p, t.parentOf(p.idx)
				continue
			}
			if !t.isRed(t.rightOf(s.idx)) {
				t.setRed(t.leftOf(s.idx).idx, false)
				t.setRed(s.idx, true)
				t.rotateRight(s.idx)
				s = t.rightOf(p.idx)
			}
			t.setRed(s.idx, t.isRed(p))
			t.setRed(p.idx, false)
			t.setRed(t.rightOf(s.idx).idx, false)
			t.rotateLeft(p.idx)
		} else {
			s := t.leftOf(p.idx)
			if t.isRed(s) {
				t.setRed(s.idx, false)
				t.setRed(p.idx, true)
				t.rotateRight(p.idx)
				s = t.leftOf(p.idx)
			}
			if !s.set {
				x, p = p, t.parentOf(p.idx)
				continue
			}
			if !t.isRed(t.leftOf(s.idx)) && !t.isRed(t.rightOf(s.idx)) {
				t.setRed(s.idx, true)
				x, p = p, t.parentOf(p.idx)
				continue
			}
			if !t.isRed(t.leftOf(s.idx)) {
				t.setRed(t.rightOf(s.idx).idx, false)
				t.setRed(s.idx, true)
				t.rotateLeft(s.idx)
				s = t.leftOf(p.idx)
			}
			t.setRed(s.idx, t.isRed(p))
			t.setRed(p.idx, false)
			t.setRed(t.leftOf(s.idx).idx, false)
			t.rotateRight(p.idx)
		}
		x, p = t.root(), none
	}
	if x.set {
		t.setRed(x.idx, false)
	}
}

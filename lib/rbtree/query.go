package rbtree

// Has reports whether key is in the tree.
func (t *Tree[K]) Has(key K) bool {
	if t.mem == nil {
		return false
	}
	_, ok := t.find(key)
	return ok
}

// Range calls fn for every key in [from, to] in ascending order until fn
// returns false. fn must not modify the tree.
func (t *Tree[K]) Range(from, to K, fn func(key K) bool) {
	if from > to {
		return
	}
	t.ascend(&from, &to, fn)
}

// Ascend calls fn for every key in ascending order until fn returns false.
func (t *Tree[K]) Ascend(fn func(key K) bool) {
	t.ascend(nil, nil, fn)
}

// InOrder returns all keys in ascending order.
func (t *Tree[K]) InOrder() []K {
	keys := make([]K, 0, t.Len())
	t.Ascend(func(k K) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// ascend walks the tree in order with an explicit stack. Subtrees entirely
// below lo are skipped; the walk stops at the first key above hi.
func (t *Tree[K]) ascend(lo, hi *K, fn func(key K) bool) {
	if t.mem == nil {
		return
	}
	var stack []uint64
	cur := t.root()
	for cur.set || len(stack) > 0 {
		for cur.set {
			n := t.mem.Get(cur.idx)
			if lo != nil && n.key < *lo {
				cur = n.right
				continue
			}
			stack = append(stack, cur.idx)
			cur = n.left
		}
		if len(stack) == 0 {
			return
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.mem.Get(top)
		if hi != nil && n.key > *hi {
			return
		}
		if !fn(n.key) {
			return
		}
		cur = n.right
	}
}

package rbtree

import "fmt"

// rotateLeft lifts the right child of x into x's position.
// It panics if x has no right child.
func (t *Tree[K]) rotateLeft(x uint64) {
	r := t.rightOf(x)
	if !r.set {
		panic(fmt.Sprintf("rbtree: rotate left at node %d without right child", x))
	}
	t.assignRight(x, t.leftOf(r.idx))
	t.assignTree(x, r.idx)
	t.assignLeft(r.idx, some(x))
}

// rotateRight lifts the left child of x into x's position.
// It panics if x has no left child.
func (t *Tree[K]) rotateRight(x uint64) {
	l := t.leftOf(x)
	if !l.set {
		panic(fmt.Sprintf("rbtree: rotate right at node %d without left child", x))
	}
	t.assignLeft(x, t.rightOf(l.idx))
	t.assignTree(x, l.idx)
	t.assignRight(l.idx, some(x))
}

func (t *Tree[K]) assignLeft(x uint64, c ref) {
	t.mem.Update(x, func(n *node[K]) { n.left = c })
	t.setParent(c, some(x))
}

func (t *Tree[K]) assignRight(x uint64, c ref) {
	t.mem.Update(x, func(n *node[K]) { n.right = c })
	t.setParent(c, some(x))
}

// assignTree puts y where x hangs: it takes over x's parent and the
// parent's link (or the root).
func (t *Tree[K]) assignTree(x, y uint64) {
	p := t.parentOf(x)
	t.setParent(some(y), p)
	t.replaceChild(p, some(x), some(y))
}

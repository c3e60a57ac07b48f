package rbtree

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Check verifies the structure of the tree: ordering, parent links, dense
// indices, a black root, no red node with a red child and a uniform black
// height. It returns the first violation found.
func (t *Tree[K]) Check() error {
	if t.err != nil {
		return t.err
	}
	n := t.mem.Len()
	root := t.root()
	if !root.set {
		if n != 0 {
			return errors.Errorf("rbtree: no root but %d nodes", n)
		}
		return nil
	}
	if root.idx >= n {
		return errors.Errorf("rbtree: root %d out of range [0,%d)", root.idx, n)
	}
	if t.isRed(root) {
		return errors.New("rbtree: root is red")
	}
	if p := t.parentOf(root.idx); p.set {
		return errors.Errorf("rbtree: root %d has parent %d", root.idx, p.idx)
	}

	var count uint64
	if _, err := t.checkNode(root.idx, nil, nil, &count); err != nil {
		return err
	}
	if count != n {
		return errors.Errorf("rbtree: %d of %d nodes reachable from the root", count, n)
	}
	return nil
}

// checkNode returns the black height of the subtree at x.
func (t *Tree[K]) checkNode(x uint64, lo, hi *K, count *uint64) (int, error) {
	*count++
	if *count > t.mem.Len() {
		return 0, errors.Errorf("rbtree: cycle through node %d", x)
	}
	nd := t.mem.Get(x)
	key := nd.key
	if (lo != nil && key <= *lo) || (hi != nil && key >= *hi) {
		return 0, errors.Errorf("rbtree: node %d key %v violates order", x, key)
	}

	var heights [2]int
	for i, c := range [2]ref{nd.left, nd.right} {
		if !c.set {
			heights[i] = 1
			continue
		}
		if c.idx >= t.mem.Len() {
			return 0, errors.Errorf("rbtree: node %d links to %d out of range", x, c.idx)
		}
		child := t.mem.Get(c.idx)
		if child.parent != some(x) {
			return 0, errors.Errorf("rbtree: node %d parent link does not point to %d", c.idx, x)
		}
		if nd.red && child.red {
			return 0, errors.Errorf("rbtree: red node %d has red child %d", x, c.idx)
		}
		clo, chi := lo, &key
		if i == 1 {
			clo, chi = &key, hi
		}
		h, err := t.checkNode(c.idx, clo, chi, count)
		if err != nil {
			return 0, err
		}
		heights[i] = h
	}
	if heights[0] != heights[1] {
		return 0, errors.Errorf("rbtree: node %d black heights differ (%d, %d)", x, heights[0], heights[1])
	}
	if nd.red {
		return heights[0], nil
	}
	return heights[0] + 1, nil
}

// Depths returns, for every absent child position, the number of nodes on
// the path from the root to it. An empty tree has no positions.
func (t *Tree[K]) Depths() []int {
	if t.mem == nil || !t.root().set {
		return nil
	}
	var depths []int
	var walk func(r ref, d int)
	walk = func(r ref, d int) {
		if !r.set {
			depths = append(depths, d)
			return
		}
		n := t.mem.Get(r.idx)
		walk(n.left, d+1)
		walk(n.right, d+1)
	}
	walk(t.root(), 0)
	return depths
}

// WriteDot writes the tree as a Graphviz digraph. Every node is labeled
// "index,key"; a node with a single child gets a point node for the
// missing side so left and right stay distinguishable.
func (t *Tree[K]) WriteDot(w io.Writer) error {
	if t.err != nil {
		return t.err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "digraph G {\n  graph [ordering=\"out\"];\n")
	t.mem.View(0, t.mem.Len(), func(nodes []node[K]) {
		for i, n := range nodes {
			color := "black"
			if n.red {
				color = "red"
			}
			fmt.Fprintf(bw, "  %v [label=\"%d,%v\", color=\"%s\"];\n", n.key, i, n.key, color)
		}
	})
	if r := t.root(); r.set {
		t.writeDotEdges(bw, r.idx)
	}
	fmt.Fprint(bw, "}\n")
	return bw.Flush()
}

func (t *Tree[K]) writeDotEdges(w io.Writer, x uint64) {
	n := t.mem.Get(x)
	if !n.left.set && !n.right.set {
		return
	}
	sides := [2]struct {
		name string
		c    ref
	}{{"left", n.left}, {"right", n.right}}
	for _, side := range sides {
		if side.c.set {
			fmt.Fprintf(w, "  %v -> %v;\n", n.key, t.mem.Get(side.c.idx).key)
			t.writeDotEdges(w, side.c.idx)
			continue
		}
		fmt.Fprintf(w, "  %s%v [shape=point, label=\"\"];\n  %v -> %s%v;\n", side.name, n.key, n.key, side.name, n.key)
	}
}

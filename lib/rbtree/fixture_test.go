package rbtree

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixture = []uint64{
	6531, 7872, 6576, 8533, 5085, 2817, 9887, 3796, 1282, 5573,
	8589, 3078, 590, 1494, 3295, 6609, 2587, 5230, 5101, 6358,
	2359, 6520, 8487, 9520, 981, 8192, 1044, 25, 3409, 1826,
	7563, 8815, 7790, 4136, 2868, 617, 6433, 3320, 110, 9427,
	3556, 1573, 8474, 3794, 4277, 7194, 3708, 654, 2821, 156,
	476, 3343, 387, 3858, 522, 8810, 2947, 8774, 3854, 5693,
	9512, 8942, 2646, 3561, 1760, 67, 3372, 6540, 3447, 8243,
	9859, 5944, 7580, 5610, 5478, 1286, 9347, 8831, 8490, 4875,
	465, 9761, 2545, 5496, 6120, 9771, 7852, 9114, 9870, 96,
	2068, 8222, 4859, 5872, 505, 2031, 8440, 6501, 9836, 3554,
}

func openTemp[K Key](t *testing.T) *Tree[K] {
	t.Helper()
	tree, err := OpenFile[K](filepath.Join(t.TempDir(), "index.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Close() })
	return tree
}

// bstFixture builds the fixture with plain BST insertion, so node i holds fixture[i].
func bstFixture(t *testing.T) *Tree[uint64] {
	t.Helper()
	tree := openTemp[uint64](t)
	for i, v := range fixture {
		x, err := tree.addBST(v)
		require.NoError(t, err)
		require.Equal(t, uint64(i), x)
	}
	return tree
}

func sortedFixture() []uint64 {
	s := append([]uint64(nil), fixture...)
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	return s
}

func requireLeft(t *testing.T, tree *Tree[uint64], p, c uint64) {
	t.Helper()
	require.Equal(t, some(c), tree.leftOf(p), "left(%d)", p)
	require.Equal(t, some(p), tree.parentOf(c), "parent(%d)", c)
}

func requireRight(t *testing.T, tree *Tree[uint64], p, c uint64) {
	t.Helper()
	require.Equal(t, some(c), tree.rightOf(p), "right(%d)", p)
	require.Equal(t, some(p), tree.parentOf(c), "parent(%d)", c)
}

func requireRoot(t *testing.T, tree *Tree[uint64], x uint64) {
	t.Helper()
	require.Equal(t, some(x), tree.root())
	require.Equal(t, none, tree.parentOf(x))
}

func TestFixtureInOrder(t *testing.T) {
	tree := openTemp[uint64](t)
	for _, v := range fixture {
		require.NoError(t, tree.Add(v))
	}
	assert.Equal(t, sortedFixture(), tree.InOrder())
	assert.Equal(t, uint64(len(fixture)), tree.Len())
	require.NoError(t, tree.Check())
}

func TestFixtureDelBST(t *testing.T) {
	tree := bstFixture(t)

	x, ok := tree.delBST(6531)
	require.True(t, ok)
	assert.Equal(t, uint64(67), x)
	assert.Equal(t, uint64(6540), tree.mem.Get(0).key)

	x, ok = tree.delBST(8533)
	require.True(t, ok)
	assert.Equal(t, uint64(10), x)
	assert.Equal(t, uint64(8589), tree.mem.Get(3).key)

	_, ok = tree.delBST(1)
	assert.False(t, ok)
}

func TestFixtureRotations(t *testing.T) {
	t.Run("left 19", func(t *testing.T) {
		tree := bstFixture(t)
		tree.rotateLeft(19)
		requireRight(t, tree, 9, 21)
		requireLeft(t, tree, 21, 19)
		requireRight(t, tree, 19, 36)
	})
	t.Run("left 36", func(t *testing.T) {
		tree := bstFixture(t)
		tree.rotateLeft(36)
		requireLeft(t, tree, 21, 97)
		requireLeft(t, tree, 97, 36)
		assert.Equal(t, none, tree.rightOf(36))
	})
	t.Run("left root", func(t *testing.T) {
		tree := bstFixture(t)
		tree.rotateLeft(0)
		requireRoot(t, tree, 1)
		requireLeft(t, tree, 1, 0)
		requireRight(t, tree, 0, 2)
	})
	t.Run("right 9", func(t *testing.T) {
		tree := bstFixture(t)
		tree.rotateRight(9)
		requireRight(t, tree, 4, 17)
		requireRight(t, tree, 17, 9)
		requireLeft(t, tree, 9, 74)
	})
	t.Run("right 46", func(t *testing.T) {
		tree := bstFixture(t)
		tree.rotateRight(46)
		requireLeft(t, tree, 43, 63)
		requireRight(t, tree, 63, 46)
		assert.Equal(t, none, tree.leftOf(46))
	})
	t.Run("right root", func(t *testing.T) {
		tree := bstFixture(t)
		tree.rotateRight(0)
		requireRoot(t, tree, 4)
		requireRight(t, tree, 4, 0)
		requireLeft(t, tree, 0, 9)
	})
	t.Run("missing child", func(t *testing.T) {
		tree := bstFixture(t)
		// the maximum has no right child, the minimum no left child
		hi, ok := tree.find(9887)
		require.True(t, ok)
		lo, ok := tree.find(25)
		require.True(t, ok)
		assert.Panics(t, func() { tree.rotateLeft(hi) })
		assert.Panics(t, func() { tree.rotateRight(lo) })
	})
}

func TestFixtureDeleteHalf(t *testing.T) {
	tree := openTemp[uint64](t)
	for _, v := range fixture {
		require.NoError(t, tree.Add(v))
	}
	for _, v := range fixture[:len(fixture)/2] {
		require.NoError(t, tree.Del(v))
		require.NoError(t, tree.Check())
	}

	rest := append([]uint64(nil), fixture[len(fixture)/2:]...)
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	assert.Equal(t, rest, tree.InOrder())
}

func TestFixtureDot(t *testing.T) {
	tree := openTemp[uint64](t)
	for _, v := range []uint64{2, 1, 3, 4} {
		require.NoError(t, tree.Add(v))
	}

	out, err := os.CreateTemp(t.TempDir(), "*.dot")
	require.NoError(t, err)
	require.NoError(t, tree.WriteDot(out))
	require.NoError(t, out.Close())
	got, err := os.ReadFile(out.Name())
	require.NoError(t, err)

	want := "digraph G {\n" +
		"  graph [ordering=\"out\"];\n" +
		"  2 [label=\"0,2\", color=\"black\"];\n" +
		"  1 [label=\"1,1\", color=\"black\"];\n" +
		"  3 [label=\"2,3\", color=\"black\"];\n" +
		"  4 [label=\"3,4\", color=\"red\"];\n" +
		"  2 -> 1;\n" +
		"  2 -> 3;\n" +
		"  left3 [shape=point, label=\"\"];\n" +
		"  3 -> left3;\n" +
		"  3 -> 4;\n" +
		"}\n"
	assert.Equal(t, want, string(got))
}

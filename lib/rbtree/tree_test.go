package rbtree

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectedCapacity is the smallest LeastCapacity*2^n holding occupy bytes.
func expectedCapacity(occupy uint64) uint64 {
	c := uint64(LeastCapacity)
	for c < occupy {
		c *= 2
	}
	return c
}

func fileSize(t *testing.T, tree *Tree[uint64]) uint64 {
	t.Helper()
	st, err := tree.file.Stat()
	require.NoError(t, err)
	return uint64(st.Size())
}

func TestRecordLayout(t *testing.T) {
	assert.Equal(t, uintptr(16), unsafe.Sizeof(ref{}))
	assert.Equal(t, uintptr(64), unsafe.Sizeof(node[uint64]{}))
	assert.Equal(t, uintptr(16), unsafe.Sizeof(meta{}))

	tree := openTemp[uint64](t)
	assert.Equal(t, uint64(24), tree.mem.HeaderSize())
	assert.Equal(t, uint64(64), tree.mem.ElemSize())
}

func TestByteLayout(t *testing.T) {
	tree := openTemp[uint64](t)
	require.NoError(t, tree.Add(42))
	require.NoError(t, tree.Add(7))

	d := tree.data
	ne := binary.NativeEndian
	assert.Equal(t, uint64(2), ne.Uint64(d[0:]), "length")
	assert.Equal(t, uint64(1), ne.Uint64(d[8:]), "root present")
	assert.Equal(t, uint64(0), ne.Uint64(d[16:]), "root index")

	// node 0: black root 42, left child 1
	n0 := d[24:88]
	assert.Equal(t, uint64(0), ne.Uint64(n0[0:]), "color")
	assert.Equal(t, uint64(0), ne.Uint64(n0[8:]), "parent absent")
	assert.Equal(t, uint64(1), ne.Uint64(n0[24:]), "left present")
	assert.Equal(t, uint64(1), ne.Uint64(n0[32:]), "left index")
	assert.Equal(t, uint64(0), ne.Uint64(n0[40:]), "right absent")
	assert.Equal(t, uint64(42), ne.Uint64(n0[56:]), "key")

	// node 1: red leaf 7 under node 0
	n1 := d[88:152]
	assert.Equal(t, uint64(1), ne.Uint64(n1[0:]), "color")
	assert.Equal(t, uint64(1), ne.Uint64(n1[8:]), "parent present")
	assert.Equal(t, uint64(0), ne.Uint64(n1[16:]), "parent index")
	assert.Equal(t, uint64(7), ne.Uint64(n1[56:]), "key")
}

func TestCapacityLaw(t *testing.T) {
	tree := openTemp[uint64](t)
	assert.Equal(t, uint64(LeastCapacity), tree.Capacity())
	assert.Equal(t, uint64(LeastCapacity), fileSize(t, tree))

	for i := uint64(0); i < 500; i++ {
		_, err := tree.newNode(i)
		require.NoError(t, err)
		require.Equal(t, 24+64*(i+1), tree.Occupy())
		require.Equal(t, expectedCapacity(tree.Occupy()), tree.Capacity())
	}
	assert.Equal(t, uint64(24+64*500), tree.Occupy())
	assert.Equal(t, uint64(32768), tree.Capacity())
	assert.Equal(t, uint64(32768), fileSize(t, tree))

	for i := uint64(0); i < 490; i++ {
		require.NoError(t, tree.removeSlot(i%tree.Len()))
		require.Equal(t, expectedCapacity(tree.Occupy()), tree.Capacity())
	}
	assert.Equal(t, uint64(24+64*10), tree.Occupy())
	assert.Equal(t, uint64(LeastCapacity), tree.Capacity())
	assert.Equal(t, uint64(LeastCapacity), fileSize(t, tree))
}

func TestCapacityFollowsTree(t *testing.T) {
	tree := openTemp[uint64](t)
	for i := uint64(0); i < 2000; i++ {
		require.NoError(t, tree.Add(i))
	}
	assert.Equal(t, expectedCapacity(tree.Occupy()), tree.Capacity())
	for i := uint64(0); i < 1990; i++ {
		require.NoError(t, tree.Del(i))
	}
	assert.Equal(t, uint64(LeastCapacity), tree.Capacity())
	assert.Equal(t, []uint64{1990, 1991, 1992, 1993, 1994, 1995, 1996, 1997, 1998, 1999}, tree.InOrder())
	require.NoError(t, tree.Check())
}

func TestDuplicateKey(t *testing.T) {
	tree := openTemp[uint64](t)
	require.NoError(t, tree.Add(5))
	require.NoError(t, tree.Add(3))

	err := tree.Add(5)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, uint64(2), tree.Len())
	assert.Equal(t, []uint64{3, 5}, tree.InOrder())
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	tree := openTemp[uint64](t)
	for _, v := range fixture[:20] {
		require.NoError(t, tree.Add(v))
	}
	before := bytes.Clone(tree.data)

	require.NoError(t, tree.Del(1))
	require.NoError(t, tree.Del(99999))
	assert.Equal(t, before, tree.data)

	empty := openTemp[uint64](t)
	require.NoError(t, empty.Del(1))
	assert.Equal(t, uint64(0), empty.Len())
}

func TestDeleteUntilEmpty(t *testing.T) {
	tree := openTemp[uint64](t)
	for _, v := range fixture {
		require.NoError(t, tree.Add(v))
	}
	for _, v := range sortedFixture() {
		require.NoError(t, tree.Del(v))
		require.NoError(t, tree.Check())
		assert.False(t, tree.Has(v))
	}
	assert.Equal(t, uint64(0), tree.Len())
	assert.Equal(t, none, tree.root())
	assert.Empty(t, tree.InOrder())
}

func TestRandomOperations(t *testing.T) {
	tree := openTemp[uint64](t)
	rng := rand.New(rand.NewSource(42))
	model := make(map[uint64]struct{})

	for i := 0; i < 20000; i++ {
		key := uint64(rng.Intn(3000))
		if rng.Intn(3) == 0 {
			require.NoError(t, tree.Del(key))
			delete(model, key)
		} else {
			err := tree.Add(key)
			if _, ok := model[key]; ok {
				require.ErrorIs(t, err, ErrDuplicateKey)
			} else {
				require.NoError(t, err)
				model[key] = struct{}{}
			}
		}
		if i%500 == 0 {
			require.NoError(t, tree.Check(), "after %d operations", i)
		}
	}
	require.NoError(t, tree.Check())

	want := make([]uint64, 0, len(model))
	for k := range model {
		want = append(want, k)
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	assert.Equal(t, want, tree.InOrder())
	assert.Equal(t, uint64(len(model)), tree.Len())
	assert.Equal(t, expectedCapacity(tree.Occupy()), tree.Capacity())
}

func TestRandomAdd(t *testing.T) {
	tree := openTemp[uint64](t)
	rng := rand.New(rand.NewSource(7))
	added := 0
	for i := 0; i < 10000; i++ {
		if err := tree.Add(rng.Uint64()); err == nil {
			added++
		} else {
			require.ErrorIs(t, err, ErrDuplicateKey)
		}
	}
	assert.Equal(t, uint64(added), tree.Len())
	require.NoError(t, tree.Check())
	keys := tree.InOrder()
	assert.True(t, sort.SliceIsSorted(keys, func(i, j int) bool { return keys[i] < keys[j] }))

	// the longest path of a red-black tree is at most twice the shortest
	depths := tree.Depths()
	lo, hi := depths[0], depths[0]
	for _, d := range depths {
		lo, hi = min(lo, d), max(hi, d)
	}
	assert.LessOrEqual(t, hi, 2*lo)
	assert.Len(t, depths, added+1)
}

func TestRange(t *testing.T) {
	tree := openTemp[uint64](t)
	for _, v := range fixture {
		require.NoError(t, tree.Add(v))
	}

	collect := func(from, to uint64, limit int) []uint64 {
		var out []uint64
		tree.Range(from, to, func(k uint64) bool {
			out = append(out, k)
			return limit <= 0 || len(out) < limit
		})
		return out
	}

	var want []uint64
	for _, v := range sortedFixture() {
		if v >= 3000 && v <= 4000 {
			want = append(want, v)
		}
	}
	assert.Equal(t, want, collect(3000, 4000, 0))
	assert.Equal(t, want[:3], collect(3000, 4000, 3))
	assert.Equal(t, []uint64{6531}, collect(6531, 6531, 0))
	assert.Empty(t, collect(6532, 6539, 0))
	assert.Empty(t, collect(4000, 3000, 0))
	assert.Equal(t, sortedFixture(), collect(0, math.MaxUint64, 0))
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.idx")

	tree, err := OpenFile[uint64](path)
	require.NoError(t, err)
	for _, v := range fixture {
		require.NoError(t, tree.Add(v))
	}
	for _, v := range fixture[:10] {
		require.NoError(t, tree.Del(v))
	}
	capacity := tree.Capacity()
	require.NoError(t, tree.Sync())
	require.NoError(t, tree.Close())
	require.NoError(t, tree.Close())

	tree, err = OpenFile[uint64](path)
	require.NoError(t, err)
	defer tree.Close()

	assert.Equal(t, capacity, tree.Capacity())
	assert.Equal(t, uint64(90), tree.Len())
	require.NoError(t, tree.Check())
	assert.False(t, tree.Has(fixture[0]))
	assert.True(t, tree.Has(fixture[99]))
	require.NoError(t, tree.Add(fixture[0]))
	require.NoError(t, tree.Check())
}

func TestOpenCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.idx")
	raw := make([]byte, LeastCapacity)
	binary.NativeEndian.PutUint64(raw, 1000)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err := OpenFile[uint64](path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestClosed(t *testing.T) {
	tree := openTemp[uint64](t)
	require.NoError(t, tree.Add(1))
	require.NoError(t, tree.Close())

	assert.ErrorIs(t, tree.Add(2), ErrClosed)
	assert.ErrorIs(t, tree.Del(1), ErrClosed)
	assert.ErrorIs(t, tree.Check(), ErrClosed)
	assert.ErrorIs(t, tree.Err(), ErrClosed)
	assert.False(t, tree.Has(1))
	assert.Equal(t, uint64(0), tree.Len())
}

func TestFloatKeys(t *testing.T) {
	tree := openTemp[float64](t)
	for _, v := range []float64{0.5, -3, 2.25, 1e9, -0.125} {
		require.NoError(t, tree.Add(v))
	}
	assert.ErrorIs(t, tree.Add(math.NaN()), ErrInvalidKey)
	assert.ErrorIs(t, tree.Add(2.25), ErrDuplicateKey)
	require.NoError(t, tree.Del(0.5))
	assert.Equal(t, []float64{-3, -0.125, 2.25, 1e9}, tree.InOrder())
	require.NoError(t, tree.Check())
}

func TestSmallKeys(t *testing.T) {
	tree := openTemp[int8](t)
	for v := -128; v < 128; v++ {
		require.NoError(t, tree.Add(int8(v)))
	}
	for v := -128; v < 128; v += 2 {
		require.NoError(t, tree.Del(int8(v)))
	}
	require.NoError(t, tree.Check())
	assert.Equal(t, uint64(128), tree.Len())
	assert.Equal(t, []int8{-127, -125}, tree.InOrder()[:2])
}

func TestResizeFailureIsSticky(t *testing.T) {
	tree := openTemp[uint64](t)
	for _, k := range fixture[:60] {
		require.NoError(t, tree.Add(k))
	}
	// the next grow truncates a closed file
	require.NoError(t, tree.file.Close())

	var err error
	for _, k := range fixture[60:] {
		if err = tree.Add(k); err != nil {
			break
		}
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rbtree: resize")
	assert.ErrorIs(t, tree.Err(), err)
	// 63 nodes of 64 bytes fill the first 4096 bytes after the 24 byte header
	assert.Equal(t, uint64(63), tree.Len())

	assert.ErrorIs(t, tree.Add(1), err)
	assert.ErrorIs(t, tree.Del(fixture[0]), err)
	assert.ErrorIs(t, tree.Check(), err)
	assert.ErrorIs(t, tree.Sync(), err)
	assert.False(t, tree.Has(fixture[0]))
}

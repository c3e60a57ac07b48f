package rbtree

import (
	"os"

	"github.com/ValentinKolb/dIdx/lib/arena"
	"github.com/ValentinKolb/dIdx/lib/mmap"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// LeastCapacity is the minimum size of an index file in bytes.
const LeastCapacity = 4096

var (
	// ErrDuplicateKey is returned by Add when the key is already present.
	ErrDuplicateKey = errors.New("rbtree: duplicate key")
	// ErrInvalidKey is returned for keys without a total order (NaN).
	ErrInvalidKey = errors.New("rbtree: invalid key")
	// ErrCorrupt is returned by Open when the file content is inconsistent.
	ErrCorrupt = errors.New("rbtree: corrupt index file")
	// ErrClosed is returned by every call on a closed tree.
	ErrClosed = errors.New("rbtree: closed")
)

// Key is the set of fixed-size ordered key types a tree can hold.
type Key interface {
	constraints.Integer | constraints.Float
}

// ref is a nilable node index. The zero value is absent.
type ref struct {
	set bool
	_   [7]byte
	idx uint64
}

var none ref

func some(i uint64) ref {
	return ref{set: true, idx: i}
}

type node[K Key] struct {
	red    bool
	_      [7]byte
	parent ref
	left   ref
	right  ref
	key    K
}

type meta struct {
	root ref
}

// Tree is a red-black tree of unique keys backed by a memory-mapped file.
type Tree[K Key] struct {
	file     *os.File
	data     []byte
	mem      *arena.Arena[node[K], meta]
	capacity uint64

	// err is sticky: once a resize fails or the tree is closed,
	// every mutation returns it.
	err error
	// length is the node count when a resize failed.
	length uint64
}

// OpenFile opens or creates the index file at path.
func OpenFile[K Key](path string) (*Tree[K], error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "rbtree: open")
	}
	t, err := Open[K](f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return t, nil
}

// Open maps f as an index. A file shorter than LeastCapacity is extended
// first. On success the tree owns f and closes it in Close.
func Open[K Key](f *os.File) (*Tree[K], error) {
	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "rbtree: stat %s", f.Name())
	}
	size := uint64(st.Size())
	if size < LeastCapacity {
		if err := f.Truncate(LeastCapacity); err != nil {
			return nil, errors.Wrapf(err, "rbtree: extend %s", f.Name())
		}
		size = LeastCapacity
	}

	data, err := mmap.Map(f, int(size))
	if err != nil {
		return nil, err
	}
	t := &Tree[K]{
		file:     f,
		data:     data,
		mem:      arena.New[node[K], meta](data),
		capacity: size,
	}
	if err := t.validateHeader(); err != nil {
		_ = mmap.Unmap(data)
		return nil, errors.Wrap(err, f.Name())
	}
	return t, nil
}

func (t *Tree[K]) validateHeader() error {
	n := t.mem.Len()
	if n > (t.capacity-t.mem.HeaderSize())/t.mem.ElemSize() {
		return errors.Wrapf(ErrCorrupt, "%d nodes do not fit in %d bytes", n, t.capacity)
	}
	root := t.mem.Meta().root
	if root.set != (n > 0) || (root.set && root.idx >= n) {
		return errors.Wrapf(ErrCorrupt, "root %v does not match %d nodes", root, n)
	}
	return nil
}

// Len returns the number of keys. Once a resize failed it keeps reporting
// the count at the time of the failure, 0 after Close.
func (t *Tree[K]) Len() uint64 {
	if t.mem == nil {
		return t.length
	}
	return t.mem.Len()
}

// Capacity returns the size of the backing file in bytes.
func (t *Tree[K]) Capacity() uint64 {
	return t.capacity
}

// Occupy returns the number of bytes of the file in use.
func (t *Tree[K]) Occupy() uint64 {
	if t.mem == nil {
		return 0
	}
	return t.mem.Occupy()
}

// Name returns the name of the backing file.
func (t *Tree[K]) Name() string {
	if t.file == nil {
		return ""
	}
	return t.file.Name()
}

// Err returns the error that made the tree unusable, if any.
func (t *Tree[K]) Err() error {
	return t.err
}

// Sync flushes the mapping to the file.
func (t *Tree[K]) Sync() error {
	if t.err != nil {
		return t.err
	}
	return mmap.Sync(t.data)
}

// Close unmaps the file and closes it. Closing twice is a no-op.
func (t *Tree[K]) Close() error {
	if t.file == nil {
		return nil
	}
	err := mmap.Unmap(t.data)
	if cerr := t.file.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, "rbtree: close")
	}
	t.file, t.data, t.mem = nil, nil, nil
	t.err, t.length = ErrClosed, 0
	return err
}

// reserve grows the file when one more node would not fit.
func (t *Tree[K]) reserve() error {
	if t.mem.Occupy()+t.mem.ElemSize() > t.capacity {
		return t.resize(t.capacity * 2)
	}
	return nil
}

// release shrinks the file when less than half of it is in use.
func (t *Tree[K]) release() error {
	if t.capacity > LeastCapacity && t.mem.Occupy() < t.capacity/2 {
		return t.resize(max(t.capacity/2, LeastCapacity))
	}
	return nil
}

func (t *Tree[K]) resize(capacity uint64) error {
	data, err := mmap.Resize(t.file, t.data, int(capacity))
	if err != nil {
		t.length = t.mem.Len()
		t.data, t.mem = nil, nil
		t.err = errors.Wrapf(err, "rbtree: resize %s to %d bytes", t.file.Name(), capacity)
		return t.err
	}
	t.data, t.capacity = data, capacity
	t.mem = arena.New[node[K], meta](data)
	return nil
}

// newNode appends a red, unlinked node and returns its index.
func (t *Tree[K]) newNode(key K) (uint64, error) {
	if err := t.reserve(); err != nil {
		return 0, err
	}
	x := t.mem.Push()
	t.mem.Set(x, node[K]{red: true, key: key})
	return x, nil
}

// removeSlot frees slot x of a node that is no longer linked into the tree.
// The last node moves into x and the links to it are rewritten.
func (t *Tree[K]) removeSlot(x uint64) error {
	last := t.mem.Len() - 1
	if x != last {
		n := t.mem.Get(last)
		t.replaceChild(n.parent, some(last), some(x))
		t.setParent(n.left, some(x))
		t.setParent(n.right, some(x))
		t.mem.Set(x, n)
	}
	t.mem.Pop()
	return t.release()
}

func (t *Tree[K]) root() ref {
	return t.mem.Meta().root
}

func (t *Tree[K]) setRoot(r ref) {
	t.mem.UpdateMeta(func(m *meta) { m.root = r })
}

func (t *Tree[K]) parentOf(x uint64) ref {
	return t.mem.Get(x).parent
}

func (t *Tree[K]) leftOf(x uint64) ref {
	return t.mem.Get(x).left
}

func (t *Tree[K]) rightOf(x uint64) ref {
	return t.mem.Get(x).right
}

// isRed reports false for absent nodes, which count as black.
func (t *Tree[K]) isRed(r ref) bool {
	return r.set && t.mem.Get(r.idx).red
}

func (t *Tree[K]) setRed(x uint64, red bool) {
	t.mem.Update(x, func(n *node[K]) { n.red = red })
}

func (t *Tree[K]) setParent(r ref, p ref) {
	if r.set {
		t.mem.Update(r.idx, func(n *node[K]) { n.parent = p })
	}
}

// replaceChild points the link of p that holds old at repl. An absent p
// means old is the root.
func (t *Tree[K]) replaceChild(p ref, old, repl ref) {
	if !p.set {
		t.setRoot(repl)
		return
	}
	t.mem.Update(p.idx, func(n *node[K]) {
		if n.left == old {
			n.left = repl
		} else {
			n.right = repl
		}
	})
}

func (t *Tree[K]) blackenRoot() {
	if r := t.root(); r.set {
		t.setRed(r.idx, false)
	}
}

// find returns the index of the node holding key.
func (t *Tree[K]) find(key K) (uint64, bool) {
	cur := t.root()
	for cur.set {
		n := t.mem.Get(cur.idx)
		switch {
		case key < n.key:
			cur = n.left
		case key > n.key:
			cur = n.right
		default:
			return cur.idx, true
		}
	}
	return 0, false
}

func isNaN[K Key](k K) bool {
	return k != k
}

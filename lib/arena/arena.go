package arena

import (
	"fmt"
	"unsafe"
)

const lenSize = uint64(unsafe.Sizeof(uint64(0)))

// Arena is a typed view of a byte region with a length header, a metadata
// block of type M and a dense array of T.
type Arena[T any, M any] struct {
	buf []byte
}

// New returns an arena over buf. It panics if buf cannot hold the header
// and the metadata block.
func New[T any, M any](buf []byte) *Arena[T, M] {
	a := &Arena[T, M]{buf: buf}
	if uint64(len(buf)) < a.HeaderSize() {
		panic(fmt.Sprintf("arena: region of %d bytes is smaller than header %d", len(buf), a.HeaderSize()))
	}
	return a
}

// HeaderSize is the number of bytes before the first element.
func (a *Arena[T, M]) HeaderSize() uint64 {
	var m M
	var t T
	off := lenSize + uint64(unsafe.Sizeof(m))
	align := uint64(unsafe.Alignof(t))
	return (off + align - 1) / align * align
}

// ElemSize is the size of one element record.
func (a *Arena[T, M]) ElemSize() uint64 {
	var t T
	return uint64(unsafe.Sizeof(t))
}

// Len returns the number of live elements.
func (a *Arena[T, M]) Len() uint64 {
	return *a.lenPtr()
}

// Occupy returns the number of bytes in use: header plus live elements.
func (a *Arena[T, M]) Occupy() uint64 {
	return a.HeaderSize() + a.Len()*a.ElemSize()
}

// Meta returns a copy of the metadata block.
func (a *Arena[T, M]) Meta() M {
	return *a.metaPtr()
}

// UpdateMeta calls fn with a pointer to the metadata block.
// The pointer must not be retained after fn returns.
func (a *Arena[T, M]) UpdateMeta(fn func(m *M)) {
	fn(a.metaPtr())
}

// Push grows the live prefix by one and returns the index of the new last slot.
// The slot holds whatever the region contains at that position; it does not
// check the capacity of the region.
func (a *Arena[T, M]) Push() uint64 {
	p := a.lenPtr()
	*p++
	return *p - 1
}

// Pop resets the last element to the zero value of T and shrinks the live
// prefix by one. It panics on an empty arena.
func (a *Arena[T, M]) Pop() {
	n := a.Len()
	if n == 0 {
		panic("arena: pop on empty arena")
	}
	var zero T
	*a.elemPtr(n - 1) = zero
	*a.lenPtr() = n - 1
}

// Get returns a copy of element i. It panics if i is not live.
func (a *Arena[T, M]) Get(i uint64) T {
	a.check(i)
	return *a.elemPtr(i)
}

// Set overwrites element i. It panics if i is not live.
func (a *Arena[T, M]) Set(i uint64, v T) {
	a.check(i)
	*a.elemPtr(i) = v
}

// Update calls fn with a pointer to element i. It panics if i is not live.
// The pointer must not be retained after fn returns.
func (a *Arena[T, M]) Update(i uint64, fn func(v *T)) {
	a.check(i)
	fn(a.elemPtr(i))
}

// View calls fn with the live elements [from, to) as a slice aliasing the region.
// It panics if the range is not inside the live prefix.
func (a *Arena[T, M]) View(from, to uint64, fn func(elems []T)) {
	if from > to || to > a.Len() {
		panic(fmt.Sprintf("arena: view [%d,%d) out of range [0,%d)", from, to, a.Len()))
	}
	if from == to {
		fn(nil)
		return
	}
	fn(unsafe.Slice(a.elemPtr(from), to-from))
}

func (a *Arena[T, M]) check(i uint64) {
	if n := a.Len(); i >= n {
		panic(fmt.Sprintf("arena: index %d out of range [0,%d)", i, n))
	}
}

func (a *Arena[T, M]) lenPtr() *uint64 {
	return (*uint64)(unsafe.Pointer(&a.buf[0]))
}

func (a *Arena[T, M]) metaPtr() *M {
	return (*M)(unsafe.Pointer(&a.buf[lenSize]))
}

// elemPtr slices the region so that an element past its end panics
// instead of reaching unmapped memory.
func (a *Arena[T, M]) elemPtr(i uint64) *T {
	size := a.ElemSize()
	off := a.HeaderSize() + i*size
	b := a.buf[off : off+size]
	return (*T)(unsafe.Pointer(&b[0]))
}

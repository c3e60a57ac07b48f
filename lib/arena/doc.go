// Package arena provides a typed view over a flat byte region.
//
// The region holds three consecutive parts:
//
//	offset 0            length     uint64, number of live elements
//	offset 8            metadata   one value of type M
//	offset ElemOffset   elements   a dense array of T, exactly length entries live
//
// The arena never allocates, resizes or flushes the region; the owner does that
// (see package rbtree). Element and metadata access is by value, or through a
// closure that receives a pointer valid only for the duration of the call. This
// keeps pointers into the region from outliving a remap by the owner.
//
// All memory is interpreted in host byte order. T and M must be plain data
// types without Go pointers, since the region is not scanned by the garbage
// collector.
package arena

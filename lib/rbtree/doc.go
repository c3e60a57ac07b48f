// Package rbtree implements a persistent red-black tree stored in a single
// memory-mapped file.
//
// Nodes are not heap objects linked by pointers. They are fixed-size records in
// a dense array (see package arena) and refer to each other by array index.
// The file layout, in host byte order, is:
//
//	offset 0        node count            8 bytes
//	offset 8        root index            16 bytes (8 byte presence flag, 8 byte index)
//	offset 24+64*i  node i                64 bytes for 8 byte keys:
//	                  color               1 byte, padded to 8
//	                  parent, left, right 16 bytes each (presence flag, index)
//	                  key                 8 bytes
//
// The file never shrinks below LeastCapacity bytes. Before an insertion that
// would not fit, the file doubles; after a deletion that leaves less than half
// of it in use, it halves. Every resize truncates the file and remaps it.
//
// Deletion keeps the node array dense: the last record is moved into the freed
// slot and every link to it is rewritten. Node indices are therefore only stable
// between two mutating calls.
//
// A Tree is not safe for concurrent use. Callers serialize access, for example
// by owning the tree from a single goroutine (see package rbidx).
package rbtree

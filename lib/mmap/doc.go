// Package mmap maps files read-write into memory.
//
// A mapping is a plain []byte backed by the page cache. Writes to it reach the
// file without further calls; Sync forces them to stable storage. The caller
// owns the mapping: it must not touch the slice after Unmap, and it must unmap
// before shrinking the file below the mapped length.
package mmap

// Package rbidx implements db.IndexDB on top of a memory-mapped red-black tree
// (package rbtree).
//
// The tree is not safe for concurrent use, so the engine confines it to a single
// goroutine. Every public method turns into a request that is pushed onto a
// multi-producer single-consumer queue (util.MPSCQueue) and carries its own reply channel.
// The owning goroutine applies requests one at a time, in queue order. Callers
// wait for the reply at most DBOptions.Timeout; snapshot and dump requests,
// which stream into caller-provided readers and writers, wait until done.
//
// The index lives in the file DBOptions.Path. Without a path the engine uses a
// temporary file that is removed on Close.
//
// Snapshot format (Save/Load), all integers little endian:
//
//	magic        8 bytes  "RBIDX\x00\x00\x00"
//	version      1 byte
//	write index  8 bytes
//	count        8 bytes
//	keys         count * 8 bytes, strictly ascending
package rbidx

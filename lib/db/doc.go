// Package db provides a standardized interface for ordered index implementations.
// It defines the IndexDB interface that allows for consistent interaction with
// index backends while abstracting implementation details.
//
// The package focuses on:
//   - A unified interface for ordered key operations (Add, Delete, Has, Len, Range)
//   - Feature discovery through capability flags
//   - Standardized persistence operations
//   - Diagnostic access to the index structure (Dump, Check)
//
// Key Components:
//
//   - IndexDB Interface: The core interface that all index implementations must satisfy.
//     Keys are unsigned 64 bit integers and unique: adding an existing key fails with
//     ErrDuplicateKey, deleting a missing key succeeds without effect.
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method.
//
//   - Database Information: The DatabaseInfo structure reports the size of the index,
//     the implementation type and implementation-specific metadata.
//
// Note on Write Indices:
//   - All write operations take a write-index parameter that serves as a logical
//     timestamp. In a replicated setup this is the raft log index of the entry.
//   - Monotonicity Guarantee: All implementations must ensure that the write-index only increases
//     monotonically. Attempts to set a write-index lower than the current one must be ignored.
//
// Related Packages:
//
// The engines/rbidx package (github.com/ValentinKolb/dIdx/lib/db/engines/rbidx) implements
// IndexDB on top of a memory-mapped red-black tree (github.com/ValentinKolb/dIdx/lib/rbtree).
// A single goroutine owns the tree and serves requests from a lock-free queue.
//
// The testing package (github.com/ValentinKolb/dIdx/lib/db/testing) provides
// standardized tests and benchmarks for IndexDB implementations:
//   - RunIndexDBTests: Runs a standardized test suite to validate implementations
//   - RunIndexDBBenchmarks: Provides performance benchmarks for comparing implementations
package db

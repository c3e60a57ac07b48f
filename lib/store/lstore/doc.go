// Package lstore implements a local, single-node index store based on the
// store.IStore interface. It is a thin wrapper around any db.IndexDB
// implementation with automatic write index management.
//
// Implementation Details:
//
//   - Write Index Management: The store keeps an atomic counter that increments with
//     each write operation and passes it to the index as logical timestamp. The counter
//     starts at the write index the index reports when it is opened, so it keeps
//     increasing across restarts of a file backed index.
//
//   - Feature Detection: Before executing operations, the store checks if the underlying
//     db.IndexDB implementation supports the requested feature through the SupportsFeature
//     method. Unsupported operations return RetCUnsupportedOperation.
//
//   - Error Mapping: Errors of the index (duplicate key, timeout, I/O failures) are
//     converted to *store.Error values with matching return codes.
//
// Usage Example:
//
//	factory := func(name string) (db.IndexDB, error) {
//		return rbidx.NewIndexDB(&rbidx.DBOptions{Path: filepath.Join(dir, name+".idx")})
//	}
//	s, err := lstore.NewLocalStore(factory, "articles")
//
//	err = s.Add(42)
//	if store.IsDuplicateKey(err) { ... }
//
// For distributed scenarios requiring consensus across multiple nodes, consider
// using the dstore package instead, which provides a RAFT-based implementation
// of the same interface with strong consistency guarantees.
package lstore

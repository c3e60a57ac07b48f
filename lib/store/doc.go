// Package store defines IStore, the interface the RPC layer and the id manager use
// to talk to an ordered key index, and the Error type all implementations return.
//
// IStore sits on top of db.IndexDB. Implementations differ in where the index lives:
//
//   - lstore: a single db.IndexDB in this process. Writes get a write index from
//     an atomic counter.
//   - dstore: one db.IndexDB per RAFT replica, writes go through consensus and the
//     RAFT log index becomes the write index.
//
// Both create their indexes through a DBFactory, so tests and the server decide
// where index files are placed.
//
// Errors:
//
//	Every failed operation returns a *Error carrying a RetCode. The codes survive
//	the RPC layer unchanged, so callers can test them anywhere:
//
//	  if err := idx.Add(42); store.IsDuplicateKey(err) {
//	      // key already present
//	  }
//
//	FromDBError maps the sentinel errors of the db layer (db.ErrDuplicateKey,
//	db.ErrTimeout, ...) to their codes. CodeOf returns the code of any error,
//	RetCInternalError for errors that are not a *Error.
package store

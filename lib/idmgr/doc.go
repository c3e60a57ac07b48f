// Package idmgr hands out unique 64 bit ids on top of any store.IStore.
//
// An id is taken while it is a key of the underlying index. Because Add on the
// index fails with RetCDuplicateKey for a taken id, allocation needs no
// separate check: Allocate draws random ids (the first 8 bytes of a version 4
// uuid) until Add succeeds, at most 16 times.
//
// The manager works the same way on a local store (lstore) and on a raft
// backed store (dstore). With dstore, Allocate and Reserve are linearizable
// across the cluster since the Add command is decided by the raft log.
//
// Release is a check followed by a delete and is not atomic. Two clients
// releasing the same id may both observe true.
//
// Example usage:
//
//	mgr := idmgr.NewIDManager(s)
//
//	id, err := mgr.Allocate()
//	if errors.Is(err, idmgr.ErrExhausted) { ... }
//
//	ok, err := mgr.Reserve(42) // false if 42 is taken
//	ok, err = mgr.Release(id)  // true if id was taken
package idmgr

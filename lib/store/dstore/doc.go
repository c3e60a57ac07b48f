// Package dstore replicates an index with the Dragonboat RAFT library. The store
// implements store.IStore; every replica of a shard applies the same sequence of
// Add and Delete commands to its own db.IndexDB, so all replicas hold the same keys.
//
// Components:
//
//   - NewDistributedStore: the store.IStore client. Add and Delete are encoded as
//     internal.Command and proposed with SyncPropose. Has, Len, Range and Dump are
//     encoded as internal.Query and answered with SyncRead, so they observe every
//     write committed before the read started. GetDBInfo uses StaleRead.
//
//   - CreateStateMachineFactory: builds the IConcurrentStateMachine of a replica.
//     Update applies committed commands in log order and reports the outcome of each
//     (e.g. RetCDuplicateKey) as the entry result. An index that fails otherwise, for
//     example on a resize, makes Update return the error and the replica stops.
//     Lookup answers queries.
//
// Failures:
//
//	ErrSystemBusy from Dragonboat is retried a few times with a short pause. Every
//	proposal and read is bounded by the store timeout, exceeding it returns a
//	store.Error with RetCTimeout.
//
// Snapshots:
//
//	PrepareSnapshot captures the keys through db.IndexDB.Save while no update runs,
//	SaveSnapshot writes them zstd compressed. RecoverFromSnapshot replaces the index
//	content with db.IndexDB.Load and the log entries after the snapshot are replayed.
//
// Index Files:
//
//	Each replica opens its index through the factory, named by IndexName
//	(index-<shard>-<replica>). Add and Delete are last-write-wins per key, so
//	replaying log entries onto a file that already holds their effect converges
//	to the same state.
//
// Example:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	if err != nil { ... }
//
//	factory := func(name string) (db.IndexDB, error) {
//	    return rbidx.NewIndexDB(&rbidx.DBOptions{Path: filepath.Join(dataDir, name+".idx")})
//	}
//
//	err = nh.StartConcurrentReplica(members, false, dstore.CreateStateMachineFactory(factory), shardConfig)
//	if err != nil { ... }
//
//	idx := dstore.NewDistributedStore(nh, shardID, 5*time.Second)
//
// Writes need a majority of replicas and a leader, deploy an odd number of nodes.
// For a single node the lstore package offers the same interface without consensus.
package dstore

package dstore

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dIdx/lib/db"
	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/ValentinKolb/dIdx/lib/store/dstore/internal"
	"github.com/klauspost/compress/zstd"
	sm "github.com/lni/dragonboat/v4/statemachine"
	"github.com/pkg/errors"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// IndexStateMachine is a state machine implementation for Dragonboat RAFT
type IndexStateMachine struct {
	replicaID uint64
	shardID   uint64
	database  db.IndexDB // the actual index
}

// IndexName returns the name under which the state machine of a replica creates its index.
func IndexName(shardID, replicaID uint64) string {
	return fmt.Sprintf("index-%d-%d", shardID, replicaID)
}

// CreateStateMachineFactory returns a function that can be used by dragonboat to create a new state machine for a node host.
// The factory pattern is used to enable the caller to pass an interchangeable dbFactory.
// The index of each replica is created under the name returned by IndexName.
func CreateStateMachineFactory(dbFactory store.DBFactory) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		database, err := dbFactory(IndexName(shardID, replicaID))
		if err != nil {
			log.Panicf("failed to create index for shard %d replica %d: %v", shardID, replicaID, err)
		}
		return &IndexStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			database:  database,
		}
	}
}

// Lookup handles read-only queries by mapping each Query operation to the corresponding IndexDB method.
func (fsm *IndexStateMachine) Lookup(itf interface{}) (interface{}, error) {

	// try to parse Query into Query struct
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}

	switch q.Type {
	case internal.QueryTHas:
		if !fsm.database.SupportsFeature(db.FeatureHas) {
			return nil, unsupported(db.FeatureHas)
		}
		ok, err := fsm.database.Has(q.Key)
		if err != nil {
			return nil, store.FromDBError(err)
		}
		return ok, nil
	case internal.QueryTLen:
		if !fsm.database.SupportsFeature(db.FeatureLen) {
			return nil, unsupported(db.FeatureLen)
		}
		n, err := fsm.database.Len()
		if err != nil {
			return nil, store.FromDBError(err)
		}
		return n, nil
	case internal.QueryTRange:
		if !fsm.database.SupportsFeature(db.FeatureRange) {
			return nil, unsupported(db.FeatureRange)
		}
		keys, err := fsm.database.Range(q.Key, q.To, q.Limit)
		if err != nil {
			return nil, store.FromDBError(err)
		}
		return keys, nil
	case internal.QueryTDump:
		if !fsm.database.SupportsFeature(db.FeatureDump) {
			return nil, unsupported(db.FeatureDump)
		}
		var buf bytes.Buffer
		if err := fsm.database.Dump(&buf); err != nil {
			return nil, store.FromDBError(err)
		}
		return buf.Bytes(), nil
	case internal.QueryTGetDBInfo:
		return fsm.database.GetInfo(), nil
	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %d", q.Type))
	}
}

// Update handles write commands on the IndexDB instance.
// All write operations are serialized into []byte and are accessible via the entries struct.
// The raft log index of an entry is used as write index.
func (fsm *IndexStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {

	// Nothing to do
	if len(entries) == 0 {
		return entries, nil
	}

	start := time.Now()

	for idx, e := range entries {
		res, err := fsm.apply(e)
		if err != nil {
			// the index is unusable, raft must not advance past this entry
			log.Errorf("shard %d replica %d: failed to apply entry %d: %v", fsm.shardID, fsm.replicaID, e.Index, err)
			return nil, errors.Wrapf(err, "apply entry %d", e.Index)
		}
		entries[idx].Result = res
	}

	// Log if the update took long
	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("State machine took long to update. Batch updated %d entries, took %.2fms", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// apply executes a single log entry and returns its result.
// Malformed commands and the ordinary outcomes of the index (a duplicate key, a
// write still waiting in the queue) are per-entry results. Any other error of the
// index is returned, the replica must not apply further entries after it.
func (fsm *IndexStateMachine) apply(e sm.Entry) (sm.Result, error) {
	if len(e.Cmd) == 0 {
		return sm.Result{Value: uint64(store.RetCInvalidOperation), Data: []byte("empty command ignored")}, nil
	}

	cmd := internal.Command{}
	if err := cmd.Deserialize(e.Cmd); err != nil {
		return sm.Result{
			Value: uint64(store.RetCInternalError),
			Data:  []byte(fmt.Sprintf("failed to deserialize command: %v", err)),
		}, nil
	}

	// Check if the db supports the operation
	feat, err := cmd.Type.ToDBFeature()
	if err != nil {
		return sm.Result{
			Value: uint64(store.RetCInvalidOperation),
			Data:  []byte(fmt.Sprintf("unknown Command operation: %s", cmd.Type)),
		}, nil
	}
	if !fsm.database.SupportsFeature(feat) {
		err := unsupported(feat)
		return sm.Result{
			Value: uint64(store.CodeOf(err)),
			Data:  []byte(err.Error()),
		}, nil
	}

	switch cmd.Type {
	case internal.CommandTAdd:
		err = fsm.database.Add(cmd.Key, e.Index)
	case internal.CommandTDelete:
		err = fsm.database.Delete(cmd.Key, e.Index)
	}
	switch {
	case err == nil:
		return sm.Result{
			Value: uint64(store.RetCSuccess),
			Data:  []byte(fmt.Sprintf("%s: key=%d", cmd.Type, cmd.Key)),
		}, nil
	case errors.Is(err, db.ErrDuplicateKey), errors.Is(err, db.ErrTimeout):
		// a timed out write stays queued and is applied in log order
		return sm.Result{
			Value: uint64(store.CodeOf(store.FromDBError(err))),
			Data:  []byte(err.Error()),
		}, nil
	default:
		return sm.Result{}, err
	}
}

// unsupported returns the store error for an operation the index does not implement
func unsupported(feat db.Feature) error {
	return store.FromDBError(errors.Wrapf(db.ErrUnsupported, "%s operation", feat))
}

// PrepareSnapshot captures the index content while no Update is running.
// The returned buffer is written by SaveSnapshot concurrently to further updates.
func (fsm *IndexStateMachine) PrepareSnapshot() (interface{}, error) {
	if !fsm.database.SupportsFeature(db.FeatureSave) {
		return nil, errors.Wrap(db.ErrUnsupported, "prepare snapshot")
	}
	var buf bytes.Buffer
	if err := fsm.database.Save(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to capture snapshot")
	}
	return &buf, nil
}

// SaveSnapshot writes the captured snapshot zstd compressed to the writer
func (fsm *IndexStateMachine) SaveSnapshot(ctx interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	buf, ok := ctx.(*bytes.Buffer)
	if !ok {
		return errors.Errorf("invalid snapshot context type: %T", ctx)
	}

	enc, err := zstd.NewWriter(writer)
	if err != nil {
		return errors.Wrap(err, "failed to create snapshot encoder")
	}
	if _, err := buf.WriteTo(enc); err != nil {
		_ = enc.Close()
		return errors.Wrap(err, "failed to write snapshot")
	}
	return errors.Wrap(enc.Close(), "failed to flush snapshot")
}

// RecoverFromSnapshot replaces the index content with the snapshot
func (fsm *IndexStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureLoad) {
		return errors.Wrap(db.ErrUnsupported, "recover from snapshot")
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "failed to create snapshot decoder")
	}
	defer dec.Close()

	return fsm.database.Load(dec)
}

// Close performs any necessary cleanup.
func (fsm *IndexStateMachine) Close() error {
	return fsm.database.Close()
}

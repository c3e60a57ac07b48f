package lstore

import (
	"bytes"
	"sync/atomic"

	"github.com/ValentinKolb/dIdx/lib/db"
	"github.com/ValentinKolb/dIdx/lib/store"
)

type storeImpl struct {
	db    db.IndexDB
	index atomic.Uint64
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
// The index is created by the factory under the given name.
func NewLocalStore(factory store.DBFactory, name string) (store.IStore, error) {
	database, err := factory(name)
	if err != nil {
		return nil, err
	}
	s := &storeImpl{db: database}
	s.index.Store(database.WriteIdx())
	return s, nil
}

// incAndGetIndex increments the index and returns the new value.
// It is used to ensure that each write operation has a unique index.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (s *storeImpl) incAndGetIndex() uint64 {
	return s.index.Add(1)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Add(key uint64) error {
	if !s.db.SupportsFeature(db.FeatureAdd) {
		return store.NewError(store.RetCUnsupportedOperation, "Add operation is not supported")
	}
	return store.FromDBError(s.db.Add(key, s.incAndGetIndex()))
}

func (s *storeImpl) Delete(key uint64) error {
	if !s.db.SupportsFeature(db.FeatureDelete) {
		return store.NewError(store.RetCUnsupportedOperation, "Delete operation is not supported")
	}
	return store.FromDBError(s.db.Delete(key, s.incAndGetIndex()))
}

func (s *storeImpl) Has(key uint64) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureHas) {
		return false, store.NewError(store.RetCUnsupportedOperation, "Has operation is not supported")
	}
	ok, err := s.db.Has(key)
	return ok, store.FromDBError(err)
}

func (s *storeImpl) Len() (uint64, error) {
	if !s.db.SupportsFeature(db.FeatureLen) {
		return 0, store.NewError(store.RetCUnsupportedOperation, "Len operation is not supported")
	}
	n, err := s.db.Len()
	return n, store.FromDBError(err)
}

func (s *storeImpl) Range(from, to uint64, limit int) ([]uint64, error) {
	if !s.db.SupportsFeature(db.FeatureRange) {
		return nil, store.NewError(store.RetCUnsupportedOperation, "Range operation is not supported")
	}
	keys, err := s.db.Range(from, to, limit)
	return keys, store.FromDBError(err)
}

func (s *storeImpl) Dump() ([]byte, error) {
	if !s.db.SupportsFeature(db.FeatureDump) {
		return nil, store.NewError(store.RetCUnsupportedOperation, "Dump operation is not supported")
	}
	var buf bytes.Buffer
	if err := s.db.Dump(&buf); err != nil {
		return nil, store.FromDBError(err)
	}
	return buf.Bytes(), nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}

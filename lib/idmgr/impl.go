package idmgr

import (
	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/pkg/errors"
)

type idMgrImpl struct {
	store store.IStore
	next  func() uint64
}

// NewIDManager creates an id manager that keeps the taken ids in the given store.
func NewIDManager(store store.IStore) IIDManager {
	return &idMgrImpl{
		store: store,
		next:  randomID,
	}
}

func (m *idMgrImpl) Allocate() (uint64, error) {
	for i := 0; i < maxAttempts; i++ {
		id := m.next()

		// Add fails atomically if the id is taken, no extra lookup is needed
		err := m.store.Add(id)
		if err == nil {
			return id, nil
		}
		if !store.IsDuplicateKey(err) {
			return 0, err
		}
	}
	return 0, errors.Wrapf(ErrExhausted, "after %d attempts", maxAttempts)
}

func (m *idMgrImpl) Reserve(id uint64) (bool, error) {
	err := m.store.Add(id)
	if store.IsDuplicateKey(err) {
		return false, nil
	}
	return err == nil, err
}

func (m *idMgrImpl) Release(id uint64) (bool, error) {
	ok, err := m.store.Has(id)
	if err != nil || !ok {
		return false, err
	}

	if err := m.store.Delete(id); err != nil {
		return false, err
	}
	return true, nil
}

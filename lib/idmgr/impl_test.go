package idmgr

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/ValentinKolb/dIdx/lib/db"
	"github.com/ValentinKolb/dIdx/lib/db/engines/rbidx"
	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/ValentinKolb/dIdx/lib/store/lstore"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *idMgrImpl {
	t.Helper()
	var opened []db.IndexDB
	dir := t.TempDir()
	factory := func(name string) (db.IndexDB, error) {
		d, err := rbidx.NewIndexDB(&rbidx.DBOptions{Path: filepath.Join(dir, name+".idx"), Name: name})
		if err == nil {
			opened = append(opened, d)
		}
		return d, err
	}
	s, err := lstore.NewLocalStore(factory, "ids")
	require.NoError(t, err)
	t.Cleanup(func() {
		for _, d := range opened {
			_ = d.Close()
		}
	})
	return NewIDManager(s).(*idMgrImpl)
}

func TestAllocate(t *testing.T) {
	mgr := newTestManager(t)

	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		id, err := mgr.Allocate()
		require.NoError(t, err)
		assert.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
	}

	n, err := mgr.store.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), n)
}

func TestAllocateSkipsTakenIDs(t *testing.T) {
	mgr := newTestManager(t)

	ids := []uint64{7, 7, 7, 8}
	mgr.next = func() uint64 {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	ok, err := mgr.Reserve(7)
	require.NoError(t, err)
	require.True(t, ok)

	id, err := mgr.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint64(8), id)
}

func TestAllocateExhausted(t *testing.T) {
	mgr := newTestManager(t)
	mgr.next = func() uint64 { return 1 }

	_, err := mgr.Reserve(1)
	require.NoError(t, err)

	_, err = mgr.Allocate()
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestReserveRelease(t *testing.T) {
	mgr := newTestManager(t)

	ok, err := mgr.Reserve(42)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mgr.Reserve(42)
	require.NoError(t, err)
	assert.False(t, ok, "reserving a taken id must fail")

	ok, err = mgr.Release(42)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mgr.Release(42)
	require.NoError(t, err)
	assert.False(t, ok, "releasing a free id must report false")

	ok, err = mgr.Reserve(42)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrentReserve(t *testing.T) {
	mgr := newTestManager(t)

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := mgr.Reserve(1234)
			if err == nil && ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

type failingStore struct {
	store.IStore
}

func (failingStore) Add(uint64) error {
	return store.NewError(store.RetCInternalError, "disk full")
}

func TestAllocateStoreError(t *testing.T) {
	mgr := NewIDManager(failingStore{})
	_, err := mgr.Allocate()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, store.RetCInternalError, store.CodeOf(err))
}

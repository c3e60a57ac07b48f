package lstore

import (
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/dIdx/lib/db"
	"github.com/ValentinKolb/dIdx/lib/db/engines/rbidx"
	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileFactory(dir string) store.DBFactory {
	return func(name string) (db.IndexDB, error) {
		return rbidx.NewIndexDB(&rbidx.DBOptions{Path: filepath.Join(dir, name+".idx"), Name: name})
	}
}

func TestLocalStore(t *testing.T) {
	s, err := NewLocalStore(fileFactory(t.TempDir()), "local")
	require.NoError(t, err)

	require.NoError(t, s.Add(10))
	require.NoError(t, s.Add(20))
	require.NoError(t, s.Add(30))

	err = s.Add(20)
	require.Error(t, err)
	assert.True(t, store.IsDuplicateKey(err))
	assert.Equal(t, store.RetCDuplicateKey, store.CodeOf(err))

	ok, err := s.Has(20)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(20))
	require.NoError(t, s.Delete(20))

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	keys, err := s.Range(0, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 30}, keys)

	dot, err := s.Dump()
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph G {")

	info, err := s.GetDBInfo()
	require.NoError(t, err)
	assert.Equal(t, db.ImplRBIdx, info.DbType)
}

func TestLocalStoreWriteIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewLocalStore(fileFactory(dir), "reopen")
	require.NoError(t, err)
	require.NoError(t, s.Add(1))
	require.NoError(t, s.Add(2))
	require.NoError(t, s.(*storeImpl).db.Close())

	s, err = NewLocalStore(fileFactory(dir), "reopen")
	require.NoError(t, err)
	defer s.(*storeImpl).db.Close()

	ok, err := s.Has(2)
	require.NoError(t, err)
	assert.True(t, ok)
}

package rbidx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/dIdx/lib/db"
	"github.com/ValentinKolb/dIdx/lib/rbtree"
	dbtesting "github.com/ValentinKolb/dIdx/lib/db/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t testing.TB, path string) db.IndexDB {
	t.Helper()
	database, err := NewIndexDB(&DBOptions{Path: path, Timeout: 10 * time.Second})
	require.NoError(t, err)
	return database
}

func newSuiteDB() db.IndexDB {
	database, err := NewIndexDB(nil)
	if err != nil {
		panic(err)
	}
	return database
}

func Test(t *testing.T) {
	dbtesting.RunIndexDBTests(t, "RBIdx", newSuiteDB)
}

func Benchmark(b *testing.B) {
	dbtesting.RunIndexDBBenchmarks(b, "RBIdx", newSuiteDB)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.idx")

	database := newTestDB(t, path)
	for k := uint64(1); k <= 1000; k++ {
		require.NoError(t, database.Add(k*3, k))
	}
	require.NoError(t, database.Delete(3, 1001))
	require.NoError(t, database.Close())

	database = newTestDB(t, path)
	defer database.Close()

	n, err := database.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(999), n)

	keys, err := database.Range(0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{6, 9}, keys)
	require.NoError(t, database.Check())
}

func TestTempFileRemovedOnClose(t *testing.T) {
	database := newTestDB(t, "")
	require.NoError(t, database.Add(1, 1))

	path := database.(*rbidxImpl).path
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, database.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestInfo(t *testing.T) {
	database := newTestDB(t, "")
	defer database.Close()

	for k := uint64(0); k < 200; k++ {
		require.NoError(t, database.Add(k, k))
	}
	info := database.GetInfo()
	assert.Equal(t, db.ImplRBIdx, info.DbType)
	assert.Equal(t, 16384, info.SizeBytes)
	assert.Len(t, info.SupportedFeatures, len(db.AllFeatures))

	raw, err := json.Marshal(info.Metadata)
	require.NoError(t, err)
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, float64(200), meta["keys"])
	assert.Equal(t, float64(24+64*200), meta["occupied_bytes"])
	assert.Equal(t, "ok", meta["invariants"])
	assert.Equal(t, float64(201), meta["leaf_depth"].(map[string]interface{})["count"])
	assert.Equal(t, uint64(199), database.WriteIdx())
}

func TestTimeout(t *testing.T) {
	database, err := NewIndexDB(&DBOptions{Timeout: time.Millisecond})
	require.NoError(t, err)
	defer database.Close()

	// block the owning goroutine on a reader that never delivers
	pr, pw := io.Pipe()
	loadDone := make(chan error, 1)
	go func() { loadDone <- database.Load(pr) }()

	time.Sleep(10 * time.Millisecond)
	_, err = database.Has(1)
	assert.True(t, errors.Is(err, db.ErrTimeout), "got %v", err)

	require.NoError(t, pw.Close())
	assert.Error(t, <-loadDone)
}

func TestSaveIsAscending(t *testing.T) {
	database := newTestDB(t, "")
	defer database.Close()

	for _, k := range []uint64{math.MaxUint64, 5, 1} {
		require.NoError(t, database.Add(k, 7))
	}
	var buf bytes.Buffer
	require.NoError(t, database.Save(&buf))

	raw := buf.Bytes()
	require.Len(t, raw, 8+1+8+8+3*8)
	assert.Equal(t, magicNum, string(raw[:8]))
	assert.Equal(t, byte(rbidxVersion), raw[8])
	assert.Equal(t, []byte{7, 0, 0, 0, 0, 0, 0, 0}, raw[9:17])
	assert.Equal(t, []byte{3, 0, 0, 0, 0, 0, 0, 0}, raw[17:25])
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, raw[25:33])
	assert.Equal(t, []byte{5, 0, 0, 0, 0, 0, 0, 0}, raw[33:41])
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 8), raw[41:49])
}

func TestLoadRejectsUnsortedSnapshot(t *testing.T) {
	database := newTestDB(t, "")
	defer database.Close()

	var buf bytes.Buffer
	buf.WriteString(magicNum)
	buf.WriteByte(rbidxVersion)
	buf.Write(make([]byte, 8))
	buf.Write([]byte{2, 0, 0, 0, 0, 0, 0, 0})
	buf.Write([]byte{9, 0, 0, 0, 0, 0, 0, 0})
	buf.Write([]byte{4, 0, 0, 0, 0, 0, 0, 0})
	require.Error(t, database.Load(&buf))
}

func TestResizeFailureSurfaces(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "broken.idx"))
	require.NoError(t, err)
	tree, err := rbtree.Open[uint64](f)
	require.NoError(t, err)
	database := start(tree, false, &DBOptions{Timeout: 10 * time.Second})
	defer database.Close()

	for k := uint64(1); k <= 60; k++ {
		require.NoError(t, database.Add(k, k))
	}
	// the tree grows into a closed file
	require.NoError(t, f.Close())

	for k := uint64(61); err == nil && k <= 100; k++ {
		err = database.Add(k, k)
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rbtree: resize")
	assert.False(t, errors.Is(err, db.ErrDuplicateKey))

	_, err = database.Len()
	assert.Error(t, err)
	_, err = database.Has(1)
	assert.Error(t, err)
	assert.Error(t, database.Delete(1, 200))
	assert.Error(t, database.Check())
	assert.Equal(t, uint64(63), database.WriteIdx())
}

package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFile(t *testing.T, size int64) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestMapWriteThrough(t *testing.T) {
	f := tempFile(t, 4096)

	data, err := Map(f, 4096)
	require.NoError(t, err)
	require.Len(t, data, 4096)

	copy(data, "hello")
	require.NoError(t, Sync(data))
	require.NoError(t, Unmap(data))

	got, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got[:5]))
}

func TestResizeKeepsPrefix(t *testing.T) {
	f := tempFile(t, 4096)

	data, err := Map(f, 4096)
	require.NoError(t, err)
	data[0], data[4095] = 1, 2

	data, err = Resize(f, data, 8192)
	require.NoError(t, err)
	require.Len(t, data, 8192)
	assert.Equal(t, byte(1), data[0])
	assert.Equal(t, byte(2), data[4095])
	assert.Equal(t, byte(0), data[8191])

	data, err = Resize(f, data, 4096)
	require.NoError(t, err)
	assert.Equal(t, byte(2), data[4095])
	require.NoError(t, Unmap(data))

	st, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(4096), st.Size())
}

func TestMapInvalidSize(t *testing.T) {
	f := tempFile(t, 0)
	_, err := Map(f, 0)
	assert.Error(t, err)
	assert.NoError(t, Unmap(nil))
	assert.NoError(t, Sync(nil))
}

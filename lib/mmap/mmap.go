package mmap

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Map maps the first size bytes of f shared and writable.
// The file must already be at least size bytes long.
func Map(f *os.File, size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Errorf("mmap: invalid size %d", size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap: map %s (%d bytes)", f.Name(), size)
	}
	return data, nil
}

// Unmap releases a mapping returned by Map. A nil slice is a no-op.
func Unmap(data []byte) error {
	if data == nil {
		return nil
	}
	return errors.Wrap(unix.Munmap(data), "mmap: unmap")
}

// Sync flushes dirty pages of the mapping to the file.
func Sync(data []byte) error {
	if data == nil {
		return nil
	}
	return errors.Wrap(unix.Msync(data, unix.MS_SYNC), "mmap: sync")
}

// Resize unmaps data, truncates f to size bytes and maps it again.
// On error the old mapping is already gone and the returned slice is nil.
func Resize(f *os.File, data []byte, size int) ([]byte, error) {
	if err := Unmap(data); err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		return nil, errors.Wrapf(err, "mmap: truncate %s to %d bytes", f.Name(), size)
	}
	return Map(f, size)
}

//go:build !unix

package storage

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// mapFile maps the first size bytes of f read-only.
// The returned release function unmaps the region.
func mapFile(f *os.File, size int64) ([]byte, func() error, error) {
	if size == 0 {
		return nil, func() error { return nil }, nil
	}
	m, err := mmap.MapRegion(f, int(size), mmap.RDONLY, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	return m, m.Unmap, nil
}

func syncDir(string) error { return nil }

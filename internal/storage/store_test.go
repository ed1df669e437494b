package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/KilimcininKorOglu/aodb/internal/metrics"
)

// createTestStore opens a store in a fresh temp directory.
func createTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.aodb")
	s, err := Open(path, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

func appendRaw(t *testing.T, path string, b []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	require.NoError(t, err)
	_, err = f.Write(b)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

// =============================================================================
// Open Tests
// =============================================================================

func TestOpenCreatesHeader(t *testing.T) {
	s, path := createTestStore(t)

	assert.Equal(t, int64(HeaderSize), s.Size())
	assert.Equal(t, path, s.Path())
	assert.Equal(t, int64(HeaderSize), fileSize(t, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, NewFileHeader().Serialize(), raw)
}

func TestOpenPartialHeaderIsReinitialised(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.aodb")
	require.NoError(t, os.WriteFile(path, NewFileHeader().Serialize()[:5], 0644))

	s, err := Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, int64(HeaderSize), s.Size())
}

func TestOpenRejectsForeignFiles(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		wantErr error
	}{
		{"short garbage", []byte("XY"), ErrCorrupt},
		{"bad magic", []byte("NOTADATABASEFILE"), ErrInvalidMagic},
		{"bad checksum", func() []byte {
			b := NewFileHeader().Serialize()
			b[12] ^= 1
			return b
		}(), ErrHeaderChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.aodb")
			require.NoError(t, os.WriteFile(path, tt.content, 0644))

			_, err := Open(path, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
		})
	}
}

// =============================================================================
// Append / Read Tests
// =============================================================================

func TestAppendRead(t *testing.T) {
	s, _ := createTestStore(t)

	off1, err := s.Append(KindNode, []byte("first"))
	require.NoError(t, err)
	off2, err := s.Append(KindVersion, []byte("second"))
	require.NoError(t, err)
	off3, err := s.Append(KindHead, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(HeaderSize), off1)
	assert.Equal(t, off1+RecordHeaderSize+5, off2)
	assert.Equal(t, off2+RecordHeaderSize+6, off3)
	assert.Equal(t, off3+RecordHeaderSize, s.Size())

	kind, payload, err := s.Read(off2)
	require.NoError(t, err)
	assert.Equal(t, KindVersion, kind)
	assert.Equal(t, []byte("second"), payload)

	kind, payload, err = s.Read(off3)
	require.NoError(t, err)
	assert.Equal(t, KindHead, kind)
	assert.Empty(t, payload)
}

func TestReadInvalidOffset(t *testing.T) {
	s, _ := createTestStore(t)
	off, err := s.Append(KindNode, []byte("x"))
	require.NoError(t, err)

	for _, bad := range []int64{-1, 0, HeaderSize - 1, s.Size(), s.Size() + 100} {
		_, _, err := s.Read(bad)
		assert.True(t, errors.Is(err, ErrInvalidOffset), "offset %d: %v", bad, err)
	}

	_, _, err = s.Read(off)
	assert.NoError(t, err)
}

func TestReadDetectsCorruption(t *testing.T) {
	s, path := createTestStore(t)
	off, err := s.Append(KindNode, []byte("payload"))
	require.NoError(t, err)

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{'X'}, off+RecordHeaderSize+1)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, _, err = s.Read(off)
	assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
}

func TestReopenReplaysInOrder(t *testing.T) {
	s, path := createTestStore(t)

	var want []scanned
	for i := 0; i < 10; i++ {
		kind := KindNode
		if i%3 == 0 {
			kind = KindVersion
		}
		p := fmt.Sprintf("rec-%d", i)
		off, err := s.Append(kind, []byte(p))
		require.NoError(t, err)
		want = append(want, scanned{off: off, kind: kind, payload: p})
	}
	size := s.Size()
	require.NoError(t, s.Close())

	var got []scanned
	s2, err := Open(path, collect(&got))
	require.NoError(t, err)
	defer s2.Close()

	assert.Equal(t, want, got)
	assert.Equal(t, size, s2.Size())
}

// =============================================================================
// Recovery Tests
// =============================================================================

func TestOpenTruncatesTornTail(t *testing.T) {
	tests := []struct {
		name string
		tail []byte
	}{
		{"partial frame", []byte{byte(KindNode), 4, 0}},
		{"partial payload", appendRecord(nil, KindNode, []byte("abcdef"))[:RecordHeaderSize+3]},
		{"bad checksum", func() []byte {
			r := appendRecord(nil, KindHead, []byte("12345678"))
			r[RecordHeaderSize] ^= 0x55
			return r
		}()},
		{"zero fill", make([]byte, 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(nil)
			s, path := createTestStore(t)
			_, err := s.Append(KindNode, []byte("kept"))
			require.NoError(t, err)
			good := s.Size()
			require.NoError(t, s.Close())

			appendRaw(t, path, tt.tail)

			var got []scanned
			s2, err := Open(path, collect(&got), WithMetrics(m))
			require.NoError(t, err)
			defer s2.Close()

			require.Len(t, got, 1)
			assert.Equal(t, good, s2.Size())
			assert.Equal(t, good, fileSize(t, path))
			assert.Equal(t, float64(len(tt.tail)), testutil.ToFloat64(m.TruncatedBytes))

			off, err := s2.Append(KindNode, []byte("after"))
			require.NoError(t, err)
			assert.Equal(t, good, off)
		})
	}
}

func TestOpenReadOnlyKeepsTornTail(t *testing.T) {
	s, path := createTestStore(t)
	_, err := s.Append(KindNode, []byte("kept"))
	require.NoError(t, err)
	good := s.Size()
	require.NoError(t, s.Close())

	appendRaw(t, path, []byte{byte(KindNode), 9})

	ro, err := Open(path, nil, WithReadOnly(true))
	require.NoError(t, err)
	defer ro.Close()

	assert.Equal(t, good, ro.Size())
	assert.Equal(t, good+2, fileSize(t, path))
}

func TestOpenFailsOnMidFileCorruption(t *testing.T) {
	s, path := createTestStore(t)
	off, err := s.Append(KindNode, []byte("first"))
	require.NoError(t, err)
	_, err = s.Append(KindNode, []byte("second"))
	require.NoError(t, err)
	_, err = s.Append(KindHead, []byte("12345678"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{'F'}, off+RecordHeaderSize)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(path, nil)
	assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
}

func TestOpenTruncatesDamageAfterLastHead(t *testing.T) {
	m := metrics.New(nil)
	s, path := createTestStore(t)
	_, err := s.Append(KindNode, []byte("committed"))
	require.NoError(t, err)
	_, err = s.Append(KindHead, []byte("12345678"))
	require.NoError(t, err)
	good := s.Size()
	for i := 0; i < 5; i++ {
		_, err = s.Append(KindNode, []byte(fmt.Sprintf("pending-%d", i)))
		require.NoError(t, err)
	}
	total := s.Size()
	require.NoError(t, s.Close())

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteAt(make([]byte, 12), good+5)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	var got []scanned
	s2, err := Open(path, collect(&got), WithMetrics(m))
	require.NoError(t, err)
	defer s2.Close()

	require.Len(t, got, 2)
	assert.Equal(t, KindHead, got[1].kind)
	assert.Equal(t, good, s2.Size())
	assert.Equal(t, good, fileSize(t, path))
	assert.Equal(t, float64(total-good), testutil.ToFloat64(m.TruncatedBytes))
}

func TestOpenReplayErrorAborts(t *testing.T) {
	s, path := createTestStore(t)
	_, err := s.Append(KindVersion, []byte("v"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	boom := errors.New("boom")
	_, err = Open(path, ReplayFunc(func(int64, Kind, []byte) error { return boom }))
	assert.True(t, errors.Is(err, boom))
}

// =============================================================================
// Update Tests
// =============================================================================

func TestUpdateBatch(t *testing.T) {
	s, _ := createTestStore(t)

	var offs []int64
	var hooked bool
	err := s.Update(func(b *Batch) error {
		offs = append(offs, b.Add(KindNode, []byte("a")))
		offs = append(offs, b.Add(KindNode, []byte("bb")))
		offs = append(offs, b.Add(KindVersion, []byte("ccc")))
		assert.Equal(t, 3, b.Len())
		b.Sync()
		b.OnCommit(func() { hooked = true })
		return nil
	})
	require.NoError(t, err)
	assert.True(t, hooked)

	assert.Equal(t, int64(HeaderSize), offs[0])
	assert.Equal(t, offs[0]+RecordHeaderSize+1, offs[1])
	assert.Equal(t, offs[1]+RecordHeaderSize+2, offs[2])

	for i, want := range []string{"a", "bb", "ccc"} {
		_, payload, err := s.Read(offs[i])
		require.NoError(t, err)
		assert.Equal(t, want, string(payload))
	}
}

func TestUpdateErrorWritesNothing(t *testing.T) {
	s, path := createTestStore(t)
	boom := errors.New("boom")

	var hooked bool
	err := s.Update(func(b *Batch) error {
		b.Add(KindNode, []byte("discarded"))
		b.OnCommit(func() { hooked = true })
		return boom
	})
	assert.True(t, errors.Is(err, boom))
	assert.False(t, hooked)
	assert.Equal(t, int64(HeaderSize), s.Size())
	assert.Equal(t, int64(HeaderSize), fileSize(t, path))
}

func TestUpdateWriteErrorRollsBack(t *testing.T) {
	s, path := createTestStore(t)
	_, err := s.Append(KindNode, []byte("kept"))
	require.NoError(t, err)
	good := s.Size()

	diskFull := errors.New("no space left on device")
	writeFile = func(f *os.File, b []byte, off int64) (int, error) {
		n, _ := f.WriteAt(b[:len(b)/2], off)
		return n, diskFull
	}
	t.Cleanup(func() { writeFile = (*os.File).WriteAt })

	_, err = s.Append(KindNode, []byte("partial-record"))
	assert.True(t, errors.Is(err, diskFull))
	assert.False(t, errors.Is(err, ErrFailed))
	assert.Equal(t, good, s.Size())
	assert.Equal(t, good, fileSize(t, path))

	writeFile = (*os.File).WriteAt
	off, err := s.Append(KindNode, []byte("after"))
	require.NoError(t, err)
	assert.Equal(t, good, off)
}

func TestUpdateFailedRollbackRefusesWrites(t *testing.T) {
	s, _ := createTestStore(t)
	good := s.Size()

	diskFull := errors.New("no space left on device")
	readOnlyFS := errors.New("read-only file system")
	writeFile = func(f *os.File, b []byte, off int64) (int, error) {
		n, _ := f.WriteAt(b[:len(b)/2], off)
		return n, diskFull
	}
	truncateFile = func(*os.File, int64) error { return readOnlyFS }
	t.Cleanup(func() {
		writeFile = (*os.File).WriteAt
		truncateFile = (*os.File).Truncate
	})

	var hooked bool
	err := s.Update(func(b *Batch) error {
		b.Add(KindVersion, []byte("lost"))
		b.OnCommit(func() { hooked = true })
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFailed))
	assert.True(t, errors.Is(err, diskFull))
	assert.False(t, hooked)
	assert.Equal(t, good, s.Size())

	writeFile = (*os.File).WriteAt
	truncateFile = (*os.File).Truncate
	_, err = s.Append(KindNode, []byte("refused"))
	assert.True(t, errors.Is(err, ErrFailed))
	assert.Equal(t, good, s.Size())
}

func TestUpdateEmptyBatchRunsHooks(t *testing.T) {
	s, _ := createTestStore(t)
	var hooked bool
	require.NoError(t, s.Update(func(b *Batch) error {
		b.SyncBefore()
		b.OnCommit(func() { hooked = true })
		return nil
	}))
	assert.True(t, hooked)
	assert.Equal(t, int64(HeaderSize), s.Size())
}

func TestAppendMetrics(t *testing.T) {
	m := metrics.New(nil)
	s, _ := createTestStore(t, WithMetrics(m), WithSyncWrites(true))

	_, err := s.Append(KindNode, []byte("12345"))
	require.NoError(t, err)
	_, err = s.Append(KindHead, []byte("123"))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsAppended.WithLabelValues("node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsAppended.WithLabelValues("head")))
	assert.Equal(t, float64(2*RecordHeaderSize+8), testutil.ToFloat64(m.BytesAppended))
	assert.Equal(t, float64(s.Size()), testutil.ToFloat64(m.FileSize))
}

func TestConcurrentAppends(t *testing.T) {
	s, _ := createTestStore(t)

	const writers, perWriter = 8, 50
	var mu sync.Mutex
	offsets := make(map[int64]string)

	var g errgroup.Group
	for w := 0; w < writers; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < perWriter; i++ {
				p := fmt.Sprintf("w%d-%d", w, i)
				off, err := s.Append(KindNode, []byte(p))
				if err != nil {
					return err
				}
				mu.Lock()
				offsets[off] = p
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Len(t, offsets, writers*perWriter)

	for off, want := range offsets {
		_, payload, err := s.Read(off)
		require.NoError(t, err)
		require.Equal(t, want, string(payload))
	}
}

// =============================================================================
// Multi-handle Tests
// =============================================================================

func TestUpdateCatchesUpWithOtherHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.aodb")

	var seenByB []scanned
	a, err := Open(path, nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(path, collect(&seenByB))
	require.NoError(t, err)
	defer b.Close()

	offA, err := a.Append(KindVersion, []byte("from-a"))
	require.NoError(t, err)

	offB, err := b.Append(KindHead, []byte("from-b"))
	require.NoError(t, err)
	assert.Greater(t, offB, offA)

	require.Len(t, seenByB, 1)
	assert.Equal(t, offA, seenByB[0].off)
	assert.Equal(t, "from-a", seenByB[0].payload)

	require.NoError(t, a.Refresh())
	assert.Equal(t, b.Size(), a.Size())
	_, payload, err := a.Read(offB)
	require.NoError(t, err)
	assert.Equal(t, "from-b", string(payload))
}

// =============================================================================
// Mode Tests
// =============================================================================

func TestReadOnly(t *testing.T) {
	s, path := createTestStore(t)
	off, err := s.Append(KindNode, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ro, err := Open(path, nil, WithReadOnly(true))
	require.NoError(t, err)
	defer ro.Close()

	assert.True(t, ro.ReadOnly())
	_, payload, err := ro.Read(off)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), payload)

	_, err = ro.Append(KindNode, []byte("y"))
	assert.True(t, errors.Is(err, ErrReadOnly))
	assert.NoError(t, ro.Sync())
}

func TestReadOnlyMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.aodb"), nil, WithReadOnly(true), WithNoLock(true))
	assert.Error(t, err)
}

func TestClosed(t *testing.T) {
	s, _ := createTestStore(t)
	off, err := s.Append(KindNode, []byte("x"))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, _, err = s.Read(off)
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = s.Append(KindNode, []byte("y"))
	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, errors.Is(s.Sync(), ErrClosed))
	assert.True(t, errors.Is(s.Refresh(), ErrClosed))
}

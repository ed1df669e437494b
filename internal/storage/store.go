package storage

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"

	"github.com/KilimcininKorOglu/aodb/internal/logging"
	"github.com/KilimcininKorOglu/aodb/internal/metrics"
)

// Store errors.
var (
	ErrClosed        = errors.New("store is closed")
	ErrReadOnly      = errors.New("store is read-only")
	ErrCorrupt       = errors.New("store is corrupt")
	ErrInvalidOffset = errors.New("offset does not address a record")
	ErrTooLarge      = errors.New("record payload too large")
	ErrFailed        = errors.New("store failed to roll back a write")
)

// File operations on the write path, replaced in tests.
var (
	writeFile    = (*os.File).WriteAt
	truncateFile = (*os.File).Truncate
)

// Store is an append-only file of framed records.
type Store struct {
	path string
	file *os.File
	lock *flock.Flock
	opts Options
	log  logging.Logger
	m    *metrics.Metrics

	replay Replayer

	// mu serialises Update within the process. The file lock does the same
	// across processes.
	mu sync.Mutex
	// dirty is set when bytes may have reached the file without an fsync.
	dirty bool
	// failed holds the error that left bytes past size on disk. Writes are
	// refused once it is set.
	failed error

	// size is the end of the last complete record known to this handle.
	size   atomic.Int64
	closed atomic.Bool
}

// Open opens or creates the database file at path. Every complete record is
// passed to r in file order before Open returns; r may be nil.
func Open(path string, r Replayer, opts ...Option) (*Store, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.fill()

	s := &Store{
		path:   path,
		opts:   o,
		log:    o.Logger.WithFields("component", "store", "path", path),
		m:      o.Metrics,
		replay: r,
	}

	if !o.NoLock {
		s.lock = flock.New(path + ".lock")
		var err error
		if o.ReadOnly {
			err = s.lock.RLock()
		} else {
			err = s.lock.Lock()
		}
		if err != nil {
			return nil, errors.Wrapf(err, "lock %s", path)
		}
		defer s.lock.Unlock()
	}

	flag := os.O_RDWR | os.O_CREATE
	if o.ReadOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	s.file = f

	if err := s.load(); err != nil {
		f.Close()
		return nil, err
	}

	s.log.Info("store opened", "size", s.size.Load(), "read_only", o.ReadOnly)
	return s, nil
}

// load initialises an empty file or validates and scans an existing one.
func (s *Store) load() error {
	info, err := s.file.Stat()
	if err != nil {
		return errors.Wrap(err, "stat")
	}
	size := info.Size()

	if size < HeaderSize {
		head := make([]byte, size)
		if _, err := s.file.ReadAt(head, 0); err != nil && err != io.EOF {
			return errors.Wrap(err, "read header")
		}
		if !isHeaderPrefix(head) {
			return errors.Wrapf(ErrCorrupt, "file too short for header (%d bytes)", size)
		}
		if s.opts.ReadOnly {
			return errors.Wrap(ErrReadOnly, "database not initialised")
		}
		return s.create(size)
	}

	buf := make([]byte, HeaderSize)
	if _, err := s.file.ReadAt(buf, 0); err != nil {
		return errors.Wrap(err, "read header")
	}
	var h FileHeader
	if err := h.Deserialize(buf); err != nil {
		return errors.Mark(err, ErrCorrupt)
	}
	if err := h.Validate(); err != nil {
		return errors.Mark(err, ErrCorrupt)
	}

	data, release, err := mapFile(s.file, size)
	if err != nil {
		return errors.Wrap(err, "map file")
	}
	end, err := scanRecords(data, 0, HeaderSize, s.replay)
	if rerr := release(); rerr != nil && err == nil {
		err = errors.Wrap(rerr, "unmap file")
	}
	if err != nil {
		return err
	}

	if end < size {
		torn := size - end
		if s.opts.ReadOnly {
			s.log.Warn("ignoring incomplete tail", "offset", end, "bytes", torn)
		} else {
			if err := s.truncate(end); err != nil {
				return err
			}
			s.log.Warn("truncated incomplete tail", "offset", end, "bytes", torn)
			s.m.TruncatedBytes.Add(float64(torn))
		}
	}

	s.size.Store(end)
	s.m.FileSize.Set(float64(end))
	return nil
}

// create writes a fresh header over whatever prefix a crashed creation left.
func (s *Store) create(prev int64) error {
	if prev > 0 {
		if err := s.file.Truncate(0); err != nil {
			return errors.Wrap(err, "reset partial header")
		}
	}
	if _, err := s.file.WriteAt(NewFileHeader().Serialize(), 0); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := s.file.Sync(); err != nil {
		return errors.Wrap(err, "sync header")
	}
	if err := syncDir(filepath.Dir(s.path)); err != nil {
		return errors.Wrap(err, "sync directory")
	}
	s.size.Store(HeaderSize)
	s.m.FileSize.Set(HeaderSize)
	s.log.Info("created database file")
	return nil
}

func (s *Store) truncate(end int64) error {
	if err := s.file.Truncate(end); err != nil {
		return errors.Wrapf(err, "truncate to %d", end)
	}
	if err := datasync(s.file); err != nil {
		return errors.Wrap(err, "sync after truncate")
	}
	return nil
}

// catchUp replays records other processes appended past this handle's end.
// The caller holds the file lock, so no foreign append is in flight and any
// incomplete tail belongs to a writer that crashed.
func (s *Store) catchUp() error {
	info, err := s.file.Stat()
	if err != nil {
		return errors.Wrap(err, "stat")
	}
	known := s.size.Load()
	size := info.Size()
	switch {
	case size == known:
		return nil
	case size < known:
		return errors.Wrapf(ErrCorrupt, "file shrank from %d to %d bytes", known, size)
	}

	buf := make([]byte, size-known)
	if _, err := s.file.ReadAt(buf, known); err != nil && err != io.EOF {
		return errors.Wrap(err, "read foreign records")
	}
	end, err := scanRecords(buf, known, known, s.replay)
	if err != nil {
		return err
	}
	if end < size && !s.opts.ReadOnly {
		if err := s.truncate(end); err != nil {
			return err
		}
		s.log.Warn("truncated incomplete tail", "offset", end, "bytes", size-end)
		s.m.TruncatedBytes.Add(float64(size - end))
	}
	if end > known {
		s.log.Debug("replayed foreign records", "from", known, "to", end)
	}
	s.dirty = true
	s.size.Store(end)
	s.m.FileSize.Set(float64(end))
	return nil
}

// Refresh replays records appended by other processes since the last Update
// or Refresh on this handle.
func (s *Store) Refresh() error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock != nil {
		var err error
		if s.opts.ReadOnly {
			err = s.lock.RLock()
		} else {
			err = s.lock.Lock()
		}
		if err != nil {
			return errors.Wrap(err, "lock")
		}
		defer s.lock.Unlock()
	}
	return s.catchUp()
}

// Update runs fn with exclusive write access to the file and appends the
// records fn staged on the batch. If fn returns an error nothing is written.
// Hooks registered with Batch.OnCommit run after a successful write while the
// locks are still held.
func (s *Store) Update(fn func(b *Batch) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.opts.ReadOnly {
		return ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	if s.failed != nil {
		return s.failed
	}

	if s.lock != nil {
		if err := s.lock.Lock(); err != nil {
			return errors.Wrap(err, "lock")
		}
		defer s.lock.Unlock()
	}

	if err := s.catchUp(); err != nil {
		return err
	}

	b := &Batch{base: s.size.Load()}
	if err := fn(b); err != nil {
		return err
	}
	if b.err != nil {
		return b.err
	}

	if b.syncBefore && s.dirty {
		if err := datasync(s.file); err != nil {
			return errors.Wrap(err, "sync before write")
		}
		s.dirty = false
	}

	if len(b.buf) > 0 {
		if err := s.write(b); err != nil {
			return err
		}
	}

	for _, hook := range b.hooks {
		hook()
	}
	return nil
}

func (s *Store) write(b *Batch) error {
	if _, err := writeFile(s.file, b.buf, b.base); err != nil {
		return s.rollback(b.base, errors.Wrapf(err, "append %d bytes at %d", len(b.buf), b.base))
	}
	s.dirty = true

	if b.sync || s.opts.SyncWrites {
		if err := datasync(s.file); err != nil {
			return s.rollback(b.base, errors.Wrap(err, "sync"))
		}
		s.dirty = false
	}

	end := b.End()
	s.size.Store(end)
	for _, r := range b.records {
		s.m.ObserveAppend(r.kind.String(), r.size)
	}
	s.m.FileSize.Set(float64(end))
	return nil
}

// rollback drops whatever part of a failed batch reached the file. If that
// fails too the store is marked failed.
func (s *Store) rollback(base int64, cause error) error {
	terr := truncateFile(s.file, base)
	if terr == nil {
		return cause
	}
	s.failed = errors.Mark(errors.CombineErrors(cause, errors.Wrapf(terr, "roll back to %d", base)), ErrFailed)
	s.log.Error("write rollback failed, refusing further writes", "offset", base, "error", s.failed)
	return s.failed
}

// Append writes one record and returns its offset.
func (s *Store) Append(kind Kind, payload []byte) (int64, error) {
	var off int64
	err := s.Update(func(b *Batch) error {
		off = b.Add(kind, payload)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return off, nil
}

// Read returns the kind and payload of the record at off.
func (s *Store) Read(off int64) (Kind, []byte, error) {
	if s.closed.Load() {
		return 0, nil, ErrClosed
	}
	end := s.size.Load()
	if off < HeaderSize || off+RecordHeaderSize > end {
		return 0, nil, errors.Wrapf(ErrInvalidOffset, "offset %d outside [%d, %d)", off, HeaderSize, end)
	}

	var hdr [RecordHeaderSize]byte
	if _, err := s.file.ReadAt(hdr[:], off); err != nil {
		return 0, nil, errors.Wrapf(err, "read record header at %d", off)
	}
	f := parseFrame(hdr[:])
	if !f.kind.Valid() {
		return 0, nil, errors.Wrapf(ErrCorrupt, "unknown record kind %#x at offset %d", byte(f.kind), off)
	}
	if off+f.size() > end {
		return 0, nil, errors.Wrapf(ErrCorrupt, "record at offset %d runs past end of file", off)
	}

	payload := make([]byte, f.length)
	if _, err := s.file.ReadAt(payload, off+RecordHeaderSize); err != nil {
		return 0, nil, errors.Wrapf(err, "read record payload at %d", off)
	}
	if recordChecksum(f.kind, payload) != f.crc {
		return 0, nil, errors.Wrapf(ErrCorrupt, "checksum mismatch at offset %d", off)
	}
	return f.kind, payload, nil
}

// Sync flushes everything appended so far to stable storage.
func (s *Store) Sync() error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.ReadOnly || !s.dirty {
		return nil
	}
	if err := datasync(s.file); err != nil {
		return errors.Wrap(err, "sync")
	}
	s.dirty = false
	return nil
}

// Size returns the end offset of the last complete record.
func (s *Store) Size() int64 {
	return s.size.Load()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ReadOnly reports whether the store was opened read-only.
func (s *Store) ReadOnly() bool {
	return s.opts.ReadOnly
}

// Close syncs and closes the file. Closing twice is a no-op.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if !s.opts.ReadOnly && s.dirty {
		err = datasync(s.file)
	}
	if cerr := s.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	s.log.Info("store closed", "size", s.size.Load())
	return err
}

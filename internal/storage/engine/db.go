package engine

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/aodb/internal/data"
	"github.com/KilimcininKorOglu/aodb/internal/logging"
	"github.com/KilimcininKorOglu/aodb/internal/metrics"
	"github.com/KilimcininKorOglu/aodb/internal/storage"
	"github.com/KilimcininKorOglu/aodb/internal/storage/btree"
	"github.com/KilimcininKorOglu/aodb/internal/storage/changeset"
	"github.com/KilimcininKorOglu/aodb/internal/storage/mvcc"
	"github.com/KilimcininKorOglu/aodb/internal/storage/tx"
)

// Version identifies one immutable state of the database.
type Version = mvcc.Version

// Record is one key/value pair returned by an iterator.
type Record = btree.Record

// Origin is the empty version every database starts from.
const Origin = mvcc.Origin

// Engine errors.
var (
	ErrClosed = errors.New("database is closed")
)

// DB is an append-only multi-version key/value database. All methods are
// safe for concurrent use.
type DB struct {
	store     *storage.Store
	tree      *btree.Tree
	versions  *mvcc.Manager
	committer *tx.Committer

	opts   Options
	log    logging.Logger
	m      *metrics.Metrics
	closed atomic.Bool
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*DB, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New(nil)
	}

	db := &DB{
		opts:     o,
		log:      o.Logger.WithFields("component", "engine"),
		m:        o.Metrics,
		versions: mvcc.NewManager(),
	}

	// 1. Open the store, replaying every version and head record into the index
	store, err := storage.Open(path, db.versions, o.storageOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	db.store = store

	// 2. Build the tree reader over the store
	tree, err := btree.New(store, o.treeOptions())
	if err != nil {
		store.Close()
		return nil, errors.Wrap(err, "create tree")
	}
	db.tree = tree

	// 3. Wire the commit protocol
	db.committer = tx.NewCommitter(store, db.versions, o.Logger, o.Metrics)

	db.m.CurrentVersion.Set(float64(db.versions.Current()))
	db.log.Info("database opened",
		"path", path,
		"versions", db.versions.Len(),
		"current", int64(db.versions.Current()),
	)
	return db, nil
}

// Close releases the database file. Versions not yet committed remain in the
// file but are no longer reachable as current. Closing twice is a no-op.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := db.store.Close(); err != nil {
		return errors.Wrap(err, "close store")
	}
	db.log.Info("database closed")
	return nil
}

// Current returns the most recently committed version.
func (db *DB) Current() Version {
	return db.versions.Current()
}

// Refresh picks up versions and commits appended by other processes.
func (db *DB) Refresh() error {
	if db.closed.Load() {
		return ErrClosed
	}
	if err := db.store.Refresh(); err != nil {
		return err
	}
	db.m.CurrentVersion.Set(float64(db.versions.Current()))
	return nil
}

// Commit makes v the current version if v is based on the current version.
// It returns false when a concurrent commit won and v does not include it.
func (db *DB) Commit(v Version) (bool, error) {
	if db.closed.Load() {
		return false, ErrClosed
	}
	return db.committer.Commit(v)
}

// root resolves v to its tree root.
func (db *DB) root(v Version) (int64, error) {
	if db.closed.Load() {
		return 0, ErrClosed
	}
	return db.versions.Root(v)
}

// Has reports whether key is present in version v.
func (db *DB) Has(v Version, key []byte) (bool, error) {
	root, err := db.root(v)
	if err != nil {
		return false, err
	}
	return db.tree.Has(root, key)
}

// Get returns a copy of the value stored under key in version v.
func (db *DB) Get(v Version, key []byte) ([]byte, bool, error) {
	root, err := db.root(v)
	if err != nil {
		return nil, false, err
	}
	val, ok, err := db.tree.Get(root, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return data.Clone(val), true, nil
}

// Set returns a new version equal to v with key bound to value.
func (db *DB) Set(v Version, key, value []byte) (Version, error) {
	root, err := db.root(v)
	if err != nil {
		return 0, err
	}
	b := db.tree.Begin(root)
	if err := b.Set(key, value); err != nil {
		return 0, err
	}
	return db.mint(v, b)
}

// Del returns a new version equal to v without key. If key is absent v is
// returned and nothing is written.
func (db *DB) Del(v Version, key []byte) (Version, error) {
	root, err := db.root(v)
	if err != nil {
		return 0, err
	}
	b := db.tree.Begin(root)
	found, err := b.Delete(key)
	if err != nil {
		return 0, err
	}
	if !found {
		return v, nil
	}
	return db.mint(v, b)
}

// Apply returns a single new version equal to v with every change in cs
// applied. If no change alters the tree v is returned.
func (db *DB) Apply(v Version, cs *changeset.Changeset) (Version, error) {
	root, err := db.root(v)
	if err != nil {
		return 0, err
	}
	b := db.tree.Begin(root)
	cs.Ascend(func(c changeset.Change) bool {
		if c.Remove {
			_, err = b.Delete(c.Key)
		} else {
			err = b.Set(c.Key, c.Value)
		}
		return err == nil
	})
	if err != nil {
		return 0, err
	}
	if !b.Changed() {
		return v, nil
	}
	return db.mint(v, b)
}

// mint writes the staged nodes of b followed by a version record whose
// parent is parent, in one batch.
func (db *DB) mint(parent Version, b *btree.Builder) (Version, error) {
	var v Version
	err := db.store.Update(func(batch *storage.Batch) error {
		root := b.Flush(batch)
		v = Version(batch.Add(storage.KindVersion, mvcc.EncodeVersion(parent, root)))
		batch.OnCommit(func() {
			if err := db.versions.Register(v, root, parent); err != nil {
				db.log.Error("register version", "version", int64(v), "error", err)
				return
			}
			db.m.VersionsCreated.Inc()
		})
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "write version based on %d", parent)
	}
	db.log.Debug("version created", "version", int64(v), "parent", int64(parent))
	return v, nil
}

// IsBasedOn reports whether ancestor is v or one of its ancestors.
func (db *DB) IsBasedOn(v, ancestor Version) (bool, error) {
	if db.closed.Load() {
		return false, ErrClosed
	}
	return db.versions.IsBasedOn(v, ancestor)
}

// PreviousVersion returns the parent of v. The origin is its own parent.
func (db *DB) PreviousVersion(v Version) (Version, error) {
	if db.closed.Load() {
		return 0, ErrClosed
	}
	return db.versions.Previous(v)
}

// Log returns v and its ancestors, nearest first, at most limit entries when
// limit > 0. The origin is not included.
func (db *DB) Log(v Version, limit int) ([]Version, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	return db.versions.Chain(v, limit)
}

// Stats describes one version.
type Stats struct {
	Version Version
	Parent  Version
	Depth   int
	Root    int64
	btree.Stats
}

// Stats walks the tree of version v.
func (db *DB) Stats(v Version) (Stats, error) {
	root, err := db.root(v)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{Version: v, Root: root}
	if s.Parent, err = db.versions.Previous(v); err != nil {
		return Stats{}, err
	}
	if s.Depth, err = db.versions.Depth(v); err != nil {
		return Stats{}, err
	}
	if s.Stats, err = db.tree.Stats(root); err != nil {
		return Stats{}, err
	}
	return s, nil
}

// Check verifies the structure of the tree of version v.
func (db *DB) Check(v Version) error {
	root, err := db.root(v)
	if err != nil {
		return err
	}
	return db.tree.Check(root, false)
}

// FileSize returns the number of bytes of complete records in the file.
func (db *DB) FileSize() int64 {
	return db.store.Size()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.store.Path()
}

// Versions returns the number of versions in the file, not counting the
// origin.
func (db *DB) Versions() int {
	return db.versions.Len()
}

package aodb

import (
	"github.com/KilimcininKorOglu/aodb/internal/data"
	"github.com/KilimcininKorOglu/aodb/internal/logging"
	"github.com/KilimcininKorOglu/aodb/internal/metrics"
	"github.com/KilimcininKorOglu/aodb/internal/storage"
	"github.com/KilimcininKorOglu/aodb/internal/storage/changeset"
	"github.com/KilimcininKorOglu/aodb/internal/storage/engine"
	"github.com/KilimcininKorOglu/aodb/internal/storage/mvcc"
)

type (
	// DB is an open database.
	DB = engine.DB
	// Version identifies one immutable state of the database.
	Version = engine.Version
	// Record is a key/value pair returned by an Iterator.
	Record = engine.Record
	// Iterator walks one version in key order.
	Iterator = engine.Iterator
	// Txn is a mutable handle over the version API.
	Txn = engine.Txn
	// Stats describes one version's tree.
	Stats = engine.Stats
	// Changeset batches mutations into a single version.
	Changeset = changeset.Changeset
	// Option configures Open.
	Option = engine.Option
	// Options is the full option set.
	Options = engine.Options
	// Logger is the structured logger accepted by WithLogger.
	Logger = logging.Logger
	// Metrics is the collector set accepted by WithMetrics.
	Metrics = metrics.Metrics
)

// Origin is the empty version every database starts from.
const Origin = engine.Origin

// Errors callers may test for with errors.Is.
var (
	ErrClosed         = engine.ErrClosed
	ErrConflict       = engine.ErrConflict
	ErrInvalidVersion = mvcc.ErrInvalidVersion
	ErrCorrupt        = storage.ErrCorrupt
	ErrReadOnly       = storage.ErrReadOnly
	ErrFailed         = storage.ErrFailed
)

// Open opens or creates the database file at path.
func Open(path string, opts ...Option) (*DB, error) {
	return engine.Open(path, opts...)
}

// NewChangeset returns an empty changeset for DB.Apply.
func NewChangeset() *Changeset {
	return changeset.New()
}

// DataLess reports whether a sorts before b in key order.
func DataLess(a, b []byte) bool {
	return data.Less(a, b)
}

// Option constructors.
var (
	WithSyncWrites = engine.WithSyncWrites
	WithReadOnly   = engine.WithReadOnly
	WithNoLock     = engine.WithNoLock
	WithFanOut     = engine.WithFanOut
	WithCacheSize  = engine.WithCacheSize
	WithLogger     = engine.WithLogger
	WithMetrics    = engine.WithMetrics
)

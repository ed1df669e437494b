package engine

import (
	"github.com/KilimcininKorOglu/aodb/internal/logging"
	"github.com/KilimcininKorOglu/aodb/internal/metrics"
	"github.com/KilimcininKorOglu/aodb/internal/storage"
	"github.com/KilimcininKorOglu/aodb/internal/storage/btree"
)

// Options configures a database.
type Options struct {
	// SyncWrites fsyncs after every set, del and apply as well as on commit.
	// Default: false; commits always sync.
	SyncWrites bool

	// ReadOnly opens an existing database without writing to it.
	ReadOnly bool

	// NoLock skips the cross-process file lock.
	NoLock bool

	// MaxLeafKeys and MaxChildren bound node fan-out for new nodes.
	// Default: 64 each.
	MaxLeafKeys int
	MaxChildren int

	// CacheSize is the number of decoded nodes kept in memory.
	// Default: 4096; negative disables the cache.
	CacheSize int

	// Logger receives engine events. Default: no-op.
	Logger logging.Logger

	// Metrics receives engine counters. Default: unregistered collectors.
	Metrics *metrics.Metrics
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		MaxLeafKeys: btree.DefaultMaxLeafKeys,
		MaxChildren: btree.DefaultMaxChildren,
		CacheSize:   btree.DefaultCacheSize,
	}
}

// WithSyncWrites sets Options.SyncWrites.
func WithSyncWrites(sync bool) Option {
	return func(o *Options) { o.SyncWrites = sync }
}

// WithReadOnly sets Options.ReadOnly.
func WithReadOnly(readOnly bool) Option {
	return func(o *Options) { o.ReadOnly = readOnly }
}

// WithNoLock sets Options.NoLock.
func WithNoLock(noLock bool) Option {
	return func(o *Options) { o.NoLock = noLock }
}

// WithFanOut sets the node capacity limits.
func WithFanOut(maxLeafKeys, maxChildren int) Option {
	return func(o *Options) {
		o.MaxLeafKeys = maxLeafKeys
		o.MaxChildren = maxChildren
	}
}

// WithCacheSize sets Options.CacheSize.
func WithCacheSize(n int) Option {
	return func(o *Options) { o.CacheSize = n }
}

// WithLogger sets Options.Logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics sets Options.Metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

func (o Options) storageOptions() []storage.Option {
	return []storage.Option{
		storage.WithSyncWrites(o.SyncWrites),
		storage.WithReadOnly(o.ReadOnly),
		storage.WithNoLock(o.NoLock),
		storage.WithLogger(o.Logger),
		storage.WithMetrics(o.Metrics),
	}
}

func (o Options) treeOptions() btree.Options {
	return btree.Options{
		MaxLeafKeys: o.MaxLeafKeys,
		MaxChildren: o.MaxChildren,
		CacheSize:   o.CacheSize,
		Metrics:     o.Metrics,
	}
}

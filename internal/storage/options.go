package storage

import (
	"github.com/KilimcininKorOglu/aodb/internal/logging"
	"github.com/KilimcininKorOglu/aodb/internal/metrics"
)

// Options configures a Store.
type Options struct {
	// SyncWrites fsyncs the file after every batch.
	// Default: false. Batches that ask for Sync are always synced.
	SyncWrites bool

	// ReadOnly opens an existing file without writing to it. Torn tails are
	// ignored instead of truncated and Update returns ErrReadOnly.
	// Default: false.
	ReadOnly bool

	// NoLock skips the cross-process advisory lock. Only safe when a single
	// process ever opens the file.
	// Default: false.
	NoLock bool

	// Logger receives open, recovery and close events.
	// Default: no-op logger.
	Logger logging.Logger

	// Metrics receives append and recovery counters.
	// Default: unregistered collectors.
	Metrics *metrics.Metrics
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{}
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

// WithLogger sets Options.Logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics sets Options.Metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

func (o *Options) fill() {
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New(nil)
	}
}

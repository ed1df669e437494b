package config

import (
	"github.com/KilimcininKorOglu/aodb/internal/logging"
	"github.com/KilimcininKorOglu/aodb/internal/metrics"
	"github.com/KilimcininKorOglu/aodb/internal/storage/engine"
)

// Config holds the complete configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Logging LogConfig     `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StorageConfig holds database file and engine configuration.
type StorageConfig struct {
	Path        string `yaml:"path"`
	SyncWrites  bool   `yaml:"syncWrites"`
	ReadOnly    bool   `yaml:"readOnly"`
	NoLock      bool   `yaml:"noLock"`
	CacheSize   int    `yaml:"cacheSize"`
	MaxLeafKeys int    `yaml:"maxLeafKeys"`
	MaxChildren int    `yaml:"maxChildren"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig holds metrics configuration. When enabled, collectors are
// registered on a private registry and written to Textfile in the Prometheus
// text format when the process finishes.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
}

// LoggerConfig converts the logging section.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// EngineOptions converts the storage section into engine options. log and m
// may be nil.
func (c *Config) EngineOptions(log logging.Logger, m *metrics.Metrics) []engine.Option {
	opts := []engine.Option{
		engine.WithSyncWrites(c.Storage.SyncWrites),
		engine.WithReadOnly(c.Storage.ReadOnly),
		engine.WithNoLock(c.Storage.NoLock),
		engine.WithFanOut(c.Storage.MaxLeafKeys, c.Storage.MaxChildren),
		engine.WithCacheSize(c.Storage.CacheSize),
	}
	if log != nil {
		opts = append(opts, engine.WithLogger(log))
	}
	if m != nil {
		opts = append(opts, engine.WithMetrics(m))
	}
	return opts
}

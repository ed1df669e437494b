package config

import (
	"github.com/KilimcininKorOglu/aodb/internal/storage/btree"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "data.aodb"

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:        DefaultPath,
			SyncWrites:  false,
			ReadOnly:    false,
			NoLock:      false,
			CacheSize:   btree.DefaultCacheSize,
			MaxLeafKeys: btree.DefaultMaxLeafKeys,
			MaxChildren: btree.DefaultMaxChildren,
		},
		Logging: LogConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

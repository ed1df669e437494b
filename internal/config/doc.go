// Package config loads aodb configuration.
//
// # Overview
//
// Configuration comes from three layers, later layers winning:
//
//   - Defaults from DefaultConfig
//   - A YAML file, with ${VAR} and ${VAR:-default} expanded from the environment
//   - AODB_* environment variables
//
// # Configuration Structure
//
//	type Config struct {
//	    Storage StorageConfig // Database file and engine tuning
//	    Logging LogConfig     // Logger level, format and output
//	    Metrics MetricsConfig // Prometheus collectors
//	}
//
// # Loading Configuration
//
//	cfg, err := config.LoadConfig("/etc/aodb/aodb.yaml")
//	if err != nil {
//	    return err
//	}
//	cfg.ApplyEnv()
//	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
//	    return errs[0]
//	}
//	db, err := engine.Open(cfg.Storage.Path, cfg.EngineOptions(log, m)...)
//
// # Example File
//
//	storage:
//	  path: /var/lib/aodb/data.aodb
//	  syncWrites: false
//	  cacheSize: 4096
//	  maxLeafKeys: 64
//	  maxChildren: 64
//	logging:
//	  level: info
//	  format: json
//	  output: stderr
//	metrics:
//	  enabled: true
//	  textfile: /var/lib/node_exporter/aodb.prom
//
// # Environment Variables
//
//	AODB_PATH             storage.path
//	AODB_SYNC_WRITES      storage.syncWrites
//	AODB_READ_ONLY        storage.readOnly
//	AODB_NO_LOCK          storage.noLock
//	AODB_CACHE_SIZE       storage.cacheSize
//	AODB_LOG_LEVEL        logging.level
//	AODB_LOG_FORMAT       logging.format
//	AODB_LOG_OUTPUT       logging.output
//	AODB_METRICS_ENABLED  metrics.enabled
//	AODB_METRICS_TEXTFILE metrics.textfile
package config

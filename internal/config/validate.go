package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KilimcininKorOglu/aodb/internal/storage/btree"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error
	errs = append(errs, validateStorageConfig(&config.Storage)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)
	errs = append(errs, validateMetricsConfig(&config.Metrics)...)
	return errs
}

// validateStorageConfig validates storage configuration.
func validateStorageConfig(config *StorageConfig) []error {
	var errs []error

	if config.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.path",
			Message: "database path is required",
		})
	} else if info, err := os.Stat(config.Path); err == nil && info.IsDir() {
		errs = append(errs, ValidationError{
			Field:   "storage.path",
			Message: "must be a file, not a directory",
		})
	}

	// Zero means default for the fan-out limits.
	if config.MaxLeafKeys != 0 && config.MaxLeafKeys < btree.MinMaxLeafKeys {
		errs = append(errs, ValidationError{
			Field:   "storage.maxLeafKeys",
			Message: fmt.Sprintf("must be at least %d", btree.MinMaxLeafKeys),
		})
	}
	if config.MaxChildren != 0 && config.MaxChildren < btree.MinMaxChildren {
		errs = append(errs, ValidationError{
			Field:   "storage.maxChildren",
			Message: fmt.Sprintf("must be at least %d", btree.MinMaxChildren),
		})
	}

	if config.ReadOnly && config.SyncWrites {
		errs = append(errs, ValidationError{
			Field:   "storage.syncWrites",
			Message: "cannot be set on a read-only database",
		})
	}

	return errs
}

// validateLogConfig validates logging configuration.
func validateLogConfig(config *LogConfig) []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if config.Level != "" && !validLevels[strings.ToLower(config.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be debug, info, warn, or error",
		})
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if config.Format != "" && !validFormats[strings.ToLower(config.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}

	if config.Output != "" && config.Output != "stdout" && config.Output != "stderr" {
		if msg := validateFilePath(config.Output); msg != "" {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: msg,
			})
		}
	}

	return errs
}

// validateMetricsConfig validates metrics configuration.
func validateMetricsConfig(config *MetricsConfig) []error {
	if !config.Enabled {
		return nil
	}
	if config.Textfile == "" {
		return []error{ValidationError{
			Field:   "metrics.textfile",
			Message: "is required when metrics are enabled",
		}}
	}
	if msg := validateFilePath(config.Textfile); msg != "" {
		return []error{ValidationError{
			Field:   "metrics.textfile",
			Message: msg,
		}}
	}
	return nil
}

// validateFilePath returns a message if path is not an absolute path in an
// existing directory.
func validateFilePath(path string) string {
	if !filepath.IsAbs(path) {
		return "must be an absolute file path"
	}
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Sprintf("directory %s does not exist", dir)
	}
	return ""
}

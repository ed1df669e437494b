package config

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Parser errors.
var (
	ErrInvalidYAML  = errors.New("invalid YAML format")
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidEnv   = errors.New("invalid environment override")
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AODB_"

// LoadConfig loads configuration from a file path.
// It reads the file, substitutes environment variables, parses YAML,
// and applies defaults for missing values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrFileNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML data.
// Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	data = substituteEnvVars(data)

	config := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document decodes to io.EOF.
	if err := dec.Decode(config); err != nil && err != io.EOF {
		return nil, errors.Mark(errors.Wrap(err, "decode"), ErrInvalidYAML)
	}
	return config, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment variable values.
func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		content := string(match[2 : len(match)-1])

		if name, def, ok := strings.Cut(content, ":-"); ok {
			if val := os.Getenv(name); val != "" {
				return []byte(val)
			}
			return []byte(def)
		}
		return []byte(os.Getenv(content))
	})
}

// ApplyEnv overrides fields from AODB_* environment variables.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	boolean := func(name string, dst *bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, errors.Wrapf(ErrInvalidEnv, "%s%s=%q", EnvPrefix, name, v))
			return
		}
		*dst = b
	}
	integer := func(name string, dst *int) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, errors.Wrapf(ErrInvalidEnv, "%s%s=%q", EnvPrefix, name, v))
			return
		}
		*dst = n
	}

	str("PATH", &c.Storage.Path)
	boolean("SYNC_WRITES", &c.Storage.SyncWrites)
	boolean("READ_ONLY", &c.Storage.ReadOnly)
	boolean("NO_LOCK", &c.Storage.NoLock)
	integer("CACHE_SIZE", &c.Storage.CacheSize)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("LOG_OUTPUT", &c.Logging.Output)
	boolean("METRICS_ENABLED", &c.Metrics.Enabled)
	str("METRICS_TEXTFILE", &c.Metrics.Textfile)

	return errors.Join(errs...)
}

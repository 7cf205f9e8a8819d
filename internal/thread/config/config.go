// Package config loads the runtime configuration from defaults, an
// optional YAML file and environment variables, in that order of
// increasing precedence.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"

	"github.com/kolkov/gothread/internal/thread/lockcheck"
)

// Environment variables read by Load.
const (
	EnvConfig          = "GOTHREAD_CONFIG"
	EnvDebug           = "GOTHREAD_DEBUG"
	EnvLogLevel        = "LOG_LEVEL"
	EnvStackSize       = "GOTHREAD_STACK_SIZE"
	EnvDeadlockTimeout = "GOTHREAD_DEADLOCK_TIMEOUT"
)

// Error sink destinations besides a file path.
const (
	SinkStderr = "stderr"
	SinkStdout = "stdout"
)

// Config holds all of the configurable options. Fields are PascalCase here
// and camelCase in the YAML file.
type Config struct {
	// Debug enables lifecycle logging.
	Debug bool `yaml:"debug,omitempty"`

	// LogLevel overrides the level used when Debug is set.
	LogLevel string `yaml:"logLevel,omitempty"`

	// StackSize is the initial stack size for new threads; 0 is the
	// platform default.
	StackSize int `yaml:"stackSize,omitempty"`

	// DeadlockTimeout enables lock-order and timeout detection on the
	// library's internal mutexes. 0 disables it.
	DeadlockTimeout time.Duration `yaml:"deadlockTimeout,omitempty"`

	// Metrics configures the Prometheus collectors.
	Metrics MetricsConfig `yaml:"metrics,omitempty"`

	// ErrorSink is where unhandled work unit failures are written:
	// "stderr", "stdout" or a file path.
	ErrorSink string `yaml:"errorSink,omitempty"`
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
}

// GetDefaultConfig returns the default configuration.
// Booleans must default to false, since false is ignored when merging.
func GetDefaultConfig() Config {
	return Config{
		Metrics: MetricsConfig{
			Namespace: "gothread",
		},
		ErrorSink: SinkStderr,
	}
}

// Load builds a Config. path names a YAML file; when empty the file named
// by GOTHREAD_CONFIG is used, and with neither only defaults and the
// environment apply.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	var cfg Config
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Parse(content); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	return WithDefaults(cfg)
}

// Parse decodes YAML content. Unknown keys are rejected.
func Parse(content []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefaults fills every zero field of cfg from GetDefaultConfig and
// validates the result.
func WithDefaults(cfg Config) (Config, error) {
	if err := mergo.Merge(&cfg, GetDefaultConfig()); err != nil {
		return Config{}, fmt.Errorf("merge defaults: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports values that can never be valid. Platform dependent
// stack size checks happen when the size is applied.
func (c Config) Validate() error {
	if c.StackSize < 0 {
		return fmt.Errorf("stackSize must not be negative, got %d", c.StackSize)
	}
	if c.DeadlockTimeout < 0 {
		return fmt.Errorf("deadlockTimeout must not be negative, got %s", c.DeadlockTimeout)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDebug); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebug, err)
		}
		cfg.Debug = debug
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvStackSize); ok && v != "" {
		size, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStackSize, err)
		}
		cfg.StackSize = int(size)
	}
	if v, ok := lookup(EnvDeadlockTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDeadlockTimeout, err)
		}
		cfg.DeadlockTimeout = d
	}
	return nil
}

// ApplyDeadlockOptions sets the process-wide deadlock detection from c.
// Only the first call in a process has an effect; it reports whether this
// one did. Detection stays off when DeadlockTimeout is 0.
func (c Config) ApplyDeadlockOptions() bool {
	return lockcheck.Configure(c.DeadlockTimeout)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// OpenErrorSink opens the configured error sink. Closing a standard
// stream destination is a no-op.
func (c Config) OpenErrorSink() (io.WriteCloser, error) {
	switch c.ErrorSink {
	case "", SinkStderr:
		return nopCloser{os.Stderr}, nil
	case SinkStdout:
		return nopCloser{os.Stdout}, nil
	default:
		f, err := os.OpenFile(c.ErrorSink, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("open error sink: %w", err)
		}
		return f, nil
	}
}

// Package config loads the TOML configuration of the ownertasks demo binary.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default. Environment variables prefixed OWNERTASKS_ override the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ownertask/go-owner-tasks/core"
)

const (
	PoolCached = "cached"
	PoolFixed  = "fixed"
)

// Config is the top-level demo configuration.
type Config struct {
	Pool    PoolConfig    `toml:"pool"`
	Manager ManagerConfig `toml:"manager"`
	Metrics MetricsConfig `toml:"metrics"`
	Log     LogConfig     `toml:"log"`
}

// PoolConfig selects the executor.
type PoolConfig struct {
	// Kind is "cached" (goroutine per task) or "fixed" (bounded workers).
	Kind    string `toml:"kind"`
	Workers int    `toml:"workers"`
}

// ManagerConfig configures the TaskManager.
type ManagerConfig struct {
	Name       string `toml:"name"`
	WeakOwners bool   `toml:"weak_owners"`
	History    int    `toml:"history"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled      bool     `toml:"enabled"`
	Listen       string   `toml:"listen"`
	Namespace    string   `toml:"namespace"`
	PollInterval Duration `toml:"poll_interval"`
}

// LogConfig configures the leveled logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration decodes TOML strings such as "500ms" or "2s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Kind:    PoolCached,
			Workers: 4,
		},
		Manager: ManagerConfig{
			Name:    "demo",
			History: 100,
		},
		Metrics: MetricsConfig{
			Enabled:      true,
			Listen:       ":9090",
			Namespace:    "ownertasks",
			PollInterval: Duration{time.Second},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path on top of Default, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TOML file: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
		}
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML text on top of Default without environment overrides.
func Parse(data string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode TOML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies OWNERTASKS_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if level := os.Getenv("OWNERTASKS_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if listen := os.Getenv("OWNERTASKS_METRICS_LISTEN"); listen != "" {
		c.Metrics.Listen = listen
	}
	if kind := os.Getenv("OWNERTASKS_POOL_KIND"); kind != "" {
		c.Pool.Kind = kind
	}
	if workers := os.Getenv("OWNERTASKS_POOL_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			c.Pool.Workers = n
		}
	}
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch strings.ToLower(c.Pool.Kind) {
	case PoolCached:
	case PoolFixed:
		if c.Pool.Workers < 1 {
			errs = append(errs, ValidationError{
				Field:   "pool.workers",
				Message: fmt.Sprintf("must be at least 1 for a fixed pool, got %d", c.Pool.Workers),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "pool.kind",
			Message: fmt.Sprintf("invalid kind '%s', must be one of: cached, fixed", c.Pool.Kind),
		})
	}

	if c.Manager.History < 0 {
		errs = append(errs, ValidationError{Field: "manager.history", Message: "must not be negative"})
	}

	if c.Metrics.Enabled {
		if c.Metrics.Listen == "" {
			errs = append(errs, ValidationError{Field: "metrics.listen", Message: "required when metrics are enabled"})
		}
		if c.Metrics.PollInterval.Duration <= 0 {
			errs = append(errs, ValidationError{Field: "metrics.poll_interval", Message: "must be positive"})
		}
	}

	if _, err := core.ParseLogLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// LogLevel returns the parsed log level. Call after Validate.
func (c *Config) LogLevel() core.LogLevel {
	level, _ := core.ParseLogLevel(c.Log.Level)
	return level
}

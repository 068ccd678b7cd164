package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ajitpratap0/objectdag/pkg/logger"
)

// Config is the root configuration of an objectdag process.
type Config struct {
	// Logging configures the global zap logger
	Logging logger.Config `yaml:"logging" json:"logging"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Tracing configures OpenTelemetry tracing
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`

	// Transports lists every storage transport a finished record is offered to
	Transports []*TransportConfig `yaml:"transports" json:"transports"`
}

// MetricsConfig controls metrics exposure.
type MetricsConfig struct {
	// Enabled turns on collection
	Enabled bool `yaml:"enabled" json:"enabled"`
	// ListenAddress serves /metrics when non-empty (e.g. ":9090")
	ListenAddress string `yaml:"listen_address" json:"listen_address"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled installs an SDK tracer provider
	Enabled bool `yaml:"enabled" json:"enabled"`
	// ServiceName is attached to every span
	ServiceName string `yaml:"service_name" json:"service_name"`
	// SamplingRate is the fraction of traces kept (0.0-1.0)
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate"`
}

// TransportConfig configures one storage transport. Transport-specific
// settings (paths, DSNs, buckets, topics) live in Options.
type TransportConfig struct {
	// Name identifies the transport instance in logs and metrics
	Name string `yaml:"name" json:"name"`
	// Type selects the registered implementation (e.g. "disk", "sqlite", "s3")
	Type string `yaml:"type" json:"type"`

	// Options holds transport-specific settings
	Options map[string]string `yaml:"options" json:"options"`

	// Timeouts define various timeout durations
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Compression applies to transports storing opaque blobs (disk, s3, gcs)
	Compression CompressionConfig `yaml:"compression" json:"compression"`
}

// TimeoutConfig contains all timeout-related settings.
type TimeoutConfig struct {
	// Connection timeout for establishing connections
	Connection time.Duration `yaml:"connection" json:"connection"`
	// Write timeout for one SaveObject call (0 = caller's context only)
	Write time.Duration `yaml:"write" json:"write"`
}

// CompressionConfig selects payload compression.
type CompressionConfig struct {
	// Algorithm selects compression type (none, gzip, snappy, lz4, zstd, s2)
	Algorithm string `yaml:"algorithm" json:"algorithm"`
	// Level sets compression ratio vs speed (1-9)
	Level int `yaml:"level" json:"level"`
}

// NewTransportConfig creates a TransportConfig with defaults applied.
//
// Example:
//
//	cfg := config.NewTransportConfig("local", "disk")
//	cfg.Options["path"] = "/var/lib/objectdag"
func NewTransportConfig(name, transportType string) *TransportConfig {
	cfg := &TransportConfig{
		Name:    name,
		Type:    transportType,
		Options: make(map[string]string),
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with defaults.
func (tc *TransportConfig) ApplyDefaults() {
	if tc.Name == "" {
		tc.Name = tc.Type
	}
	if tc.Options == nil {
		tc.Options = make(map[string]string)
	}
	if tc.Timeouts.Connection == 0 {
		tc.Timeouts.Connection = 10 * time.Second
	}
	if tc.Compression.Algorithm == "" {
		tc.Compression.Algorithm = "none"
	}
	if tc.Compression.Level == 0 {
		tc.Compression.Level = 5
	}
}

// Validate validates the transport configuration.
func (tc *TransportConfig) Validate() error {
	if tc.Type == "" {
		return fmt.Errorf("transport type is required")
	}
	if tc.Name == "" {
		return fmt.Errorf("transport name is required")
	}
	if tc.Timeouts.Connection < 0 || tc.Timeouts.Write < 0 {
		return fmt.Errorf("transport %s: timeouts cannot be negative", tc.Name)
	}
	if tc.Compression.Level < 0 || tc.Compression.Level > 9 {
		return fmt.Errorf("transport %s: compression level must be between 1 and 9", tc.Name)
	}
	return nil
}

// Option returns a transport option or def when unset.
func (tc *TransportConfig) Option(key, def string) string {
	if v, ok := tc.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// RequireOption returns a transport option or an error naming it.
func (tc *TransportConfig) RequireOption(key string) (string, error) {
	v := tc.Option(key, "")
	if v == "" {
		return "", fmt.Errorf("transport %s: option %q is required", tc.Name, key)
	}
	return v, nil
}

// IntOption parses an integer option, returning def when unset.
func (tc *TransportConfig) IntOption(key string, def int) (int, error) {
	v := tc.Option(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("transport %s: option %q: %w", tc.Name, key, err)
	}
	return n, nil
}

// NewConfig returns a root configuration with defaults.
func NewConfig() *Config {
	return &Config{
		Logging: logger.DefaultConfig(),
		Tracing: TracingConfig{
			ServiceName:  "objectdag",
			SamplingRate: 1.0,
		},
	}
}

// Validate validates the root configuration and every transport in it.
func (c *Config) Validate() error {
	if len(c.Transports) == 0 {
		return fmt.Errorf("at least one transport is required")
	}
	seen := make(map[string]bool, len(c.Transports))
	for _, tc := range c.Transports {
		tc.ApplyDefaults()
		if err := tc.Validate(); err != nil {
			return err
		}
		if seen[tc.Name] {
			return fmt.Errorf("duplicate transport name %q", tc.Name)
		}
		seen[tc.Name] = true
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("tracing sampling_rate must be between 0 and 1")
	}
	return nil
}

// Transport returns the transport configuration with the given name.
func (c *Config) Transport(name string) (*TransportConfig, bool) {
	for _, tc := range c.Transports {
		if tc.Name == name {
			return tc, true
		}
	}
	return nil, false
}

// Package config loads, validates, and writes the linkpaper YAML
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultMaxRetries     = 3
	defaultRequestTimeout = 30 * time.Second
)

// Config holds the full application configuration loaded from YAML.
type Config struct {
	// InstapaperUsername is the Instapaper account's email address.
	InstapaperUsername string `yaml:"instapaper_username"`

	// InstapaperPassword is the account password. May be empty; Instapaper
	// accounts are not required to have one.
	InstapaperPassword string `yaml:"instapaper_password"`

	// GoodLinksDBPath overrides the location of the GoodLinks store.
	// Leave empty to use the standard group-container path.
	GoodLinksDBPath string `yaml:"goodlinks_db_path,omitempty"`

	// LaunchGoodLinks controls whether sync may start GoodLinks itself when
	// its store is unreadable. Defaults to true if unset.
	LaunchGoodLinks *bool `yaml:"launch_goodlinks,omitempty"`

	// MaxRetries is the number of additional attempts after a failed
	// submission. 0 disables retrying. Maximum 10. Defaults to 3 if unset.
	MaxRetries *int `yaml:"max_retries,omitempty"`

	// RequestTimeout bounds each HTTP request to Instapaper.
	// Minimum 5s, maximum 2m. Defaults to 30s if unset.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection. Use for local collectors.
	Insecure bool `yaml:"insecure"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "linkpaper".
	ServiceName string `yaml:"service_name"`

	// Headers contains key-value pairs sent as gRPC metadata on every OTLP
	// request. Equivalent to the OTEL_EXPORTER_OTLP_HEADERS environment
	// variable. Use this for authentication tokens, e.g.:
	//   Authorization: "Bearer <token>"
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultPath returns the default config file path: ~/.config/linkpaper/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "linkpaper", "config.yaml"), nil
}

// Load reads and validates the configuration file at the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Write marshals the config to YAML at the given path, creating the parent
// directory as needed. The file is written 0600 since it carries the
// Instapaper password.
func (c *Config) Write(path string) error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("refusing to write invalid config: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %q: %w", path, err)
	}
	return nil
}

// LaunchGoodLinksEnabled reports whether sync may start GoodLinks itself.
func (c *Config) LaunchGoodLinksEnabled() bool {
	return c.LaunchGoodLinks == nil || *c.LaunchGoodLinks
}

// validate checks required fields, applies defaults, and bounds the rest.
func (c *Config) validate() error {
	if c.InstapaperUsername == "" {
		return fmt.Errorf("instapaper_username is required")
	}

	if c.MaxRetries == nil {
		d := defaultMaxRetries
		c.MaxRetries = &d
	}
	if *c.MaxRetries < 0 {
		return fmt.Errorf("max_retries %d must not be negative", *c.MaxRetries)
	}
	if *c.MaxRetries > 10 {
		return fmt.Errorf("max_retries %d is too high (maximum 10)", *c.MaxRetries)
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.RequestTimeout < 5*time.Second {
		return fmt.Errorf("request_timeout %v is too short (minimum 5s)", c.RequestTimeout)
	}
	if c.RequestTimeout > 2*time.Minute {
		return fmt.Errorf("request_timeout %v is too long (maximum 2m)", c.RequestTimeout)
	}

	if c.Telemetry != nil {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
		}
	}

	return nil
}

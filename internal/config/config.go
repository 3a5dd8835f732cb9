// Package config loads locus configuration.
//
// Values come from built-in defaults, then an optional YAML file, then
// LOCUS_* environment variables, highest last. Packages that need richer
// settings (logging, telemetry) own their full config types; this package
// carries the user-facing knobs and cmd/locus maps them across.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Config holds the complete locus configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Registry  RegistryConfig  `koanf:"registry"`
	Manifest  ManifestConfig  `koanf:"manifest"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Notify    NotifyConfig    `koanf:"notify"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP introspection server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
}

// RegistryConfig holds registry behavior settings.
type RegistryConfig struct {
	// Resolution is "fallback" or "primary_only".
	Resolution string `koanf:"resolution"`
}

// ManifestConfig points at the bootstrap manifest.
type ManifestConfig struct {
	// Path to a TOML manifest. Empty means the built-in table.
	Path     string   `koanf:"path"`
	Watch    bool     `koanf:"watch"`
	Debounce Duration `koanf:"debounce"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// NotifyConfig controls where registry events are published. Events are
// always logged; NATSURL adds a NATS publisher.
type NotifyConfig struct {
	NATSURL string `koanf:"nats_url"`
	Subject string `koanf:"subject"`
}

// LoggingConfig holds the logging knobs exposed to users.
type LoggingConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	Sampling bool   `koanf:"sampling"`
}

// TelemetryConfig holds the OpenTelemetry knobs exposed to users.
type TelemetryConfig struct {
	Enabled     bool              `koanf:"enabled"`
	Endpoint    string            `koanf:"endpoint"`
	Protocol    string            `koanf:"protocol"`
	Insecure    bool              `koanf:"insecure"`
	ServiceName string            `koanf:"service_name"`
	Headers     map[string]Secret `koanf:"headers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8765,
			ShutdownTimeout: Duration(10 * time.Second),
			RateBurst:       20,
		},
		Registry: RegistryConfig{
			Resolution: "fallback",
		},
		Manifest: ManifestConfig{
			Debounce: Duration(250 * time.Millisecond),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Notify: NotifyConfig{
			Subject: "locus.events",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Sampling: true,
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			Insecure:    true,
			ServiceName: "locus",
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("server.rate_burst must be at least 1 when rate limiting, got %d", c.Server.RateBurst)
	}

	switch c.Registry.Resolution {
	case "", "fallback", "primary_only":
	default:
		return fmt.Errorf("registry.resolution must be fallback or primary_only, got %q", c.Registry.Resolution)
	}

	if c.Manifest.Watch && c.Manifest.Path == "" {
		return errors.New("manifest.watch requires manifest.path")
	}
	if c.Manifest.Path != "" && !strings.HasSuffix(c.Manifest.Path, ".toml") {
		return fmt.Errorf("manifest.path must be a .toml file, got %q", c.Manifest.Path)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	if c.Notify.NATSURL != "" && !strings.HasPrefix(c.Notify.NATSURL, "nats://") && !strings.HasPrefix(c.Notify.NATSURL, "tls://") {
		return fmt.Errorf("notify.nats_url must be a nats:// or tls:// URL, got %q", c.Notify.NATSURL)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return errors.New("telemetry.endpoint is required when telemetry is enabled")
		}
		switch c.Telemetry.Protocol {
		case "", "grpc", "http/protobuf":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol)
		}
	}

	return nil
}

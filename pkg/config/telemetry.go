package config

import (
	"fmt"
	"strings"
	"time"
)

type TelemetryConfig struct {
	Metrics MetricsConfig `koanf:"metrics"`
	Traces  TracesConfig  `koanf:"traces"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type TracesConfig struct {
	Enabled  bool           `koanf:"enabled"`
	OtlpHttp OtlpHttpConfig `koanf:"otlphttp"`
}

type OtlpHttpConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Insecure bool          `koanf:"insecure"`
	Timeout  time.Duration `koanf:"timeout"`
}

// String returns a string representation of the TelemetryConfig.
func (c *TelemetryConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Telemetry ---\n")
	fmt.Fprintf(&b, "  metrics.enabled: %t\n", c.Metrics.Enabled)
	fmt.Fprintf(&b, "  metrics.path: %s\n", c.Metrics.Path)
	fmt.Fprintf(&b, "  traces.enabled: %t\n", c.Traces.Enabled)
	fmt.Fprintf(&b, "  traces.otlphttp.endpoint: %s\n", c.Traces.OtlpHttp.Endpoint)
	fmt.Fprintf(&b, "  traces.otlphttp.insecure: %v\n", c.Traces.OtlpHttp.Insecure)
	fmt.Fprintf(&b, "  traces.otlphttp.timeout: %v\n", c.Traces.OtlpHttp.Timeout)
	return b.String()
}

func (c *TelemetryConfig) Validate() error {
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with '/'")
	}
	if !c.Traces.Enabled {
		return nil
	}
	if c.Traces.OtlpHttp.Endpoint == "" {
		return fmt.Errorf("OTel endpoint is not configured")
	}
	if c.Traces.OtlpHttp.Timeout <= 0 {
		return fmt.Errorf("telemetry timeout must be greater than 0")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PProfConfig exposes the runtime profiles on a separate listener when enabled.
type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

func (c *PProfConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- PProf ---\n")
	fmt.Fprintf(&b, "  enabled: %t\n", c.Enabled)
	if c.Enabled {
		fmt.Fprintf(&b, "  addr: %s\n", c.Addr)
	}
	return b.String()
}

func (c *PProfConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return errors.New("pprof.addr is required when pprof is enabled")
	}
	return nil
}

// ShutdownConfig bounds how long in-flight requests and telemetry flushes may take after a stop signal.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *ShutdownConfig) String() string {
	return fmt.Sprintf("\n--- Shutdown ---\n  timeout: %s\n", c.Timeout)
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("shutdown.timeout must be greater than 0")
	}
	return nil
}

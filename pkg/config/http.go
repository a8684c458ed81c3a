package config

import (
	"fmt"
	"strings"
	"time"
)

type HTTPConfig struct {
	Port           int `koanf:"port"`
	MaxHeaderBytes int `koanf:"maxHeaderBytes"`
	Timeout        struct {
		Read       time.Duration `koanf:"read"`
		Write      time.Duration `koanf:"write"`
		Idle       time.Duration `koanf:"idle"`
		ReadHeader time.Duration `koanf:"readHeader"`
	} `koanf:"timeout"`
}

// Addr is the listen address for the configured port on all interfaces.
func (c *HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *HTTPConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Server ---\n")
	fmt.Fprintf(&b, "  addr: %s\n", c.Addr())
	fmt.Fprintf(&b, "  maxHeaderBytes: %d\n", c.MaxHeaderBytes)
	fmt.Fprintf(&b, "  timeout: read=%v write=%v idle=%v readHeader=%v\n",
		c.Timeout.Read, c.Timeout.Write, c.Timeout.Idle, c.Timeout.ReadHeader)
	return b.String()
}

func (c *HTTPConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid HTTP server port: %d", c.Port)
	}
	if c.MaxHeaderBytes < 0 {
		return fmt.Errorf("server.maxHeaderBytes cannot be negative")
	}
	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"read", c.Timeout.Read},
		{"write", c.Timeout.Write},
		{"idle", c.Timeout.Idle},
		{"readHeader", c.Timeout.ReadHeader},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			return fmt.Errorf("invalid HTTP server %s timeout: %v", t.name, t.value)
		}
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NATSConfig enables publishing cart events to a JetStream stream.
type NATSConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	Stream  string        `koanf:"stream"`
}

func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	fmt.Fprintf(&b, "  enabled: %t\n", c.Enabled)
	if c.Enabled {
		fmt.Fprintf(&b, "  url: %s\n", MaskURL(c.URL))
		fmt.Fprintf(&b, "  timeout: %s\n", c.Timeout)
		fmt.Fprintf(&b, "  stream: %s\n", c.Stream)
	}
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if !strings.HasPrefix(c.URL, "nats://") && !strings.HasPrefix(c.URL, "tls://") {
		return errors.New("nats.url must start with 'nats://' or 'tls://'")
	}
	if c.Timeout <= 0 {
		return errors.New("nats.timeout must be greater than 0")
	}
	if c.Stream == "" {
		return errors.New("nats.stream is required")
	}
	return nil
}

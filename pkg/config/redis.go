package config

import (
	"fmt"
	"strings"
	"time"
)

type RedisConfig struct {
	URL string `koanf:"url"`
	// TTL is the expiration of an idle cart. Zero keeps carts forever.
	TTL     time.Duration `koanf:"ttl"`
	Timeout time.Duration `koanf:"timeout"`
}

// String returns a string representation of the Redis configuration.
func (c *RedisConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Redis ---\n")
	fmt.Fprintf(&b, "  url: %s\n", MaskURL(c.URL))
	fmt.Fprintf(&b, "  ttl: %s\n", c.TTL)
	fmt.Fprintf(&b, "  timeout: %s\n", c.Timeout)
	return b.String()
}

func (c *RedisConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("redis URL is not configured")
	}
	if !strings.HasPrefix(c.URL, "redis://") && !strings.HasPrefix(c.URL, "rediss://") {
		return fmt.Errorf("redis URL must start with 'redis://' or 'rediss://'")
	}
	if c.TTL < 0 {
		return fmt.Errorf("redis ttl cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("redis timeout is not configured")
	}
	return nil
}

package config

import (
	"fmt"
	"strings"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// LogConfig selects the minimum level and the record encoding. Empty values mean info and json.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func (c *LogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Log ---\n")
	fmt.Fprintf(&b, "  level: %s\n", c.Level)
	fmt.Fprintf(&b, "  format: %s\n", c.Format)
	return b.String()
}

func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.Level)
	}
	switch c.Format {
	case "", LogFormatJSON, LogFormatText:
		return nil
	default:
		return fmt.Errorf("unknown log format: %q", c.Format)
	}
}

// Package config holds the cartwish application configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/cartwish/pkg/config"
	"github.com/abgdnv/cartwish/pkg/config/configloader"
	"golang.org/x/crypto/bcrypt"
)

var _ configloader.Validator = (*Config)(nil)

// Cart store backends.
const (
	CartStoreMemory   = "memory"
	CartStorePostgres = "postgres"
	CartStoreRedis    = "redis"
)

type CartConfig struct {
	Store string `koanf:"store"`
}

type UserConfig struct {
	BcryptCost int `koanf:"bcryptcost"`
}

type Config struct {
	HTTPServer     config.HTTPConfig           `koanf:"server"`
	Database       config.DatabaseConfig       `koanf:"database"`
	Log            config.LogConfig            `koanf:"log"`
	PProf          config.PProfConfig          `koanf:"pprof"`
	Shutdown       config.ShutdownConfig       `koanf:"shutdown"`
	Redis          config.RedisConfig          `koanf:"redis"`
	Nats           config.NATSConfig           `koanf:"nats"`
	Auth           config.AuthConfig           `koanf:"auth"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
	Telemetry      config.TelemetryConfig      `koanf:"telemetry"`
	Cart           CartConfig                  `koanf:"cart"`
	User           UserConfig                  `koanf:"user"`
}

// String returns the configuration with every credential masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Database.String())
	b.WriteString("\n--- Cart ---\n")
	b.WriteString(fmt.Sprintf("  store: %s\n", c.Cart.Store))
	if c.Cart.Store == CartStoreRedis {
		b.WriteString(c.Redis.String())
	}
	b.WriteString(c.Nats.String())
	b.WriteString(c.Auth.String())
	b.WriteString(fmt.Sprintf("  user.bcryptcost: %d\n", c.User.BcryptCost))
	b.WriteString(c.CircuitBreaker.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Database,
		&c.Log,
		&c.PProf,
		&c.Shutdown,
		&c.Nats,
		&c.Auth,
		&c.CircuitBreaker,
		&c.Telemetry,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	switch c.Cart.Store {
	case CartStoreMemory, CartStorePostgres:
	case CartStoreRedis:
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown cart store: %q", c.Cart.Store)
	}

	if c.User.BcryptCost < bcrypt.MinCost || c.User.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("user.bcryptcost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

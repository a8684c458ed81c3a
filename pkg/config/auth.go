package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	AuthModeLocal = "local"
	AuthModeJWKS  = "jwks"
)

// AuthConfig selects how bearer tokens are issued and verified.
// In local mode tokens are signed with Secret; in jwks mode they are verified against an external IdP.
type AuthConfig struct {
	Mode   string        `koanf:"mode"`
	Secret string        `koanf:"secret"`
	Issuer string        `koanf:"issuer"`
	TTL    time.Duration `koanf:"ttl"`
	IdP    IdP           `koanf:"idp"`
}

type IdP struct {
	JwksURL     string        `koanf:"jwksurl"`
	Issuer      string        `koanf:"issuer"`
	ClientID    string        `koanf:"clientid"`
	MinInterval time.Duration `koanf:"mininterval"`
}

// String returns a string representation of the auth configuration. The secret is never printed.
func (c *AuthConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Auth ---\n")
	fmt.Fprintf(&b, "  mode: %s\n", c.Mode)
	fmt.Fprintf(&b, "  issuer: %s\n", c.Issuer)
	fmt.Fprintf(&b, "  ttl: %s\n", c.TTL)
	if c.Mode == AuthModeJWKS {
		fmt.Fprintf(&b, "  idp.jwksurl: %s\n", c.IdP.JwksURL)
		fmt.Fprintf(&b, "  idp.issuer: %s\n", c.IdP.Issuer)
		fmt.Fprintf(&b, "  idp.clientid: %s\n", c.IdP.ClientID)
		fmt.Fprintf(&b, "  idp.mininterval: %s\n", c.IdP.MinInterval)
	}
	return b.String()
}

func (c *AuthConfig) Validate() error {
	switch c.Mode {
	case AuthModeLocal:
		if len(c.Secret) < 32 {
			return fmt.Errorf("auth secret must be at least 32 bytes long")
		}
		if c.Issuer == "" {
			return fmt.Errorf("auth issuer cannot be empty")
		}
		if c.TTL <= 0 {
			return fmt.Errorf("auth token ttl must be greater than zero")
		}
		return nil
	case AuthModeJWKS:
		return c.IdP.Validate()
	default:
		return fmt.Errorf("unknown auth mode: %q", c.Mode)
	}
}

func (c *IdP) Validate() error {
	if c.JwksURL == "" {
		return fmt.Errorf("IdP JWKS URL cannot be empty")
	}
	if c.Issuer == "" {
		return fmt.Errorf("IdP issuer cannot be empty")
	}
	if c.ClientID == "" {
		return fmt.Errorf("IdP client ID cannot be empty")
	}
	if c.MinInterval <= 0 {
		return fmt.Errorf("IdP minimum interval must be greater than zero")
	}
	return nil
}

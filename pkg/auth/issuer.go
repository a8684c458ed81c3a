package auth

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Issuer signs access tokens for locally registered users with an HMAC key.
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. The same secret must be given to NewHMACVerifier.
func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{
		key:    []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token carrying the principal's id, name and role.
func (i *Issuer) Issue(p Principal) (string, error) {
	now := i.now()
	token, err := jwt.NewBuilder().
		Subject(p.UserID.String()).
		Issuer(i.issuer).
		IssuedAt(now).
		Expiration(now.Add(i.ttl)).
		Claim(roleClaim, p.Role).
		Claim(nameClaim, p.Name).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), i.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

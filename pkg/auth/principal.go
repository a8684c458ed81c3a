package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	roleClaim = "role"
	nameClaim = "name"
)

var ErrNoSubject = errors.New("token has no subject")

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID uuid.UUID
	Name   string
	Role   string
}

// HasRole reports whether the principal holds one of the given roles.
func (p Principal) HasRole(roles ...string) bool {
	return slices.Contains(roles, p.Role)
}

// PrincipalFromToken extracts the principal from verified token claims.
// A token without a role claim is treated as a regular user.
func PrincipalFromToken(token jwt.Token) (Principal, error) {
	subject, ok := token.Subject()
	if !ok || subject == "" {
		return Principal{}, ErrNoSubject
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid subject %q: %w", subject, err)
	}
	p := Principal{UserID: userID, Role: RoleUser}
	var role string
	if err := token.Get(roleClaim, &role); err == nil && role != "" {
		p.Role = role
	}
	var name string
	if err := token.Get(nameClaim, &name); err == nil {
		p.Name = name
	}
	return p, nil
}

type principalKey struct{}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in the context, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

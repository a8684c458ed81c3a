// Package store provides the persistence of carts.
package store

import (
	"context"

	"github.com/abgdnv/cartwish/internal/cart"
	"github.com/google/uuid"
)

// CartStore is an interface for cart storage operations.
// Implementations must treat Save as a compare-and-swap on Cart.Version.
type CartStore interface {
	// FindByUserID retrieves the cart owned by the user.
	// Returns ErrCartNotFound if the user has no cart yet.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)

	// Save persists the whole cart and returns it with the new version.
	// A cart with Version 0 is inserted; otherwise the stored version must still equal
	// c.Version, or ErrOptimisticLock is returned and nothing is written.
	Save(ctx context.Context, c *cart.Cart) (*cart.Cart, error)
}

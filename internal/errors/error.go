// Package errors provides the sentinel errors shared by the cart, catalog and user services.
// Handlers translate them to HTTP status codes with errors.Is against the root errors.
package errors

import (
	"errors"
	"fmt"
)

// Root errors.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("stock is not enough")
	ErrOptimisticLock    = errors.New("optimistic lock error: the record has been modified by another transaction")
	ErrAccessDenied      = errors.New("access denied")
	ErrUnavailable       = errors.New("service temporarily unavailable")
)

var (
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrCartNotFound     = fmt.Errorf("cart %w", ErrNotFound)
	ErrCartItemNotFound = fmt.Errorf("product not in cart: %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
)

var (
	ErrUserAlreadyExists     = errors.New("user already exists")
	ErrCategoryAlreadyExists = errors.New("category already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
)

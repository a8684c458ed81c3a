package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/abgdnv/cartwish/internal/cart"
	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/abgdnv/cartwish/pkg/config"
	"github.com/abgdnv/cartwish/pkg/resilience"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// BreakerCatalog guards a CatalogReader with a circuit breaker. While the circuit is open
// calls fail fast with ErrUnavailable.
type BreakerCatalog struct {
	next CatalogReader
	cb   *gobreaker.CircuitBreaker[*cart.Product]
}

// NewBreakerCatalog wraps next. Missing products and cancelled requests do not count as failures.
func NewBreakerCatalog(next CatalogReader, cfg config.CircuitBreakerConfig) *BreakerCatalog {
	isFailure := func(err error) bool {
		return !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, context.Canceled)
	}
	return &BreakerCatalog{
		next: next,
		cb:   resilience.NewCircuitBreaker[*cart.Product]("catalog", cfg, isFailure),
	}
}

func (b *BreakerCatalog) FindProduct(ctx context.Context, id uuid.UUID) (*cart.Product, error) {
	p, err := b.cb.Execute(func() (*cart.Product, error) {
		return b.next.FindProduct(ctx, id)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("catalog: %w: %w", err, apperrors.ErrUnavailable)
	}
	return p, err
}

// State reports the breaker state; /healthz includes it.
func (b *BreakerCatalog) State() gobreaker.State {
	return b.cb.State()
}

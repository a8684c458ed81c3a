package store

import (
	"context"
	"sync"

	"github.com/abgdnv/cartwish/internal/cart"
	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/google/uuid"
)

// MemoryStore implements CartStore using an in-memory map. Carts are lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[uuid.UUID]*cart.Cart
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[uuid.UUID]*cart.Cart)}
}

func (s *MemoryStore) FindByUserID(_ context.Context, userID uuid.UUID) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[userID]
	if !ok {
		return nil, apperrors.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, c *cart.Cart) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.carts[c.UserID]
	switch {
	case c.IsNew() && exists:
		return nil, apperrors.ErrOptimisticLock
	case !c.IsNew() && (!exists || current.Version != c.Version):
		return nil, apperrors.ErrOptimisticLock
	}
	saved := c.Clone()
	saved.Version = c.Version + 1
	s.carts[c.UserID] = saved
	return saved.Clone(), nil
}

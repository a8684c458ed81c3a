package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abgdnv/cartwish/internal/cart"
	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements CartStore with one JSON document per user.
// Save uses WATCH/MULTI so a concurrent writer aborts the transaction.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. Carts expire after ttl of inactivity; zero disables expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func cartKey(userID uuid.UUID) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

func (r *RedisStore) FindByUserID(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	return decodeCart(data)
}

func (r *RedisStore) Save(ctx context.Context, c *cart.Cart) (*cart.Cart, error) {
	key := cartKey(c.UserID)
	saved := c.Clone()
	saved.Version = c.Version + 1
	payload, err := json.Marshal(saved)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if !c.IsNew() {
				return apperrors.ErrOptimisticLock
			}
		case err != nil:
			return fmt.Errorf("failed to read cart: %w", err)
		default:
			current, err := decodeCart(data)
			if err != nil {
				return err
			}
			if c.IsNew() || current.Version != c.Version {
				return apperrors.ErrOptimisticLock
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, apperrors.ErrOptimisticLock
		}
		if errors.Is(err, apperrors.ErrOptimisticLock) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return saved, nil
}

func decodeCart(data []byte) (*cart.Cart, error) {
	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	if c.Products == nil {
		c.Products = []cart.LineItem{}
	}
	return &c, nil
}

package store

import (
	"context"
	"sync"
	"testing"

	"github.com/abgdnv/cartwish/internal/cart"
	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProduct returns a product snapshot with plenty of stock.
func testProduct(title string, price int64) cart.Product {
	return cart.Product{ID: uuid.New(), Title: title, Price: price, Stock: 100, Image: title + ".png"}
}

// runCartStoreContract checks the behavior every CartStore implementation shares.
func runCartStoreContract(t *testing.T, s CartStore) {
	ctx := context.Background()

	t.Run("find missing cart", func(t *testing.T) {
		// when
		_, err := s.FindByUserID(ctx, uuid.New())

		// then
		require.ErrorIs(t, err, apperrors.ErrCartNotFound)
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("insert and read back", func(t *testing.T) {
		// given
		c := cart.New(uuid.New())
		keyboard := testProduct("keyboard", 4999)
		mouse := testProduct("mouse", 1999)
		require.NoError(t, c.Add(keyboard, 2))
		require.NoError(t, c.Add(mouse, 1))

		// when
		saved, err := s.Save(ctx, c)

		// then
		require.NoError(t, err)
		assert.Equal(t, int32(1), saved.Version)
		assert.Equal(t, int32(0), c.Version, "input cart must not be mutated")

		found, err := s.FindByUserID(ctx, c.UserID)
		require.NoError(t, err)
		assert.Equal(t, saved, found)
		require.Len(t, found.Products, 2)
		assert.Equal(t, keyboard.ID, found.Products[0].ProductID, "insertion order is kept")
		assert.Equal(t, mouse.ID, found.Products[1].ProductID)
		assert.Equal(t, int32(3), found.TotalProducts)
		assert.Equal(t, int64(2*4999+1999), found.TotalCartPrice)
	})

	t.Run("update bumps version", func(t *testing.T) {
		// given
		c := cart.New(uuid.New())
		p := testProduct("lamp", 1500)
		require.NoError(t, c.Add(p, 1))
		saved, err := s.Save(ctx, c)
		require.NoError(t, err)

		// when
		require.NoError(t, saved.Increase(p.ID, p.Stock))
		updated, err := s.Save(ctx, saved)

		// then
		require.NoError(t, err)
		assert.Equal(t, int32(2), updated.Version)
		found, err := s.FindByUserID(ctx, c.UserID)
		require.NoError(t, err)
		assert.Equal(t, int32(2), found.Products[0].Quantity)
		assert.Equal(t, int64(3000), found.TotalCartPrice)
	})

	t.Run("last item removed keeps empty cart", func(t *testing.T) {
		// given
		c := cart.New(uuid.New())
		p := testProduct("pen", 100)
		require.NoError(t, c.Add(p, 1))
		saved, err := s.Save(ctx, c)
		require.NoError(t, err)

		// when
		removed, err := saved.Decrease(p.ID)
		require.NoError(t, err)
		require.True(t, removed)
		_, err = s.Save(ctx, saved)

		// then
		require.NoError(t, err)
		found, err := s.FindByUserID(ctx, c.UserID)
		require.NoError(t, err)
		assert.Empty(t, found.Products)
		assert.Zero(t, found.TotalProducts)
		assert.Zero(t, found.TotalCartPrice)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		// given
		c := cart.New(uuid.New())
		p := testProduct("cup", 700)
		require.NoError(t, c.Add(p, 1))
		saved, err := s.Save(ctx, c)
		require.NoError(t, err)
		first, second := saved.Clone(), saved.Clone()
		require.NoError(t, first.Increase(p.ID, p.Stock))
		_, err = s.Save(ctx, first)
		require.NoError(t, err)

		// when
		require.NoError(t, second.Increase(p.ID, p.Stock))
		_, err = s.Save(ctx, second)

		// then
		require.ErrorIs(t, err, apperrors.ErrOptimisticLock)
		found, err := s.FindByUserID(ctx, c.UserID)
		require.NoError(t, err)
		assert.Equal(t, int32(2), found.Products[0].Quantity, "losing write must not be applied")
	})

	t.Run("second insert of the same cart is rejected", func(t *testing.T) {
		// given
		userID := uuid.New()
		first := cart.New(userID)
		require.NoError(t, first.Add(testProduct("a", 10), 1))
		_, err := s.Save(ctx, first)
		require.NoError(t, err)

		// when
		second := cart.New(userID)
		require.NoError(t, second.Add(testProduct("b", 20), 1))
		_, err = s.Save(ctx, second)

		// then
		require.ErrorIs(t, err, apperrors.ErrOptimisticLock)
	})

	t.Run("concurrent writers on one version", func(t *testing.T) {
		// given
		c := cart.New(uuid.New())
		p := testProduct("chair", 2500)
		require.NoError(t, c.Add(p, 1))
		saved, err := s.Save(ctx, c)
		require.NoError(t, err)

		// when
		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				mine := saved.Clone()
				if err := mine.Increase(p.ID, p.Stock); err != nil {
					errs <- err
					return
				}
				_, err := s.Save(ctx, mine)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		// then
		var ok, conflicts int
		for err := range errs {
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, apperrors.ErrOptimisticLock):
				conflicts++
			}
		}
		assert.Equal(t, 1, ok, "exactly one writer wins")
		assert.Equal(t, writers-1, conflicts)
		found, err := s.FindByUserID(ctx, c.UserID)
		require.NoError(t, err)
		assert.Equal(t, int32(2), found.Products[0].Quantity)
		assert.Equal(t, int32(2), found.Version)
	})
}

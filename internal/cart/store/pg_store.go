package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/abgdnv/cartwish/internal/cart"
	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const (
	findCartQuery = `SELECT total_products, total_cart_price, version FROM carts WHERE user_id = $1`

	findCartItemsQuery = `SELECT product_id, title, price, image, quantity, total_price
		FROM cart_items WHERE user_id = $1 ORDER BY position`

	insertCartQuery = `INSERT INTO carts (user_id, total_products, total_cart_price, version)
		VALUES ($1, $2, $3, 1)`

	updateCartQuery = `UPDATE carts
		SET total_products = $2, total_cart_price = $3, version = version + 1, updated_at = now()
		WHERE user_id = $1 AND version = $4`

	deleteCartItemsQuery = `DELETE FROM cart_items WHERE user_id = $1`
)

var cartItemColumns = []string{"user_id", "product_id", "position", "title", "price", "image", "quantity", "total_price"}

type cartItemRow struct {
	ProductID  uuid.UUID `db:"product_id"`
	Title      string    `db:"title"`
	Price      int64     `db:"price"`
	Image      string    `db:"image"`
	Quantity   int32     `db:"quantity"`
	TotalPrice int64     `db:"total_price"`
}

// PgStore implements CartStore on PostgreSQL. The cart header and its items live in
// separate tables and are always written in one transaction.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of CartStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func (p *PgStore) FindByUserID(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	var found *cart.Cart

	// read header and items from one snapshot
	txErr := p.withTransaction(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		c := cart.New(userID)
		err := tx.QueryRow(ctx, findCartQuery, userID).Scan(&c.TotalProducts, &c.TotalCartPrice, &c.Version)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrCartNotFound
			}
			return fmt.Errorf("failed to find cart: %w", err)
		}
		rows, _ := tx.Query(ctx, findCartItemsQuery, userID)
		items, err := pgx.CollectRows(rows, pgx.RowToStructByName[cartItemRow])
		if err != nil {
			return fmt.Errorf("failed to find cart items: %w", err)
		}
		for _, item := range items {
			c.Products = append(c.Products, cart.LineItem(item))
		}
		found = c
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return found, nil
}

func (p *PgStore) Save(ctx context.Context, c *cart.Cart) (*cart.Cart, error) {
	txErr := p.withTransaction(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if c.IsNew() {
			if _, err := tx.Exec(ctx, insertCartQuery, c.UserID, c.TotalProducts, c.TotalCartPrice); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
					// somebody created the cart first
					return apperrors.ErrOptimisticLock
				}
				return fmt.Errorf("failed to create cart: %w", err)
			}
		} else {
			tag, err := tx.Exec(ctx, updateCartQuery, c.UserID, c.TotalProducts, c.TotalCartPrice, c.Version)
			if err != nil {
				return fmt.Errorf("failed to update cart: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return apperrors.ErrOptimisticLock
			}
		}

		if _, err := tx.Exec(ctx, deleteCartItemsQuery, c.UserID); err != nil {
			return fmt.Errorf("failed to clear cart items: %w", err)
		}
		if len(c.Products) == 0 {
			return nil
		}
		rows := make([][]any, 0, len(c.Products))
		for i, li := range c.Products {
			rows = append(rows, []any{c.UserID, li.ProductID, int32(i), li.Title, li.Price, li.Image, li.Quantity, li.TotalPrice})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"cart_items"}, cartItemColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to write cart items: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	saved := c.Clone()
	saved.Version = c.Version + 1
	return saved, nil
}

func (p *PgStore) withTransaction(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("failed to rollback transaction: %w (cause: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const productColumns = `id, title, description, price, stock, images, seller_id, category_id, version, created_at`

const (
	findProductQuery = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	productFilter = `WHERE (@category_id::uuid IS NULL OR p.category_id = @category_id)
		AND (@search::text = '' OR strpos(lower(p.title), lower(@search)) > 0)`

	listProductsQuery = `SELECT p.id, p.title, p.price, p.stock, p.images[1] AS image,
			count(r.user_id) AS number_of_reviews,
			coalesce(avg(r.rating), 0)::float8 AS average_rating
		FROM products p LEFT JOIN reviews r ON r.product_id = p.id
		` + productFilter + `
		GROUP BY p.id
		ORDER BY p.created_at, p.id
		OFFSET @offset LIMIT @limit`

	countProductsQuery = `SELECT count(*) FROM products p ` + productFilter

	createProductQuery = `INSERT INTO products (title, description, price, stock, images, seller_id, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + productColumns

	updateStockQuery = `UPDATE products SET stock = $2, version = version + 1
		WHERE id = $1 AND version = $3
		RETURNING ` + productColumns

	productExistsQuery = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`

	findReviewsQuery = `SELECT product_id, user_id, rating, comment, created_at
		FROM reviews WHERE product_id = $1 ORDER BY created_at, user_id`

	upsertReviewQuery = `INSERT INTO reviews (product_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, user_id) DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, created_at = now()
		RETURNING product_id, user_id, rating, comment, created_at`

	findCategoryByNameQuery = `SELECT id, name, image, created_at FROM categories WHERE name = $1`
	findCategoriesQuery     = `SELECT id, name, image, created_at FROM categories ORDER BY name`
	createCategoryQuery     = `INSERT INTO categories (name, image) VALUES ($1, $2) RETURNING id, name, image, created_at`
)

// PgProductStore implements ProductStore using PostgreSQL as the data store.
type PgProductStore struct {
	db *pgxpool.Pool
}

// NewPgProductStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgProductStore(dbp *pgxpool.Pool) *PgProductStore {
	return &PgProductStore{db: dbp}
}

func (p *PgProductStore) FindByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	rows, _ := p.db.Query(ctx, findProductQuery, id)
	product, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return &product, nil
}

func (p *PgProductStore) FindAll(ctx context.Context, filter ListFilter) ([]ProductSummary, int64, error) {
	args := pgx.NamedArgs{
		"category_id": filter.CategoryID,
		"search":      filter.Search,
		"offset":      filter.Offset,
		"limit":       filter.Limit,
	}
	rows, _ := p.db.Query(ctx, listProductsQuery, args)
	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[ProductSummary])
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find products: %w", err)
	}

	var total int64
	if err := p.db.QueryRow(ctx, countProductsQuery, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}
	return products, total, nil
}

func (p *PgProductStore) Create(ctx context.Context, in Product) (*Product, error) {
	rows, _ := p.db.Query(ctx, createProductQuery,
		in.Title, in.Description, in.Price, in.Stock, in.Images, in.SellerID, in.CategoryID)
	product, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Product])
	if err != nil {
		if isViolation(err, foreignKeyViolation) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

func (p *PgProductStore) UpdateStock(ctx context.Context, id uuid.UUID, stock int32, version int32) (*Product, error) {
	rows, _ := p.db.Query(ctx, updateStockQuery, id, stock, version)
	product, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Product])
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update product stock: %w", err)
	}

	var exists bool
	if err := p.db.QueryRow(ctx, productExistsQuery, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return nil, apperrors.ErrProductNotFound
	}
	return nil, apperrors.ErrOptimisticLock
}

func (p *PgProductStore) FindReviews(ctx context.Context, productID uuid.UUID) ([]Review, error) {
	rows, _ := p.db.Query(ctx, findReviewsQuery, productID)
	reviews, err := pgx.CollectRows(rows, pgx.RowToStructByName[Review])
	if err != nil {
		return nil, fmt.Errorf("failed to find reviews: %w", err)
	}
	return reviews, nil
}

func (p *PgProductStore) UpsertReview(ctx context.Context, in Review) (*Review, error) {
	rows, _ := p.db.Query(ctx, upsertReviewQuery, in.ProductID, in.UserID, in.Rating, in.Comment)
	review, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Review])
	if err != nil {
		if isViolation(err, foreignKeyViolation) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to save review: %w", err)
	}
	return &review, nil
}

// PgCategoryStore implements CategoryStore using PostgreSQL as the data store.
type PgCategoryStore struct {
	db *pgxpool.Pool
}

func NewPgCategoryStore(dbp *pgxpool.Pool) *PgCategoryStore {
	return &PgCategoryStore{db: dbp}
}

func (c *PgCategoryStore) FindByName(ctx context.Context, name string) (*Category, error) {
	rows, _ := c.db.Query(ctx, findCategoryByNameQuery, name)
	category, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Category])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return &category, nil
}

func (c *PgCategoryStore) FindAll(ctx context.Context) ([]Category, error) {
	rows, _ := c.db.Query(ctx, findCategoriesQuery)
	categories, err := pgx.CollectRows(rows, pgx.RowToStructByName[Category])
	if err != nil {
		return nil, fmt.Errorf("failed to find categories: %w", err)
	}
	return categories, nil
}

func (c *PgCategoryStore) Create(ctx context.Context, name, image string) (*Category, error) {
	rows, _ := c.db.Query(ctx, createCategoryQuery, name, image)
	category, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Category])
	if err != nil {
		if isViolation(err, uniqueViolation) {
			return nil, apperrors.ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &category, nil
}

func isViolation(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

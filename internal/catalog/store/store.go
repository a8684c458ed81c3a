// Package store provides persistence for products, categories and reviews.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Product is a catalog product as stored.
type Product struct {
	ID          uuid.UUID `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Price       int64     `db:"price"`
	Stock       int32     `db:"stock"`
	Images      []string  `db:"images"`
	SellerID    uuid.UUID `db:"seller_id"`
	CategoryID  uuid.UUID `db:"category_id"`
	Version     int32     `db:"version"`
	CreatedAt   time.Time `db:"created_at"`
}

// ProductSummary is a list entry: the first image and the aggregated review score.
type ProductSummary struct {
	ID              uuid.UUID `db:"id"`
	Title           string    `db:"title"`
	Price           int64     `db:"price"`
	Stock           int32     `db:"stock"`
	Image           string    `db:"image"`
	NumberOfReviews int64     `db:"number_of_reviews"`
	AverageRating   float64   `db:"average_rating"`
}

type Category struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Image     string    `db:"image"`
	CreatedAt time.Time `db:"created_at"`
}

// Review is one user's rating of a product. A user has at most one review per product.
type Review struct {
	ProductID uuid.UUID `db:"product_id"`
	UserID    uuid.UUID `db:"user_id"`
	Rating    int32     `db:"rating"`
	Comment   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
}

// ListFilter selects a page of products. A nil CategoryID and an empty Search match everything.
type ListFilter struct {
	CategoryID *uuid.UUID
	Search     string
	Offset     int64
	Limit      int32
}

// ProductStore is an interface for product storage operations.
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindAll returns one page of products matching the filter and the total number of matches.
	FindAll(ctx context.Context, filter ListFilter) ([]ProductSummary, int64, error)

	// Create adds a new product. Returns ErrCategoryNotFound if the category does not exist.
	Create(ctx context.Context, p Product) (*Product, error)

	// UpdateStock sets the stock of a product if its version still matches.
	// Returns ErrProductNotFound for an unknown product and ErrOptimisticLock for a stale version.
	UpdateStock(ctx context.Context, id uuid.UUID, stock int32, version int32) (*Product, error)

	// FindReviews returns the reviews of a product, oldest first.
	FindReviews(ctx context.Context, productID uuid.UUID) ([]Review, error)

	// UpsertReview stores the user's review of a product, replacing an earlier one.
	// Returns ErrProductNotFound if the product does not exist.
	UpsertReview(ctx context.Context, r Review) (*Review, error)
}

// CategoryStore is an interface for category storage operations.
type CategoryStore interface {
	// FindByName returns ErrCategoryNotFound if no category has the name.
	FindByName(ctx context.Context, name string) (*Category, error)

	// FindAll returns all categories sorted by name.
	FindAll(ctx context.Context) ([]Category, error)

	// Create returns ErrCategoryAlreadyExists if the name is taken.
	Create(ctx context.Context, name, image string) (*Category, error)
}

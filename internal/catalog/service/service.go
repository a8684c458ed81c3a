// Package service provides the product catalog: products, categories and reviews.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/abgdnv/cartwish/internal/catalog/store"
	"github.com/google/uuid"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 8
)

// CatalogService defines the methods for managing the catalog.
type CatalogService interface {
	// FindProduct retrieves a product with its reviews.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindProduct(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// ListProducts returns one page of products, optionally restricted to a category name and a title search.
	// Returns ErrCategoryNotFound if the category name is unknown.
	ListProducts(ctx context.Context, query ListQuery) (*ProductPage, error)

	// CreateProduct adds a product sold by sellerID.
	CreateProduct(ctx context.Context, sellerID uuid.UUID, dto ProductCreateDto) (*ProductDto, error)

	// UpdateStock sets the stock of a product.
	// Returns ErrOptimisticLock if the product changed since the given version.
	UpdateStock(ctx context.Context, id uuid.UUID, dto StockUpdateDto) (*ProductDto, error)

	// AddReview stores the user's review of a product, replacing an earlier one by the same user.
	AddReview(ctx context.Context, productID, userID uuid.UUID, dto ReviewCreateDto) (*ReviewDto, error)

	CreateCategory(ctx context.Context, dto CategoryCreateDto) (*CategoryDto, error)

	// ListCategories returns all categories sorted by name.
	ListCategories(ctx context.Context) ([]CategoryDto, error)
}

// Service implements CatalogService.
type Service struct {
	products   store.ProductStore
	categories store.CategoryStore
}

// NewService creates a new instance of CatalogService.
func NewService(products store.ProductStore, categories store.CategoryStore) *Service {
	return &Service{products: products, categories: categories}
}

// ProductCreateDto represents the data transfer object for creating a new product.
// Images are stored references; the first one is the cover.
type ProductCreateDto struct {
	Title       string    `json:"title"       validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	Price       int64     `json:"price"       validate:"min=0"`
	Stock       int32     `json:"stock"       validate:"min=0"`
	Images      []string  `json:"images"      validate:"required,min=1,max=5,dive,required"`
	CategoryID  uuid.UUID `json:"categoryId"  validate:"required"`
}

// StockUpdateDto represents the data transfer object for updating product stock.
type StockUpdateDto struct {
	Stock   int32 `json:"stock"   validate:"min=0"`
	Version int32 `json:"version" validate:"required,min=1"`
}

type ReviewCreateDto struct {
	Rating  int32  `json:"rating"  validate:"min=0,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type CategoryCreateDto struct {
	Name  string `json:"name"  validate:"required,max=100"`
	Image string `json:"image" validate:"required"`
}

// ProductDto represents a product with its reviews.
// Version is read-only and used for optimistic concurrency control.
type ProductDto struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Price       int64         `json:"price"`
	Stock       int32         `json:"stock"`
	Images      []string      `json:"images"`
	SellerID    uuid.UUID     `json:"sellerId"`
	CategoryID  uuid.UUID     `json:"categoryId"`
	Reviews     []ReviewDto   `json:"reviews"`
	Review      ReviewSummary `json:"review"`
	Version     int32         `json:"version"`
	CreatedAt   string        `json:"createdAt"`
}

type ReviewDto struct {
	UserID    uuid.UUID `json:"userId"`
	Rating    int32     `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt string    `json:"createdAt"`
}

type ReviewSummary struct {
	NumberOfReviews int64   `json:"numberOfReviews"`
	AverageRating   float64 `json:"averageRating"`
}

// ProductSummaryDto is a product list entry; Images holds only the cover image.
type ProductSummaryDto struct {
	ID     uuid.UUID     `json:"id"`
	Title  string        `json:"title"`
	Price  int64         `json:"price"`
	Stock  int32         `json:"stock"`
	Images string        `json:"images"`
	Review ReviewSummary `json:"review"`
}

type ProductPage struct {
	Products      []ProductSummaryDto `json:"products"`
	TotalProducts int64               `json:"totalProducts"`
	TotalPages    int64               `json:"totalPages"`
	CurrentPage   int32               `json:"currentPage"`
	PostPerPage   int32               `json:"postPerPage"`
}

// ListQuery selects a page of products. Page starts at 1.
type ListQuery struct {
	Page     int32
	PerPage  int32
	Category string
	Search   string
}

type CategoryDto struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Image string    `json:"image"`
}

func (s *Service) FindProduct(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	reviews, err := s.products.FindReviews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reviews of product %s: %w", id, err)
	}
	return toProductDto(product, reviews), nil
}

func (s *Service) ListProducts(ctx context.Context, query ListQuery) (*ProductPage, error) {
	if query.Page < 1 {
		query.Page = DefaultPage
	}
	if query.PerPage < 1 {
		query.PerPage = DefaultPerPage
	}
	filter := store.ListFilter{
		Search: strings.TrimSpace(query.Search),
		Offset: int64(query.Page-1) * int64(query.PerPage),
		Limit:  query.PerPage,
	}
	if query.Category != "" {
		category, err := s.categories.FindByName(ctx, query.Category)
		if err != nil {
			return nil, err
		}
		filter.CategoryID = &category.ID
	}

	products, total, err := s.products.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	slog.DebugContext(ctx, "Products listed", "count", len(products), "total", total)

	dtos := make([]ProductSummaryDto, len(products))
	for i, p := range products {
		dtos[i] = ProductSummaryDto{
			ID:     p.ID,
			Title:  p.Title,
			Price:  p.Price,
			Stock:  p.Stock,
			Images: p.Image,
			Review: ReviewSummary{NumberOfReviews: p.NumberOfReviews, AverageRating: p.AverageRating},
		}
	}
	return &ProductPage{
		Products:      dtos,
		TotalProducts: total,
		TotalPages:    int64(math.Ceil(float64(total) / float64(query.PerPage))),
		CurrentPage:   query.Page,
		PostPerPage:   query.PerPage,
	}, nil
}

func (s *Service) CreateProduct(ctx context.Context, sellerID uuid.UUID, dto ProductCreateDto) (*ProductDto, error) {
	p, err := s.products.Create(ctx, store.Product{
		Title:       dto.Title,
		Description: dto.Description,
		Price:       dto.Price,
		Stock:       dto.Stock,
		Images:      dto.Images,
		SellerID:    sellerID,
		CategoryID:  dto.CategoryID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return toProductDto(p, nil), nil
}

func (s *Service) UpdateStock(ctx context.Context, id uuid.UUID, dto StockUpdateDto) (*ProductDto, error) {
	p, err := s.products.UpdateStock(ctx, id, dto.Stock, dto.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update stock for product with ID %s: %w", id, err)
	}
	reviews, err := s.products.FindReviews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reviews of product %s: %w", id, err)
	}
	return toProductDto(p, reviews), nil
}

func (s *Service) AddReview(ctx context.Context, productID, userID uuid.UUID, dto ReviewCreateDto) (*ReviewDto, error) {
	r, err := s.products.UpsertReview(ctx, store.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    dto.Rating,
		Comment:   dto.Comment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to review product %s: %w", productID, err)
	}
	return toReviewDto(*r), nil
}

func (s *Service) CreateCategory(ctx context.Context, dto CategoryCreateDto) (*CategoryDto, error) {
	c, err := s.categories.Create(ctx, strings.TrimSpace(dto.Name), dto.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &CategoryDto{ID: c.ID, Name: c.Name, Image: c.Image}, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]CategoryDto, error) {
	categories, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	dtos := make([]CategoryDto, len(categories))
	for i, c := range categories {
		dtos[i] = CategoryDto{ID: c.ID, Name: c.Name, Image: c.Image}
	}
	return dtos, nil
}

func toProductDto(p *store.Product, reviews []store.Review) *ProductDto {
	dto := &ProductDto{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Images:      p.Images,
		SellerID:    p.SellerID,
		CategoryID:  p.CategoryID,
		Reviews:     make([]ReviewDto, 0, len(reviews)),
		Version:     p.Version,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	var sum int64
	for _, r := range reviews {
		dto.Reviews = append(dto.Reviews, *toReviewDto(r))
		sum += int64(r.Rating)
	}
	dto.Review = ReviewSummary{
		NumberOfReviews: int64(len(reviews)),
		AverageRating:   float64(sum) / float64(max(len(reviews), 1)),
	}
	return dto
}

func toReviewDto(r store.Review) *ReviewDto {
	return &ReviewDto{
		UserID:    r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

// Package service orchestrates cart mutations: it reads the product from the catalog,
// applies the change to the user's cart, persists it and announces the new state.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/cartwish/internal/cart"
	"github.com/abgdnv/cartwish/internal/cart/store"
	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/abgdnv/cartwish/pkg/messaging"
	"github.com/abgdnv/cartwish/pkg/messaging/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	MessageAdded    = "product added to cart"
	MessageFetched  = "cart fetched"
	MessageUpdated  = "quantity updated"
	MessageRemoved  = "product removed"
	instrumentation = "cart-service"
)

// Operation names used in events and metrics.
const (
	OpAdd      = "add"
	OpIncrease = "increase"
	OpDecrease = "decrease"
	OpRemove   = "remove"
)

// CartService defines the cart operations available to an authenticated user.
type CartService interface {
	// AddToCart puts quantity units of the product into the user's cart, creating the cart on first use.
	// Returns ErrProductNotFound if the product does not exist, in which case no cart is created.
	AddToCart(ctx context.Context, userID, productID uuid.UUID, quantity int32) (*Result, error)

	// GetCart returns the user's cart. Returns ErrCartNotFound if the user has never added anything.
	GetCart(ctx context.Context, userID uuid.UUID) (*Result, error)

	// IncreaseQuantity adds one unit of a product already in the cart.
	IncreaseQuantity(ctx context.Context, userID, productID uuid.UUID) (*Result, error)

	// DecreaseQuantity removes one unit of a product; the line item is dropped at quantity one.
	DecreaseQuantity(ctx context.Context, userID, productID uuid.UUID) (*Result, error)
}

// CatalogReader is the part of the catalog the cart depends on.
type CatalogReader interface {
	// FindProduct returns the current product snapshot or ErrProductNotFound.
	FindProduct(ctx context.Context, id uuid.UUID) (*cart.Product, error)
}

// Service implements CartService.
type Service struct {
	carts     store.CartStore
	catalog   CatalogReader
	publisher messaging.Publisher
	mutations metric.Int64Counter
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService creates a new instance of CartService.
func NewService(carts store.CartStore, catalog CatalogReader, publisher messaging.Publisher) *Service {
	meter := otel.Meter(instrumentation)
	mutations, err := meter.Int64Counter("cart_mutations", metric.WithDescription("Total number of cart mutation attempts"))
	if err != nil {
		panic(fmt.Sprintf("failed to create cart_mutations counter: %v", err))
	}
	return &Service{
		carts:     carts,
		catalog:   catalog,
		publisher: publisher,
		mutations: mutations,
		tracer:    otel.Tracer(instrumentation),
		now:       time.Now,
	}
}

// CartDto is the cart as returned to clients.
type CartDto struct {
	UserID         uuid.UUID       `json:"userId"`
	Products       []cart.LineItem `json:"products"`
	TotalProducts  int32           `json:"totalProducts"`
	TotalCartPrice int64           `json:"totalCartPrice"`
	Version        int32           `json:"version"`
}

// Result is the outcome of a cart operation.
type Result struct {
	Message string   `json:"message"`
	Cart    *CartDto `json:"cart"`
}

func (s *Service) AddToCart(ctx context.Context, userID, productID uuid.UUID, quantity int32) (res *Result, err error) {
	ctx, end := s.start(ctx, OpAdd, userID, productID)
	defer func() { end(err) }()

	if productID == uuid.Nil {
		return nil, fmt.Errorf("product id is required: %w", apperrors.ErrValidation)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1, got %d: %w", quantity, apperrors.ErrValidation)
	}

	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.FindByUserID(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrCartNotFound):
		c = cart.New(userID)
	case err != nil:
		return nil, err
	}

	if err = c.Add(*product, quantity); err != nil {
		slog.WarnContext(ctx, "Add to cart rejected", "product_id", productID, "quantity", quantity, "error", err)
		return nil, err
	}
	return s.persist(ctx, c, OpAdd, productID, MessageAdded)
}

func (s *Service) GetCart(ctx context.Context, userID uuid.UUID) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "cart.get", trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	c, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &Result{Message: MessageFetched, Cart: toDto(c)}, nil
}

func (s *Service) IncreaseQuantity(ctx context.Context, userID, productID uuid.UUID) (res *Result, err error) {
	ctx, end := s.start(ctx, OpIncrease, userID, productID)
	defer func() { end(err) }()

	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	c, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err = c.Increase(productID, product.Stock); err != nil {
		return nil, err
	}
	return s.persist(ctx, c, OpIncrease, productID, MessageUpdated)
}

func (s *Service) DecreaseQuantity(ctx context.Context, userID, productID uuid.UUID) (res *Result, err error) {
	ctx, end := s.start(ctx, OpDecrease, userID, productID)
	defer func() { end(err) }()

	c, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	removed, err := c.Decrease(productID)
	if err != nil {
		return nil, err
	}
	if removed {
		return s.persist(ctx, c, OpRemove, productID, MessageRemoved)
	}
	return s.persist(ctx, c, OpDecrease, productID, MessageUpdated)
}

// persist saves the cart and publishes the resulting state. A failed publish is logged only:
// the cart is already stored and the caller gets the saved version.
func (s *Service) persist(ctx context.Context, c *cart.Cart, op string, productID uuid.UUID, message string) (*Result, error) {
	saved, err := s.carts.Save(ctx, c)
	if err != nil {
		if errors.Is(err, apperrors.ErrOptimisticLock) {
			slog.WarnContext(ctx, "Concurrent cart modification", "operation", op, "version", c.Version)
		}
		return nil, err
	}

	var quantity int32
	if item, ok := saved.Item(productID); ok {
		quantity = item.Quantity
	}
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event := events.CartUpdatedEvent{
		Carrier:        carrier,
		UserID:         saved.UserID,
		Operation:      op,
		ProductID:      productID,
		Quantity:       quantity,
		TotalProducts:  saved.TotalProducts,
		TotalCartPrice: saved.TotalCartPrice,
		Version:        saved.Version,
		OccurredAt:     s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish CartUpdatedEvent", "error", err)
	}

	return &Result{Message: message, Cart: toDto(saved)}, nil
}

// start opens a span for a mutation and returns a func that records its outcome.
func (s *Service) start(ctx context.Context, op string, userID, productID uuid.UUID) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "cart."+op, trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("product.id", productID.String()),
	))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.mutations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("result", resultOf(err)),
		))
		span.End()
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrValidation):
		return "invalid"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, apperrors.ErrOptimisticLock):
		return "conflict"
	default:
		return "error"
	}
}

func toDto(c *cart.Cart) *CartDto {
	products := make([]cart.LineItem, len(c.Products))
	copy(products, c.Products)
	return &CartDto{
		UserID:         c.UserID,
		Products:       products,
		TotalProducts:  c.TotalProducts,
		TotalCartPrice: c.TotalCartPrice,
		Version:        c.Version,
	}
}

// Package rest provides HTTP handlers for cart operations.
package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/cartwish/internal/cart/service"
	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/abgdnv/cartwish/pkg/auth"
	"github.com/abgdnv/cartwish/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const productIDKey = "productId"

type Handler struct {
	service  service.CartService
	verifier auth.Verifier
	validate *validator.Validate
	logger   *slog.Logger
}

// AddToCartDto is the body of POST /api/cart/{productId}.
type AddToCartDto struct {
	Quantity int32 `json:"quantity" validate:"required,min=1"`
}

// NewHandler creates a new cart Handler.
func NewHandler(service service.CartService, verifier auth.Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		verifier: verifier,
		validate: validator.New(),
		logger:   logger.With("component", "cart-rest"),
	}
}

// RegisterRoutes registers the cart routes. Every route requires an authenticated user.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(web.AuthMiddleware(h.verifier, h.logger))
		r.Get("/", h.GetCart)
		r.Post("/{productId}", h.AddToCart)
		r.Patch("/increase/{productId}", h.IncreaseQuantity)
		r.Patch("/decrease/{productId}", h.DecreaseQuantity)
	})
}

// AddToCart adds the requested quantity of a product to the caller's cart.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := web.GetPrincipal(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := web.ParseID(w, r, h.logger, productIDKey)
	if !ok {
		return
	}
	var dto AddToCartDto
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &dto) {
		return
	}

	h.logger.DebugContext(r.Context(), "Received request to add product to cart", "product_id", productID, "quantity", dto.Quantity)
	res, err := h.service.AddToCart(r.Context(), principal.UserID, productID, dto.Quantity)
	if err != nil {
		h.respondServiceError(w, r, err, productID)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, res)
}

// GetCart returns the caller's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := web.GetPrincipal(w, r, h.logger)
	if !ok {
		return
	}
	res, err := h.service.GetCart(r.Context(), principal.UserID)
	if err != nil {
		h.respondServiceError(w, r, err, uuid.Nil)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, res)
}

func (h *Handler) IncreaseQuantity(w http.ResponseWriter, r *http.Request) {
	h.changeQuantity(w, r, h.service.IncreaseQuantity)
}

func (h *Handler) DecreaseQuantity(w http.ResponseWriter, r *http.Request) {
	h.changeQuantity(w, r, h.service.DecreaseQuantity)
}

type quantityChange func(ctx context.Context, userID, productID uuid.UUID) (*service.Result, error)

func (h *Handler) changeQuantity(w http.ResponseWriter, r *http.Request, change quantityChange) {
	principal, ok := web.GetPrincipal(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := web.ParseID(w, r, h.logger, productIDKey)
	if !ok {
		return
	}
	res, err := change(r.Context(), principal.UserID, productID)
	if err != nil {
		h.respondServiceError(w, r, err, productID)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, res)
}

// respondServiceError maps cart service errors to HTTP responses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, productID uuid.UUID) {
	ctx := r.Context()
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrInsufficientStock):
		h.logger.WarnContext(ctx, "Cart request rejected", "product_id", productID, "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrCartNotFound):
		web.RespondError(w, h.logger, http.StatusNotFound, "Cart not found")
	case errors.Is(err, apperrors.ErrCartItemNotFound):
		web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %s is not in the cart", productID))
	case errors.Is(err, apperrors.ErrProductNotFound):
		web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", productID))
	case errors.Is(err, apperrors.ErrOptimisticLock):
		h.logger.WarnContext(ctx, "Cart modified concurrently", "product_id", productID)
		web.RespondError(w, h.logger, http.StatusConflict, "Cart has been modified by another request, please retry")
	case errors.Is(err, apperrors.ErrUnavailable):
		h.logger.ErrorContext(ctx, "Catalog unavailable", "error", err)
		web.RespondError(w, h.logger, http.StatusServiceUnavailable, "Catalog is temporarily unavailable")
	default:
		h.logger.ErrorContext(ctx, "Error processing cart request", "product_id", productID, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to process cart request")
	}
}

// Package rest provides HTTP handlers for products and categories.
package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/cartwish/internal/catalog/service"
	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/abgdnv/cartwish/pkg/auth"
	"github.com/abgdnv/cartwish/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const (
	maxPerPage = 100
	idKey      = "id"
)

type Handler struct {
	service  service.CatalogService
	verifier auth.Verifier
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new catalog Handler.
func NewHandler(service service.CatalogService, verifier auth.Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		verifier: verifier,
		validate: validator.New(),
		logger:   logger.With("component", "catalog-rest"),
	}
}

// RegisterRoutes registers the product and category routes.
// Reads are public, writes need a token and catalog writes need the admin role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	authenticated := web.AuthMiddleware(h.verifier, h.logger)
	adminOnly := web.RequireRole(h.logger, auth.RoleAdmin)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.With(authenticated, adminOnly).Post("/", h.CreateProduct)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindProduct)
			r.With(authenticated, adminOnly).Put("/stock", h.UpdateStock)
			r.With(authenticated).Post("/reviews", h.AddReview)
		})
	})

	r.Route("/api/category", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.With(authenticated, adminOnly).Post("/", h.CreateCategory)
	})
}

// FindProduct retrieves a product by its ID.
func (h *Handler) FindProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger, idKey)
	if !ok {
		return
	}
	found, err := h.service.FindProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrProductNotFound) {
			h.logger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		h.logger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve product with ID %s", id))
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, found)
}

// ListProducts returns a page of products filtered by the category and search query parameters.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, ok := web.ParseOptionalGte(r, w, h.logger, "page", 1, service.DefaultPage)
	if !ok {
		return
	}
	perPage, ok := web.ParseOptionalBetween(r, w, h.logger, "perPage", 1, maxPerPage, service.DefaultPerPage)
	if !ok {
		return
	}
	query := service.ListQuery{
		Page:     page,
		PerPage:  perPage,
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	}

	h.logger.DebugContext(r.Context(), "Received request to list products", "query", query)
	list, err := h.service.ListProducts(r.Context(), query)
	if err != nil {
		if errors.Is(err, apperrors.ErrCategoryNotFound) {
			web.RespondError(w, h.logger, http.StatusNotFound, "Category not found!")
			return
		}
		h.logger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

// CreateProduct handles the creation of a new product. The caller becomes the seller.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := web.GetPrincipal(w, r, h.logger)
	if !ok {
		return
	}
	var dto service.ProductCreateDto
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &dto) {
		return
	}

	created, err := h.service.CreateProduct(r.Context(), principal.UserID, dto)
	if err != nil {
		if errors.Is(err, apperrors.ErrCategoryNotFound) {
			web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Category with ID %s not found", dto.CategoryID))
			return
		}
		h.logger.ErrorContext(r.Context(), "Error creating product", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to create product")
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Title", created.Title)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

// UpdateStock sets the stock of a product; the body carries the version the caller last saw.
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger, idKey)
	if !ok {
		return
	}
	var dto service.StockUpdateDto
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &dto) {
		return
	}

	updated, err := h.service.UpdateStock(r.Context(), id, dto)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrProductNotFound):
			web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
		case errors.Is(err, apperrors.ErrOptimisticLock):
			h.logger.WarnContext(r.Context(), "Optimistic lock error during stock update", "ID", id)
			web.RespondError(w, h.logger, http.StatusConflict, fmt.Sprintf("Product with ID %s has been modified by another user", id))
		default:
			h.logger.ErrorContext(r.Context(), "Error updating stock for product", "ID", id, "error", err)
			web.RespondError(w, h.logger, http.StatusInternalServerError, fmt.Sprintf("Failed to update stock for product with ID %s", id))
		}
		return
	}
	h.logger.InfoContext(r.Context(), "Stock updated successfully for product", "ID", updated.ID, "NewStock", updated.Stock)
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

// AddReview stores the caller's review of a product.
func (h *Handler) AddReview(w http.ResponseWriter, r *http.Request) {
	principal, ok := web.GetPrincipal(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, h.logger, idKey)
	if !ok {
		return
	}
	var dto service.ReviewCreateDto
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &dto) {
		return
	}

	review, err := h.service.AddReview(r.Context(), id, principal.UserID, dto)
	if err != nil {
		if errors.Is(err, apperrors.ErrProductNotFound) {
			web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		h.logger.ErrorContext(r.Context(), "Error saving review", "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to save review")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusCreated, review)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var dto service.CategoryCreateDto
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &dto) {
		return
	}
	created, err := h.service.CreateCategory(r.Context(), dto)
	if err != nil {
		if errors.Is(err, apperrors.ErrCategoryAlreadyExists) {
			web.RespondError(w, h.logger, http.StatusConflict, fmt.Sprintf("Category %s already exists", dto.Name))
			return
		}
		h.logger.ErrorContext(r.Context(), "Error creating category", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to create category")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error retrieving categories", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

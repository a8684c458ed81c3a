// Package rest provides HTTP handlers for registration, login and the current user profile.
package rest

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/abgdnv/cartwish/internal/user/service"
	"github.com/abgdnv/cartwish/pkg/auth"
	"github.com/abgdnv/cartwish/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  service.UserService
	verifier auth.Verifier
	validate *validator.Validate
	logger   *slog.Logger
}

// TokenResponse is returned by registration.
type TokenResponse struct {
	Token string `json:"token"`
}

// NewHandler creates a new user Handler.
func NewHandler(service service.UserService, verifier auth.Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		verifier: verifier,
		validate: validator.New(),
		logger:   logger.With("component", "user-rest"),
	}
}

// RegisterRoutes registers the user and auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/user", h.Register)
	r.With(web.AuthMiddleware(h.verifier, h.logger)).Get("/api/user", h.Me)
	r.Post("/api/auth/login", h.Login)
}

// Register creates an account and responds with a token for it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto service.RegisterDto
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &dto) {
		return
	}
	token, err := h.service.Register(r.Context(), dto)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			web.RespondError(w, h.logger, http.StatusConflict, "User already exists")
			return
		}
		if errors.Is(err, apperrors.ErrValidation) {
			web.RespondError(w, h.logger, http.StatusBadRequest, "Password must not exceed 72 bytes")
			return
		}
		h.logger.ErrorContext(r.Context(), "Error registering user", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to register user")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusCreated, TokenResponse{Token: token})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto service.LoginDto
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &dto) {
		return
	}
	res, err := h.service.Login(r.Context(), dto)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			web.RespondError(w, h.logger, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.ErrorContext(r.Context(), "Error during login", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to log in")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, res)
}

// Me returns the profile of the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := web.GetPrincipal(w, r, h.logger)
	if !ok {
		return
	}
	me, err := h.service.Me(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			web.RespondError(w, h.logger, http.StatusNotFound, "User not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "Error retrieving user", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, me)
}

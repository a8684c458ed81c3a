package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/cartwish/pkg/auth"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// RespondJSON writes payload as a JSON body with the given status. A nil payload writes the status only.
func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to encode response", "error", err, "status", status)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Debug("Failed to write response", "error", err)
	}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, ErrorResponse{Error: message})
}

// DecodeAndValidate reads a JSON body into dst and runs the struct validation rules.
// On failure the 400 response is already written and false is returned.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return Validate(w, r, logger, validate, dst)
}

// Validate runs the struct validation rules on v. On failure the 400 response is already written.
func Validate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, validate *validator.Validate, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorResponse := make(map[string]string)
		for _, fieldErr := range validationErrors {
			// fieldErr.Tag() returns "required", "max", etc.
			errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
		}
		logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
		RespondJSON(w, logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
		return false
	}
	logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
	RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
	return false
}

// ParseID extracts and validates the UUID path parameter named key. Returns the ID and a boolean indicating success.
func ParseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger, key string) (uuid.UUID, bool) {
	pathValueID := r.PathValue(key)
	id, err := uuid.Parse(pathValueID)
	if err != nil {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %s", key, pathValueID))
		return uuid.UUID{}, false
	}
	return id, true
}

// GetPrincipal retrieves the authenticated principal from the request context. Returns the principal and a boolean indicating success.
func GetPrincipal(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok || p.UserID == uuid.Nil {
		RespondError(w, logger, http.StatusUnauthorized, "Unauthorized: missing or invalid principal")
		return auth.Principal{}, false
	}
	return p, true
}

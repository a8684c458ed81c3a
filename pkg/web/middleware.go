package web

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/abgdnv/cartwish/pkg/auth"
	"github.com/go-chi/chi/v5/middleware"
)

const XRequestID = "X-Request-Id"

// AuthMiddleware verifies the bearer token in the Authorization header and
// stores the resulting principal in the request context.
// Requests without a valid token are rejected with 401 before reaching next.
func AuthMiddleware(verifier auth.Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				RespondError(w, logger, http.StatusUnauthorized, "Authorization header is required")
				return
			}

			tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || tokenString == "" {
				RespondError(w, logger, http.StatusUnauthorized, "Bearer token is required")
				return
			}

			token, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				logger.WarnContext(r.Context(), "Token verification failed", "error", err)
				RespondError(w, logger, http.StatusUnauthorized, "Invalid token")
				return
			}

			principal, err := auth.PrincipalFromToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "Token carries no usable principal", "error", err)
				RespondError(w, logger, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole rejects principals that hold none of the given roles. Must run after AuthMiddleware.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	denied := "Access denied: " + strings.Join(roles, ", ") + " only!"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(w, r, logger)
			if !ok {
				return
			}
			if !p.HasRole(roles...) {
				logger.WarnContext(r.Context(), "Role check failed", "role", p.Role, "required", roles)
				RespondError(w, logger, http.StatusForbidden, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDHeader echoes the request id assigned by middleware.RequestID back to the client.
func RequestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set(XRequestID, reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// StructuredLogger logs one line per request once the handler returns.
// Server errors are logged at error level and client errors at warn level.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Log(r.Context(), levelFor(status), "Request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Recoverer turns a handler panic into a 500 JSON error. http.ErrAbortHandler is re-panicked.
func Recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logger.ErrorContext(r.Context(), "Panic recovered", "panic", rvr, "path", r.URL.Path)
				RespondError(w, logger, http.StatusInternalServerError, "Internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

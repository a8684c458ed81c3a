// Package app wires the cartwish stores, services and HTTP handlers together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	cartservice "github.com/abgdnv/cartwish/internal/cart/service"
	cartstore "github.com/abgdnv/cartwish/internal/cart/store"
	cartrest "github.com/abgdnv/cartwish/internal/cart/transport/rest"
	catalogservice "github.com/abgdnv/cartwish/internal/catalog/service"
	catalogstore "github.com/abgdnv/cartwish/internal/catalog/store"
	catalogrest "github.com/abgdnv/cartwish/internal/catalog/transport/rest"
	"github.com/abgdnv/cartwish/internal/config"
	userservice "github.com/abgdnv/cartwish/internal/user/service"
	userstore "github.com/abgdnv/cartwish/internal/user/store"
	userrest "github.com/abgdnv/cartwish/internal/user/transport/rest"
	"github.com/abgdnv/cartwish/pkg/auth"
	pkgconfig "github.com/abgdnv/cartwish/pkg/config"
	"github.com/abgdnv/cartwish/pkg/messaging"
	"github.com/abgdnv/cartwish/pkg/server"
	"github.com/abgdnv/cartwish/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "cartwish"

// Infrastructure holds the connections opened by main. Redis is nil unless the redis cart store is selected.
type Infrastructure struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Publisher messaging.Publisher
	Verifier  auth.Verifier
	// Issuer is nil when tokens come from an external IdP.
	Issuer userservice.TokenIssuer
	// Metrics serves the Prometheus exposition; nil disables /metrics.
	Metrics http.Handler
}

type Dependencies struct {
	CartService    cartservice.CartService
	CatalogService catalogservice.CatalogService
	// UserService is nil when accounts live in an external IdP.
	UserService userservice.UserService
	Verifier    auth.Verifier
	Health      func(ctx context.Context) error
	// CatalogState reports the circuit breaker guarding the cart engine's catalog reads.
	CatalogState func() gobreaker.State
	Metrics      http.Handler
	MetricsPath  string
	Logger       *slog.Logger
}

// SetupDependencies builds the stores and services for the configured backends.
func SetupDependencies(infra Infrastructure, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	carts, err := newCartStore(infra, cfg)
	if err != nil {
		return nil, err
	}

	products := catalogstore.NewPgProductStore(infra.DB)
	catalog := cartservice.NewBreakerCatalog(newCatalogReader(products), cfg.CircuitBreaker)

	publisher := infra.Publisher
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}

	deps := &Dependencies{
		CartService:    cartservice.NewService(carts, catalog, publisher),
		CatalogService: catalogservice.NewService(products, catalogstore.NewPgCategoryStore(infra.DB)),
		Verifier:       infra.Verifier,
		Health:         infra.DB.Ping,
		CatalogState:   catalog.State,
		Metrics:        infra.Metrics,
		MetricsPath:    cfg.Telemetry.Metrics.Path,
		Logger:         logger,
	}
	if infra.Issuer != nil {
		deps.UserService = userservice.NewService(userstore.NewPgStore(infra.DB), infra.Issuer, cfg.User.BcryptCost)
	}
	return deps, nil
}

func newCartStore(infra Infrastructure, cfg *config.Config) (cartstore.CartStore, error) {
	switch cfg.Cart.Store {
	case config.CartStoreMemory:
		return cartstore.NewMemoryStore(), nil
	case config.CartStorePostgres:
		return cartstore.NewPgStore(infra.DB), nil
	case config.CartStoreRedis:
		if infra.Redis == nil {
			return nil, fmt.Errorf("cart store %q needs a redis client", cfg.Cart.Store)
		}
		return cartstore.NewRedisStore(infra.Redis, cfg.Redis.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cart store: %q", cfg.Cart.Store)
	}
}

// NewVerifier returns the token verifier for the configured auth mode, and the local issuer when tokens are signed here.
func NewVerifier(ctx context.Context, cfg pkgconfig.AuthConfig) (auth.Verifier, userservice.TokenIssuer, error) {
	switch cfg.Mode {
	case pkgconfig.AuthModeLocal:
		return auth.NewHMACVerifier(cfg.Secret, cfg.Issuer), auth.NewIssuer(cfg.Secret, cfg.Issuer, cfg.TTL), nil
	case pkgconfig.AuthModeJWKS:
		v, err := auth.NewJWKSVerifier(ctx, cfg.IdP)
		if err != nil {
			return nil, nil, err
		}
		return v, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown auth mode: %q", cfg.Mode)
	}
}

// SetupHttpHandler initializes the routes and middleware for the cartwish API.
// Used by E2E tests to run the application in an httptest.Server.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, serviceName, otelhttp.WithSpanNameFormatter(spanName))
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	cartrest.NewHandler(deps.CartService, deps.Verifier, deps.Logger).RegisterRoutes(mux)
	catalogrest.NewHandler(deps.CatalogService, deps.Verifier, deps.Logger).RegisterRoutes(mux)
	if deps.UserService != nil {
		userrest.NewHandler(deps.UserService, deps.Verifier, deps.Logger).RegisterRoutes(mux)
	}

	mux.Get("/healthz", healthCheck(deps))
	if deps.Metrics != nil && deps.MetricsPath != "" {
		mux.Method(http.MethodGet, deps.MetricsPath, deps.Metrics)
	}
}

// healthCheck answers 503 when the database is unreachable. The catalog breaker state is reported
// but does not fail the check: an open breaker recovers on its own.
func healthCheck(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(r.Context()); err != nil {
				deps.Logger.ErrorContext(r.Context(), "Health check failed", "error", err)
				web.RespondError(w, deps.Logger, http.StatusServiceUnavailable, "unhealthy")
				return
			}
		}
		status := map[string]string{"status": "ok"}
		if deps.CatalogState != nil {
			status["catalog"] = deps.CatalogState().String()
		}
		web.RespondJSON(w, deps.Logger, http.StatusOK, status)
	}
}

func spanName(_ string, r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// SetupHttpServer creates and configures an HTTP server for the cartwish API.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, SetupHttpHandler(deps))
}

package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cartservice "github.com/abgdnv/cartwish/internal/cart/service"
	cartstore "github.com/abgdnv/cartwish/internal/cart/store"
	catalogstore "github.com/abgdnv/cartwish/internal/catalog/store"
	"github.com/abgdnv/cartwish/internal/config"
	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/abgdnv/cartwish/pkg/auth"
	pkgconfig "github.com/abgdnv/cartwish/pkg/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProducts struct {
	catalogstore.ProductStore
	products map[uuid.UUID]catalogstore.Product
}

func (s stubProducts) FindByID(_ context.Context, id uuid.UUID) (*catalogstore.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.ErrProductNotFound
	}
	return &p, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestCatalogReader_FindProduct(t *testing.T) {
	id := uuid.New()
	reader := newCatalogReader(stubProducts{products: map[uuid.UUID]catalogstore.Product{
		id: {ID: id, Title: "Mug", Price: 1250, Stock: 4, Images: []string{"front.png", "back.png"}, Version: 3},
	}})

	t.Run("first image becomes the cart image", func(t *testing.T) {
		p, err := reader.FindProduct(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, "Mug", p.Title)
		assert.Equal(t, int64(1250), p.Price)
		assert.Equal(t, int32(4), p.Stock)
		assert.Equal(t, "front.png", p.Image)
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := reader.FindProduct(context.Background(), uuid.New())

		require.ErrorIs(t, err, apperrors.ErrProductNotFound)
	})
}

func TestNewCartStore(t *testing.T) {
	testCases := []struct {
		name    string
		store   string
		infra   Infrastructure
		want    any
		wantErr bool
	}{
		{name: "memory", store: config.CartStoreMemory, want: &cartstore.MemoryStore{}},
		{name: "postgres", store: config.CartStorePostgres, want: &cartstore.PgStore{}},
		{name: "redis", store: config.CartStoreRedis, infra: Infrastructure{Redis: redis.NewClient(&redis.Options{Addr: "localhost:0"})}, want: &cartstore.RedisStore{}},
		{name: "redis without client", store: config.CartStoreRedis, wantErr: true},
		{name: "unknown", store: "mongo", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			cfg := &config.Config{Cart: config.CartConfig{Store: tc.store}}

			// when
			s, err := newCartStore(tc.infra, cfg)

			// then
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tc.want, s)
		})
	}
}

func TestNewVerifier_Local(t *testing.T) {
	cfg := pkgconfig.AuthConfig{Mode: pkgconfig.AuthModeLocal, Secret: "0123456789abcdef0123456789abcdef", Issuer: "cartwish", TTL: time.Hour}

	verifier, issuer, err := NewVerifier(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, issuer)

	userID := uuid.New()
	token, err := issuer.Issue(auth.Principal{UserID: userID, Role: auth.RoleAdmin})
	require.NoError(t, err)
	parsed, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	p, err := auth.PrincipalFromToken(parsed)
	require.NoError(t, err)
	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, auth.RoleAdmin, p.Role)

	_, _, err = NewVerifier(context.Background(), pkgconfig.AuthConfig{Mode: "oauth"})
	assert.Error(t, err)
}

func newTestDeps(health func(context.Context) error) *Dependencies {
	return &Dependencies{
		CartService: cartservice.NewService(cartstore.NewMemoryStore(), nil, nil),
		Verifier:    auth.NewHMACVerifier("0123456789abcdef0123456789abcdef", "cartwish"),
		Health:      health,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "cart_mutations_total 0\n")
		}),
		MetricsPath: "/metrics",
		Logger:      discardLogger(),
	}
}

func TestSetupHttpHandler(t *testing.T) {
	testCases := []struct {
		name         string
		health       func(context.Context) error
		method       string
		path         string
		expectedCode int
		expectedBody string
	}{
		{name: "healthy", method: http.MethodGet, path: "/healthz", expectedCode: http.StatusOK, expectedBody: `"status":"ok"`},
		{name: "unhealthy", health: func(context.Context) error { return errors.New("db down") }, method: http.MethodGet, path: "/healthz", expectedCode: http.StatusServiceUnavailable},
		{name: "metrics", method: http.MethodGet, path: "/metrics", expectedCode: http.StatusOK, expectedBody: "cart_mutations_total"},
		{name: "cart needs a token", method: http.MethodGet, path: "/api/cart", expectedCode: http.StatusUnauthorized},
		{name: "user routes absent without issuer", method: http.MethodPost, path: "/api/auth/login", expectedCode: http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			handler := SetupHttpHandler(newTestDeps(tc.health))
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
			rr := httptest.NewRecorder()

			// when
			handler.ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedBody != "" {
				assert.Contains(t, rr.Body.String(), tc.expectedBody)
			}
			assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
		})
	}
}

func TestHealthCheck_ReportsCatalogBreaker(t *testing.T) {
	// given
	deps := newTestDeps(nil)
	deps.CatalogState = func() gobreaker.State { return gobreaker.StateOpen }
	rr := httptest.NewRecorder()

	// when
	SetupHttpHandler(deps).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	// then
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","catalog":"open"}`, rr.Body.String())
}

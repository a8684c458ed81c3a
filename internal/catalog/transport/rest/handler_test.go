package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abgdnv/cartwish/internal/catalog/service"
	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/abgdnv/cartwish/pkg/auth"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// mockCatalogService is a mock implementation of the CatalogService interface.
type mockCatalogService struct {
	product    *service.ProductDto
	page       *service.ProductPage
	review     *service.ReviewDto
	category   *service.CategoryDto
	categories []service.CategoryDto
	error      error

	gotQuery  service.ListQuery
	gotSeller uuid.UUID
	gotStock  service.StockUpdateDto
}

func (m *mockCatalogService) FindProduct(_ context.Context, _ uuid.UUID) (*service.ProductDto, error) {
	return m.product, m.error
}

func (m *mockCatalogService) ListProducts(_ context.Context, query service.ListQuery) (*service.ProductPage, error) {
	m.gotQuery = query
	return m.page, m.error
}

func (m *mockCatalogService) CreateProduct(_ context.Context, sellerID uuid.UUID, _ service.ProductCreateDto) (*service.ProductDto, error) {
	m.gotSeller = sellerID
	return m.product, m.error
}

func (m *mockCatalogService) UpdateStock(_ context.Context, _ uuid.UUID, dto service.StockUpdateDto) (*service.ProductDto, error) {
	m.gotStock = dto
	return m.product, m.error
}

func (m *mockCatalogService) AddReview(_ context.Context, _, _ uuid.UUID, _ service.ReviewCreateDto) (*service.ReviewDto, error) {
	return m.review, m.error
}

func (m *mockCatalogService) CreateCategory(_ context.Context, _ service.CategoryCreateDto) (*service.CategoryDto, error) {
	return m.category, m.error
}

func (m *mockCatalogService) ListCategories(_ context.Context) ([]service.CategoryDto, error) {
	return m.categories, m.error
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	bytes, err := json.Marshal(v)
	require.NoError(t, err)
	return string(bytes)
}

func newRouter(svc service.CatalogService) *chi.Mux {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	router := chi.NewRouter()
	NewHandler(svc, auth.NewHMACVerifier(testSecret, "cartwish"), logger).RegisterRoutes(router)
	return router
}

func bearer(t *testing.T, p auth.Principal) string {
	t.Helper()
	token, err := auth.NewIssuer(testSecret, "cartwish", time.Hour).Issue(p)
	require.NoError(t, err)
	return "Bearer " + token
}

func Test_CatalogAPI_ListProducts(t *testing.T) {
	page := &service.ProductPage{Products: []service.ProductSummaryDto{}, TotalProducts: 0, TotalPages: 0, CurrentPage: 2, PostPerPage: 4}

	testCases := []struct {
		name          string
		url           string
		mockService   mockCatalogService
		expectedCode  int
		expectedBody  string
		expectedQuery service.ListQuery
	}{
		{
			name:          "Success - defaults",
			url:           "/api/products",
			mockService:   mockCatalogService{page: page},
			expectedCode:  http.StatusOK,
			expectedBody:  toJSON(t, page),
			expectedQuery: service.ListQuery{Page: 1, PerPage: 8},
		},
		{
			name:          "Success - all filters",
			url:           "/api/products?page=2&perPage=4&category=books&search=go",
			mockService:   mockCatalogService{page: page},
			expectedCode:  http.StatusOK,
			expectedBody:  toJSON(t, page),
			expectedQuery: service.ListQuery{Page: 2, PerPage: 4, Category: "books", Search: "go"},
		},
		{
			name:         "Error - page zero",
			url:          "/api/products?page=0",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid page number: 0"}),
		},
		{
			name:         "Error - perPage too large",
			url:          "/api/products?perPage=1000",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid perPage number: 1000"}),
		},
		{
			name:         "Error - unknown category",
			url:          "/api/products?category=garden",
			mockService:  mockCatalogService{error: apperrors.ErrCategoryNotFound},
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Category not found!"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			rr := httptest.NewRecorder()

			// when
			newRouter(&tc.mockService).ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			if tc.expectedCode == http.StatusOK {
				assert.Equal(t, tc.expectedQuery, tc.mockService.gotQuery)
			}
		})
	}
}

func Test_CatalogAPI_FindProduct(t *testing.T) {
	id := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	product := &service.ProductDto{ID: id, Title: "Desk", Images: []string{"desk.png"}, Reviews: []service.ReviewDto{}, Version: 1}

	testCases := []struct {
		name         string
		path         string
		mockService  mockCatalogService
		expectedCode int
		expectedBody string
	}{
		{name: "Success", path: id.String(), mockService: mockCatalogService{product: product}, expectedCode: http.StatusOK, expectedBody: toJSON(t, product)},
		{name: "Error - invalid id", path: "abc", expectedCode: http.StatusBadRequest, expectedBody: toJSON(t, ErrorResponse{Error: "Invalid id: abc"})},
		{name: "Error - not found", path: id.String(), mockService: mockCatalogService{error: apperrors.ErrProductNotFound}, expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID " + id.String() + " not found"})},
		{name: "Error - service failure", path: id.String(), mockService: mockCatalogService{error: errors.New("db down")}, expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to retrieve product with ID " + id.String()})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			req := httptest.NewRequest(http.MethodGet, "/api/products/"+tc.path, nil)
			rr := httptest.NewRecorder()

			// when
			newRouter(&tc.mockService).ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_CatalogAPI_Authorization(t *testing.T) {
	adminID := uuid.New()
	admin := auth.Principal{UserID: adminID, Name: "root", Role: auth.RoleAdmin}
	user := auth.Principal{UserID: uuid.New(), Name: "ada", Role: auth.RoleUser}
	productID := uuid.New()
	validProduct := `{"title":"Lamp","price":2500,"stock":3,"images":["lamp.png"],"categoryId":"` + uuid.NewString() + `"}`

	testCases := []struct {
		name         string
		method       string
		path         string
		body         string
		principal    *auth.Principal
		expectedCode int
	}{
		{name: "create product as admin", method: http.MethodPost, path: "/api/products", body: validProduct, principal: &admin, expectedCode: http.StatusCreated},
		{name: "create product as user", method: http.MethodPost, path: "/api/products", body: validProduct, principal: &user, expectedCode: http.StatusForbidden},
		{name: "create product anonymously", method: http.MethodPost, path: "/api/products", body: validProduct, expectedCode: http.StatusUnauthorized},
		{name: "update stock as user", method: http.MethodPut, path: "/api/products/" + productID.String() + "/stock", body: `{"stock":1,"version":1}`, principal: &user, expectedCode: http.StatusForbidden},
		{name: "update stock as admin", method: http.MethodPut, path: "/api/products/" + productID.String() + "/stock", body: `{"stock":1,"version":1}`, principal: &admin, expectedCode: http.StatusOK},
		{name: "review as user", method: http.MethodPost, path: "/api/products/" + productID.String() + "/reviews", body: `{"rating":5,"comment":"great"}`, principal: &user, expectedCode: http.StatusCreated},
		{name: "review anonymously", method: http.MethodPost, path: "/api/products/" + productID.String() + "/reviews", body: `{"rating":5}`, expectedCode: http.StatusUnauthorized},
		{name: "create category as user", method: http.MethodPost, path: "/api/category", body: `{"name":"books","image":"b.png"}`, principal: &user, expectedCode: http.StatusForbidden},
		{name: "create category as admin", method: http.MethodPost, path: "/api/category", body: `{"name":"books","image":"b.png"}`, principal: &admin, expectedCode: http.StatusCreated},
		{name: "list categories anonymously", method: http.MethodGet, path: "/api/category", expectedCode: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mock := &mockCatalogService{
				product:    &service.ProductDto{ID: productID, Version: 2},
				review:     &service.ReviewDto{Rating: 5},
				category:   &service.CategoryDto{ID: uuid.New(), Name: "books"},
				categories: []service.CategoryDto{},
			}
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.principal != nil {
				req.Header.Set("Authorization", bearer(t, *tc.principal))
			}
			rr := httptest.NewRecorder()

			// when
			newRouter(mock).ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code, rr.Body.String())
			if tc.name == "create product as admin" {
				assert.Equal(t, adminID, mock.gotSeller, "seller is the caller")
			}
		})
	}
}

func Test_CatalogAPI_UpdateStock(t *testing.T) {
	id := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	admin := auth.Principal{UserID: uuid.New(), Role: auth.RoleAdmin}

	testCases := []struct {
		name         string
		body         string
		mockService  mockCatalogService
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Error - missing version",
			body:         `{"stock":3}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"validation_errors":{"Version":"failed on rule: required"}}`,
		},
		{
			name:         "Error - negative stock",
			body:         `{"stock":-1,"version":1}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"validation_errors":{"Stock":"failed on rule: min"}}`,
		},
		{
			name:         "Error - stale version",
			body:         `{"stock":3,"version":1}`,
			mockService:  mockCatalogService{error: apperrors.ErrOptimisticLock},
			expectedCode: http.StatusConflict,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID " + id.String() + " has been modified by another user"}),
		},
		{
			name:         "Error - not found",
			body:         `{"stock":3,"version":1}`,
			mockService:  mockCatalogService{error: apperrors.ErrProductNotFound},
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID " + id.String() + " not found"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			req := httptest.NewRequest(http.MethodPut, "/api/products/"+id.String()+"/stock", strings.NewReader(tc.body))
			req.Header.Set("Authorization", bearer(t, admin))
			rr := httptest.NewRecorder()

			// when
			newRouter(&tc.mockService).ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

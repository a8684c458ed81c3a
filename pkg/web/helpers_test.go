package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type quantityDto struct {
	Quantity int32 `json:"quantity" validate:"required,min=1"`
}

func TestDecodeAndValidate(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		ok           bool
		expectedBody string
	}{
		{name: "valid", body: `{"quantity":2}`, ok: true},
		{name: "malformed", body: `{"quantity":`, expectedBody: `{"error":"Invalid request body"}`},
		{name: "missing field", body: `{}`, expectedBody: `{"validation_errors":{"Quantity":"failed on rule: required"}}`},
		{name: "below minimum", body: `{"quantity":-1}`, expectedBody: `{"validation_errors":{"Quantity":"failed on rule: min"}}`},
	}
	validate := validator.New()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			var dto quantityDto

			// when
			ok := DecodeAndValidate(rr, req, discardLogger(), validate, &dto)

			// then
			assert.Equal(t, tc.ok, ok)
			if !tc.ok {
				assert.Equal(t, http.StatusBadRequest, rr.Code)
				assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			}
		})
	}
}

func TestParseID(t *testing.T) {
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetPathValue("productId", id.String())
	got, ok := ParseID(httptest.NewRecorder(), req, discardLogger(), "productId")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetPathValue("productId", "nope")
	rr := httptest.NewRecorder()
	_, ok = ParseID(rr, req, discardLogger(), "productId")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid productId: nope"}`, rr.Body.String())
}

func TestParseOptional(t *testing.T) {
	testCases := []struct {
		name     string
		query    string
		expected int32
		ok       bool
	}{
		{name: "default", query: "", expected: 8, ok: true},
		{name: "explicit", query: "?perPage=20", expected: 20, ok: true},
		{name: "too large", query: "?perPage=1000", ok: false},
		{name: "zero", query: "?perPage=0", ok: false},
		{name: "not a number", query: "?perPage=abc", ok: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/products"+tc.query, nil)
			rr := httptest.NewRecorder()

			got, ok := ParseOptionalBetween(req, rr, discardLogger(), "perPage", 1, 100, 8)

			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.expected, got)
			} else {
				assert.Equal(t, http.StatusBadRequest, rr.Code)
			}
		})
	}

	t.Run("page beyond int32", func(t *testing.T) {
		rr := httptest.NewRecorder()
		_, ok := ParseOptionalGte(httptest.NewRequest(http.MethodGet, "/?page=4294967296", nil), rr, discardLogger(), "page", 1, 1)
		assert.False(t, ok)
		assert.JSONEq(t, `{"error":"Invalid page number: 4294967296"}`, rr.Body.String())
	})

	t.Run("gte default", func(t *testing.T) {
		got, ok := ParseOptionalGte(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder(), discardLogger(), "page", 1, 1)
		assert.True(t, ok)
		assert.Equal(t, int32(1), got)
	})
}

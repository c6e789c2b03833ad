package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/chowpati-api/internal/catalog"
)

type productsResponse struct {
	Data []catalog.Product `json:"data"`
}

type productDetailResponse struct {
	Data catalog.Product `json:"data"`
}

type categoriesResponse struct {
	Data []string `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	remote, _ := newRemote(t, http.StatusOK, remotePayload)
	svc, err := catalog.NewService(catalog.ServiceConfig{Remote: remote})
	require.NoError(t, err)
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: svc})

	r := chi.NewRouter()
	r.Get("/api/v1/products", handler.Products)
	r.Get("/api/v1/products/{id}", handler.ProductDetail)
	r.Get("/api/v1/categories", handler.Categories)
	r.Get("/api/v1/cone-candy", handler.ConeCandy)
	r.Post("/api/v1/admin/catalog/invalidate", handler.Invalidate)
	return r
}

func TestCatalogHandlers(t *testing.T) {
	router := newTestRouter(t)

	t.Run("products list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "3", rec.Header().Get("X-Total-Count"))
		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 3)
	})

	t.Run("products filtered by category", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?category=IceCreame", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		require.Equal(t, "16", resp.Data[0].ID)
	})

	t.Run("product detail", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/16", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productDetailResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "American Dry Fruit", resp.Data.Name)
		require.Len(t, resp.Data.Sizes, 2)
		require.Equal(t, "700", resp.Data.Sizes[0].MRP.String())
	})

	t.Run("product not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/nope", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "NOT_FOUND", resp.Error.Code)
	})

	t.Run("categories", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp categoriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, []string{"IceCreame", "ConeCandy", "Classic Flavors"}, resp.Data)
	})

	t.Run("cone candy", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cone-candy", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		require.Equal(t, "30", resp.Data[0].ID)
	})

	t.Run("invalidate", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/catalog/invalidate", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestCatalogHandlerWithoutService(t *testing.T) {
	handler := catalog.NewHandler(catalog.HandlerConfig{})
	rec := httptest.NewRecorder()
	handler.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

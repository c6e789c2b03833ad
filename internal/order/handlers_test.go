package order_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/chowpati-api/internal/common"
	"github.com/noah-isme/chowpati-api/internal/order"
)

type orderResponse struct {
	Data order.Order `json:"data"`
}

type listResponse struct {
	Data       []order.Order     `json:"data"`
	Pagination common.Pagination `json:"pagination"`
}

type errorBody struct {
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newOrderRouter(t *testing.T) (http.Handler, fixture) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, order.NewMemoryStore())
	h := &order.Handler{Svc: f.svc}
	idem := common.Idem{R: client, TTL: time.Minute}
	r := chi.NewRouter()
	r.Route("/api/v1/orders", func(o chi.Router) {
		o.With(idem.Middleware).Post("/", h.Place)
		o.Get("/", h.List)
		o.Get("/{id}", h.Get)
	})
	return r, f
}

func send(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func placeBody(cartID, pin string) string {
	return `{"cartId":"` + cartID + `","customerId":"cust-1","address":"12 Marine Drive","pinCode":"` + pin + `"}`
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestOrderHandlersFlow(t *testing.T) {
	router, f := newOrderRouter(t)
	cartID := f.filledCart(t)

	rec := send(router, http.MethodPost, "/api/v1/orders/", placeBody(cartID, "360001"), map[string]string{"Idempotency-Key": "k1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))
	require.Equal(t, "1235", placed.Data.Total.String())
	require.Contains(t, rec.Header().Get("Location"), placed.Data.ID)

	rec = send(router, http.MethodPost, "/api/v1/orders/", placeBody(cartID, "360001"), map[string]string{"Idempotency-Key": "k1"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "IDEMPOTENT_REPLAY", errorCode(t, rec))

	rec = send(router, http.MethodGet, "/api/v1/orders?customerId=cust-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	var list listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.Equal(t, "adf-cover.png", list.Data[0].Items[1].Image)

	rec = send(router, http.MethodGet, "/api/v1/orders/"+placed.Data.ID+"?customerId=cust-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(router, http.MethodGet, "/api/v1/orders?customerId=cust-1&page=2&limit=1", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Empty(t, list.Data)
	require.Equal(t, 2, list.Pagination.Page)
}

func TestOrderHandlersErrors(t *testing.T) {
	router, f := newOrderRouter(t)
	cartID := f.filledCart(t)
	emptyCart, err := f.carts.Create(t.Context())
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad json", http.MethodPost, "/api/v1/orders/", `{`, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown field", http.MethodPost, "/api/v1/orders/", `{"cartId":"x","coupon":"FREE"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing fields", http.MethodPost, "/api/v1/orders/", `{"cartId":"x"}`, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"short pin", http.MethodPost, "/api/v1/orders/", placeBody(cartID, "3600"), http.StatusUnprocessableEntity, "PINCODE_INVALID"},
		{"pin outside area", http.MethodPost, "/api/v1/orders/", placeBody(cartID, "560001"), http.StatusUnprocessableEntity, "PINCODE_NOT_SERVED"},
		{"missing cart", http.MethodPost, "/api/v1/orders/", placeBody("nope", "360001"), http.StatusNotFound, "CART_NOT_FOUND"},
		{"empty cart", http.MethodPost, "/api/v1/orders/", placeBody(emptyCart.ID, "360001"), http.StatusUnprocessableEntity, "EMPTY_CART"},
		{"list without customer", http.MethodGet, "/api/v1/orders", "", http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"unknown order", http.MethodGet, "/api/v1/orders/ORD000000?customerId=cust-1", "", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := send(router, tc.method, tc.path, tc.body, nil)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			require.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

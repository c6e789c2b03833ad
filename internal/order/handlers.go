package order

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/chowpati-api/internal/address"
	"github.com/noah-isme/chowpati-api/internal/cart"
	"github.com/noah-isme/chowpati-api/internal/common"
	"github.com/noah-isme/chowpati-api/internal/delivery"
)

// Handler wires the order service to HTTP.
type Handler struct {
	Svc *Service
}

// Place handles POST /api/v1/orders.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req PlaceRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	o, err := h.Svc.Place(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/orders/"+o.ID+"?customerId="+o.CustomerID)
	common.Data(w, http.StatusCreated, o)
}

// List handles GET /api/v1/orders?customerId=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	customerID, ok := customerParam(w, r)
	if !ok {
		return
	}
	orders, err := h.Svc.History(r.Context(), customerID)
	if err != nil {
		writeError(w, err)
		return
	}
	pageItems, page := common.Paginate(r, orders, 20, 100)
	w.Header().Set("X-Total-Count", strconv.Itoa(page.TotalItems))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       pageItems,
		"pagination": page,
	})
}

// Get handles GET /api/v1/orders/{id}?customerId=.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	customerID, ok := customerParam(w, r)
	if !ok {
		return
	}
	o, err := h.Svc.Get(r.Context(), customerID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, o)
}

func customerParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("customerId"))
	if id == "" {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "customerId is required", map[string]string{"customerId": "required"})
		return "", false
	}
	return id, true
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order service not configured", nil)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	if delivery.WriteError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrOrderNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "order not found", nil)
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "CART_NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, ErrAddressRequired):
		common.JSONError(w, http.StatusUnprocessableEntity, "ADDRESS_REQUIRED", ErrAddressRequired.Error(), map[string]string{"address": "required"})
	case errors.Is(err, address.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "ADDRESS_NOT_FOUND", address.ErrNotFound.Error(), nil)
	default:
		if !common.WriteAppError(w, err) {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
		}
	}
}

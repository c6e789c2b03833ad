package address

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/chowpati-api/internal/common"
	"github.com/noah-isme/chowpati-api/internal/delivery"
)

// Handler exposes a customer's address book under
// /api/v1/customers/{customerId}/addresses.
type Handler struct {
	Svc *Service
}

// List handles GET /.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	book, err := h.Svc.List(r.Context(), chi.URLParam(r, "customerId"))
	if err != nil {
		WriteError(w, err)
		return
	}
	common.List(w, book, len(book))
}

// Default handles GET /default.
func (h *Handler) Default(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	a, ok, err := h.Svc.Default(r.Context(), chi.URLParam(r, "customerId"))
	if err != nil {
		WriteError(w, err)
		return
	}
	if !ok {
		WriteError(w, ErrNotFound)
		return
	}
	common.Data(w, http.StatusOK, a)
}

// Add handles POST /.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		WriteError(w, err)
		return
	}
	customerID := chi.URLParam(r, "customerId")
	a, err := h.Svc.Add(r.Context(), customerID, in)
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/customers/"+customerID+"/addresses/"+a.ID)
	common.Data(w, http.StatusCreated, a)
}

// Update handles PATCH /{addressId}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var p Patch
	if err := common.DecodeJSON(r, &p); err != nil {
		WriteError(w, err)
		return
	}
	a, err := h.Svc.Update(r.Context(), chi.URLParam(r, "customerId"), chi.URLParam(r, "addressId"), p)
	if err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, a)
}

// SetDefault handles POST /{addressId}/default.
func (h *Handler) SetDefault(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	a, err := h.Svc.SetDefault(r.Context(), chi.URLParam(r, "customerId"), chi.URLParam(r, "addressId"))
	if err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, a)
}

// Delete handles DELETE /{addressId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "customerId"), chi.URLParam(r, "addressId")); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "address service not configured", nil)
		return false
	}
	return true
}

// WriteError maps address book errors, pin code errors and AppErrors to
// responses. Anything else is a 500.
func WriteError(w http.ResponseWriter, err error) {
	if delivery.WriteError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "ADDRESS_NOT_FOUND", ErrNotFound.Error(), nil)
	case errors.Is(err, ErrCustomerRequired):
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidationFailed, ErrCustomerRequired.Error(), map[string]string{"customerId": "required"})
	case errors.Is(err, ErrLimitReached):
		common.JSONError(w, http.StatusUnprocessableEntity, "ADDRESS_LIMIT", ErrLimitReached.Error(), nil)
	default:
		if !common.WriteAppError(w, err) {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
		}
	}
}

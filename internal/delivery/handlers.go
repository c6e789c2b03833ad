package delivery

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/chowpati-api/internal/common"
)

// Handler exposes pin code endpoints.
type Handler struct {
	Svc *Service
}

// PinCodes handles GET /api/v1/pincodes.
func (h *Handler) PinCodes(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "delivery service not configured", nil)
		return
	}
	common.Data(w, http.StatusOK, h.Svc.PinCodes(r.Context()))
}

// Check handles GET /api/v1/pincodes/{pin}.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "delivery service not configured", nil)
		return
	}
	pin, err := h.Svc.Validate(r.Context(), chi.URLParam(r, "pin"))
	if err != nil {
		if !WriteError(w, err) {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
		}
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"pinCode": pin, "served": true})
}

// WriteError maps pin code validation errors to responses. It reports false
// for unrelated errors.
func WriteError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, ErrPinCodeRequired):
		common.JSONError(w, http.StatusUnprocessableEntity, "PINCODE_REQUIRED", ErrPinCodeRequired.Error(), nil)
	case errors.Is(err, ErrPinCodeFormat):
		common.JSONError(w, http.StatusUnprocessableEntity, "PINCODE_INVALID", ErrPinCodeFormat.Error(), nil)
	case errors.Is(err, ErrPinCodeNotServed):
		common.JSONError(w, http.StatusUnprocessableEntity, "PINCODE_NOT_SERVED", ErrPinCodeNotServed.Error(), nil)
	default:
		return false
	}
	return true
}

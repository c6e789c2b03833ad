package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/chowpati-api/internal/common"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.Categories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, rows)
}

// Products handles GET /api/v1/products with an optional category filter.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	items, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.List(w, items, len(items))
}

// ProductDetail handles GET /api/v1/products/{id}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	product, err := h.service.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, product)
}

// ConeCandy handles GET /api/v1/cone-candy.
func (h *Handler) ConeCandy(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	items, err := h.service.ConeCandy(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.List(w, items, len(items))
}

// Invalidate handles POST /api/v1/admin/catalog/invalidate.
func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if err := h.service.Refresh(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "product not found", nil)
	case errors.Is(err, ErrSizeNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_SIZE", err.Error(), nil)
	case errors.Is(err, ErrUpstream):
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "catalog unavailable", nil)
	default:
		if !common.WriteAppError(w, err) {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
		}
	}
}

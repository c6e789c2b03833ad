package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/chowpati-api/internal/catalog"
	"github.com/noah-isme/chowpati-api/internal/common"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

type lineRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size" validate:"required"`
}

type addRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=100"`
}

// Create handles POST /api/v1/carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	view, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, view)
}

// Get handles GET /api/v1/carts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id := chi.URLParam(r, "id")
	c, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, NewView(id, c))
}

// Delete handles DELETE /api/v1/carts/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /api/v1/carts/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req addRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	var (
		view View
		err  error
	)
	if req.Quantity > 1 {
		view, err = h.Svc.AddQuantity(r.Context(), id, req.ProductID, req.Size, req.Quantity)
	} else {
		view, err = h.Svc.AddItem(r.Context(), id, req.ProductID, req.Size)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

// RemoveItem handles DELETE /api/v1/carts/{id}/items?productId=&size=.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	req := lineRequest{ProductID: r.URL.Query().Get("productId"), Size: r.URL.Query().Get("size")}
	if err := common.Validate(req); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), req.ProductID, req.Size)
	h.respond(w, view, err)
}

// Increase handles POST /api/v1/carts/{id}/items/increase.
func (h *Handler) Increase(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.Svc.Increase)
}

// Decrease handles POST /api/v1/carts/{id}/items/decrease.
func (h *Handler) Decrease(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.Svc.Decrease)
}

// Clear handles POST /api/v1/carts/{id}/clear.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	view, err := h.Svc.Clear(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, view, err)
}

type adjustFunc func(ctx context.Context, id, productID, size string) (View, error)

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request, fn adjustFunc) {
	if !h.ready(w) {
		return
	}
	var req lineRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := fn(r.Context(), chi.URLParam(r, "id"), req.ProductID, req.Size)
	h.respond(w, view, err)
}

func (h *Handler) respond(w http.ResponseWriter, view View, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "cart not found", nil)
	case errors.Is(err, catalog.ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
	case errors.Is(err, catalog.ErrSizeNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_SIZE", "size not offered for product", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, catalog.ErrUpstream):
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "catalog unavailable", nil)
	default:
		if !common.WriteAppError(w, err) {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
		}
	}
}

package category

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, scope internal.Scope) ([]*Category, error)
	Get(ctx context.Context, scope internal.Scope, id string) (*Category, error)
	Create(ctx context.Context, scope internal.Scope, dto CreateCategoryDTO) (*Category, error)
	Update(ctx context.Context, scope internal.Scope, id string, dto UpdateCategoryDTO) (*Category, error)
	Delete(ctx context.Context, scope internal.Scope, id string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.List(r.Context(), h.Scope(r))
	if err != nil {
		h.Logger.Error("ListCategories: failed to list categories", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	cat, err := h.Service.Get(r.Context(), h.Scope(r), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, cat)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var dto CreateCategoryDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.Logger.Warn("CreateCategory: invalid request body", "error", appErr.Cause)
		h.WriteAppError(w, appErr)
		return
	}

	cat, err := h.Service.Create(r.Context(), h.Scope(r), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateCategory: category created", "category_id", cat.ID, "name", cat.Name)
	h.WriteJSON(w, http.StatusCreated, cat)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto UpdateCategoryDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.Logger.Warn("UpdateCategory: invalid request body", "error", appErr.Cause)
		h.WriteAppError(w, appErr)
		return
	}

	cat, err := h.Service.Update(r.Context(), h.Scope(r), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, cat)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	if err := h.Service.Delete(r.Context(), h.Scope(r), id); err != nil {
		h.Logger.Error("DeleteCategory: failed to delete category", "category_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package report

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/transport"
)

type ServiceAPI interface {
	Audit(ctx context.Context, scope internal.Scope) (*Audit, error)
	Reconcile(ctx context.Context, scope internal.Scope) (*ReconcileResult, error)
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

func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	audit, err := h.Service.Audit(r.Context(), h.Scope(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, audit)
}

func (h *Handler) ReconcileBalances(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Reconcile(r.Context(), h.Scope(r))
	if err != nil {
		h.Logger.Error("ReconcileBalances: reconcile failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("ReconcileBalances: done", "checked", result.Checked, "repaired", len(result.Repaired))
	h.WriteJSON(w, http.StatusOK, result)
}

package expense

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, scope internal.Scope, filter ListFilter) ([]*Expense, error)
	Get(ctx context.Context, scope internal.Scope, id string) (*Expense, error)
	Create(ctx context.Context, scope internal.Scope, dto CreateExpenseDTO) (*Expense, error)
	Update(ctx context.Context, scope internal.Scope, id string, dto UpdateExpenseDTO) (*Expense, error)
	Delete(ctx context.Context, scope internal.Scope, id string) error
	Export(ctx context.Context, scope internal.Scope, w io.Writer) error
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

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	var filter ListFilter
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.WriteAppError(w, internal.ErrInvalidID)
			return
		}
		filter.CategoryID = id.String()
	}

	expenses, err := h.Service.List(r.Context(), h.Scope(r), filter)
	if err != nil {
		h.Logger.Error("ListExpenses: failed to list expenses", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ExpensesResponse{Expenses: expenses})
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	e, err := h.Service.Get(r.Context(), h.Scope(r), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var dto CreateExpenseDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.Logger.Warn("CreateExpense: invalid request body", "error", appErr.Cause)
		h.WriteAppError(w, appErr)
		return
	}

	e, err := h.Service.Create(r.Context(), h.Scope(r), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateExpense: expense created",
		"expense_id", e.ID,
		"category_id", e.CategoryID,
		"amount", e.Amount)

	h.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto UpdateExpenseDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.Logger.Warn("UpdateExpense: invalid request body", "error", appErr.Cause)
		h.WriteAppError(w, appErr)
		return
	}

	e, err := h.Service.Update(r.Context(), h.Scope(r), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	if err := h.Service.Delete(r.Context(), h.Scope(r), id); err != nil {
		h.Logger.Error("DeleteExpense: failed to delete expense", "expense_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportExpenses builds the workbook in memory so a failure can still be
// reported as JSON.
func (h *Handler) ExportExpenses(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Service.Export(r.Context(), h.Scope(r), &buf); err != nil {
		h.Logger.Error("ExportExpenses: export failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"expenses_%s.xlsx\"",
		time.Now().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Error("ExportExpenses: failed to write response", "error", err)
	}
}

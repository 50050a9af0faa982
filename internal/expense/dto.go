package expense

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/balance"
	"github.com/frahmantamala/expense-tracker/internal/core/common/validation"
)

// CreateExpenseDTO names the category rather than referencing its id. The
// category is resolved, and in single-tenant mode created, on the way in.
type CreateExpenseDTO struct {
	Description string   `json:"description"`
	Amount      *float64 `json:"amount"`
	Date        string   `json:"date"`
	Category    string   `json:"category"`
}

func (dto *CreateExpenseDTO) Validate(descriptionMinLen int) *internal.AppError {
	dto.Description = strings.TrimSpace(dto.Description)

	v := validation.NewValidator()
	v.Field("description", dto.Description).Custom(descriptionRule(descriptionMinLen))
	v.Field("amount", dto.Amount).
		Required(internal.ErrCodeInvalidAmount).
		Custom(positiveAmount)
	v.Field("date", dto.Date).Custom(dateRule)
	v.Field("category", dto.Category).
		Required(internal.ErrCodeInvalidCategory)
	return v.Validate()
}

// UpdateExpenseDTO accepts description, amount and date. The category fields
// are captured only so that their presence can be rejected; an explicit null
// counts as absent.
type UpdateExpenseDTO struct {
	Description *string         `json:"description,omitempty"`
	Amount      *float64        `json:"amount,omitempty"`
	Date        *string         `json:"date,omitempty"`
	Category    json.RawMessage `json:"category,omitempty"`
	CategoryID  json.RawMessage `json:"category_id,omitempty"`
}

func (dto *UpdateExpenseDTO) Validate(descriptionMinLen int) *internal.AppError {
	if present(dto.Category) || present(dto.CategoryID) {
		return internal.ErrCategoryLocked
	}
	if dto.Description == nil && dto.Amount == nil && dto.Date == nil {
		return internal.NewValidationError("at least one of description, amount or date is required", internal.ErrCodeValidationFailed)
	}

	v := validation.NewValidator()
	if dto.Description != nil {
		trimmed := strings.TrimSpace(*dto.Description)
		dto.Description = &trimmed
		v.Field("description", trimmed).Custom(descriptionRule(descriptionMinLen))
	}
	if dto.Amount != nil {
		v.Field("amount", dto.Amount).Custom(positiveAmount)
	}
	if dto.Date != nil {
		v.Field("date", *dto.Date).Custom(dateRule)
	}
	return v.Validate()
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func descriptionRule(minLen int) validation.ValidatorFunc {
	return func(value interface{}) *internal.AppError {
		description, _ := value.(string)
		return validation.ValidateExpenseDescription(description, minLen)
	}
}

func dateRule(value interface{}) *internal.AppError {
	date, _ := value.(string)
	return validation.ValidateExpenseDate(date)
}

// positiveAmount checks the amount after rounding to cents, so 0.004 is
// rejected as zero.
func positiveAmount(value interface{}) *internal.AppError {
	amount, ok := value.(*float64)
	if !ok || amount == nil {
		return nil
	}
	return validation.ValidateExpenseAmount(balance.Round2(*amount))
}

type ExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type ListFilter struct {
	CategoryID string
}

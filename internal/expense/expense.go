package expense

import (
	"time"

	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
)

type Expense struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Date        string    `json:"date"`
	CategoryID  string    `json:"category_id"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Added       time.Time `json:"added"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func FromDataModel(e *expenseDatamodel.Expense) *Expense {
	return &Expense{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		CategoryID:  e.CategoryID,
		Description: e.Description,
		Amount:      e.Amount,
		Date:        e.Date,
		Added:       e.Added,
		UpdatedAt:   e.UpdatedAt,
	}
}

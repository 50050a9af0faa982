package report

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ExpenseSum is the aggregate of one category's expenses as the store
// computes it.
type ExpenseSum struct {
	CategoryID string  `db:"category_id" bson:"_id"`
	Total      float64 `db:"total" bson:"total"`
	Count      int     `db:"count" bson:"count"`
}

// CategoryBalance compares a category's running total with the sum of its
// expenses.
type CategoryBalance struct {
	CategoryID    string  `json:"category_id"`
	Name          string  `json:"name"`
	Limit         *int64  `json:"limit,omitempty"`
	StoredTotal   float64 `json:"stored_total"`
	ComputedTotal float64 `json:"computed_total"`
	Drift         float64 `json:"drift"`
	ExpenseCount  int     `json:"expense_count"`
	OverLimit     bool    `json:"over_limit"`
	Display       string  `json:"display"`
}

func (b CategoryBalance) Drifted() bool {
	return b.Drift != 0
}

type Audit struct {
	Currency   string            `json:"currency"`
	Categories []CategoryBalance `json:"categories"`
	Drifted    int               `json:"drifted"`
}

type ReconcileResult struct {
	Checked  int               `json:"checked"`
	Repaired []CategoryBalance `json:"repaired"`
}

// formatAmount renders amount in the currency's display format, e.g. $12.25.
// Unknown currency codes fall back to the plain two-digit number.
func formatAmount(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return decimal.NewFromFloat(amount).StringFixed(2)
	}
	factor := decimal.New(1, int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0).IntPart()
	return money.New(minor, currency).Display()
}

package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/report"
)

// ReportRepository runs the aggregate queries with sqlx over the same pool
// gorm uses.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) report.RepositoryAPI {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) SumByCategory(ctx context.Context, scope internal.Scope) ([]report.ExpenseSum, error) {
	query := `SELECT category_id, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count FROM expenses`
	var args []interface{}
	if scope.IsTenant() {
		query += ` WHERE owner_id = ?`
		args = append(args, scope.OwnerID)
	}
	query += ` GROUP BY category_id`

	var sums []report.ExpenseSum
	if err := r.db.SelectContext(ctx, &sums, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return sums, nil
}

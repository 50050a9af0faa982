package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/common/tenancy"
	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tracker/internal/expense"
)

// ExpenseRepository implements expense.RepositoryAPI using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.RepositoryAPI {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) scoped(ctx context.Context, scope internal.Scope) *gorm.DB {
	return r.db.WithContext(ctx).Scopes(tenancy.GormScope(scope))
}

// List returns the newest expense dates first.
func (r *ExpenseRepository) List(ctx context.Context, scope internal.Scope, filter expense.ListFilter) ([]*expenseDatamodel.Expense, error) {
	query := r.scoped(ctx, scope)
	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	var expenses []*expenseDatamodel.Expense
	err := query.Order("expense_date DESC").Order("added DESC").Find(&expenses).Error
	return expenses, err
}

func (r *ExpenseRepository) GetByID(ctx context.Context, scope internal.Scope, id string) (*expenseDatamodel.Expense, error) {
	var exp expenseDatamodel.Expense
	err := r.scoped(ctx, scope).Where("id = ?", id).First(&exp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &exp, nil
}

func (r *ExpenseRepository) Create(ctx context.Context, exp *expenseDatamodel.Expense) error {
	return r.db.WithContext(ctx).Create(exp).Error
}

// Update writes the mutable columns only, and only while the stored amount is
// still previousAmount. category_id is never part of it. It reports how many
// rows matched.
func (r *ExpenseRepository) Update(ctx context.Context, scope internal.Scope, exp *expenseDatamodel.Expense, previousAmount float64) (int64, error) {
	result := r.scoped(ctx, scope).
		Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND amount = ?", exp.ID, previousAmount).
		Updates(map[string]interface{}{
			"description":  exp.Description,
			"amount":       exp.Amount,
			"expense_date": exp.Date,
		})
	return result.RowsAffected, result.Error
}

func (r *ExpenseRepository) Delete(ctx context.Context, scope internal.Scope, id string) (int64, error) {
	result := r.scoped(ctx, scope).Where("id = ?", id).Delete(&expenseDatamodel.Expense{})
	return result.RowsAffected, result.Error
}

func (r *ExpenseRepository) DeleteByCategory(ctx context.Context, scope internal.Scope, categoryID string) error {
	return r.scoped(ctx, scope).Where("category_id = ?", categoryID).Delete(&expenseDatamodel.Expense{}).Error
}

package expense

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/balance"
	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
)

// RepositoryAPI lookups return (nil, nil) when nothing matches the scope.
type RepositoryAPI interface {
	balance.ExpenseStore
	List(ctx context.Context, scope internal.Scope, filter ListFilter) ([]*expenseDatamodel.Expense, error)
	GetByID(ctx context.Context, scope internal.Scope, id string) (*expenseDatamodel.Expense, error)
	Create(ctx context.Context, e *expenseDatamodel.Expense) error
	// Update applies only while the stored amount equals previousAmount.
	// Update and Delete report the number of records they changed.
	Update(ctx context.Context, scope internal.Scope, e *expenseDatamodel.Expense, previousAmount float64) (int64, error)
	Delete(ctx context.Context, scope internal.Scope, id string) (int64, error)
}

type BalanceAPI interface {
	ExpenseCreated(ctx context.Context, scope internal.Scope, amount float64, categoryName string, autoCreate bool) (*categoryDatamodel.Category, error)
	ExpenseDeleted(ctx context.Context, scope internal.Scope, amount float64, categoryID string) error
	ExpenseAmountUpdated(ctx context.Context, scope internal.Scope, prev, next float64, categoryID string) (*categoryDatamodel.Category, error)
}

// CategoryLister resolves category names for the spreadsheet export.
type CategoryLister interface {
	List(ctx context.Context, scope internal.Scope) ([]*categoryDatamodel.Category, error)
}

type Options struct {
	// AutoCreateCategories creates a missing category on the first expense
	// that names it. Only the single-tenant deployment turns it on.
	AutoCreateCategories bool
	DescriptionMinLen    int
}

type Service struct {
	repo       RepositoryAPI
	balance    BalanceAPI
	categories CategoryLister
	opts       Options
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, balance BalanceAPI, categories CategoryLister, logger *slog.Logger, opts Options) *Service {
	if opts.DescriptionMinLen < 1 {
		opts.DescriptionMinLen = 1
	}
	return &Service{
		repo:       repo,
		balance:    balance,
		categories: categories,
		opts:       opts,
		logger:     logger,
	}
}

func (s *Service) List(ctx context.Context, scope internal.Scope, filter ListFilter) ([]*Expense, error) {
	rows, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err)
		return nil, internal.NewInternalError("failed to list expenses", err)
	}

	expenses := make([]*Expense, 0, len(rows))
	for _, row := range rows {
		expenses = append(expenses, FromDataModel(row))
	}
	return expenses, nil
}

func (s *Service) Get(ctx context.Context, scope internal.Scope, id string) (*Expense, error) {
	row, err := s.repo.GetByID(ctx, scope, id)
	if err != nil {
		s.logger.Error("failed to get expense", "expense_id", id, "error", err)
		return nil, internal.NewInternalError("failed to get expense", err)
	}
	if row == nil {
		return nil, internal.ErrExpenseNotFound
	}
	return FromDataModel(row), nil
}

// Create adjusts the category total first and stores the expense second. If
// the second write fails the total already includes the amount; reconcile
// repairs it.
func (s *Service) Create(ctx context.Context, scope internal.Scope, dto CreateExpenseDTO) (*Expense, error) {
	if appErr := dto.Validate(s.opts.DescriptionMinLen); appErr != nil {
		return nil, appErr
	}
	amount := balance.Round2(*dto.Amount)

	cat, err := s.balance.ExpenseCreated(ctx, scope, amount, dto.Category, s.opts.AutoCreateCategories)
	if err != nil {
		return nil, err
	}

	row := &expenseDatamodel.Expense{
		ID:          uuid.NewString(),
		OwnerID:     scope.OwnerID,
		CategoryID:  cat.ID,
		Description: dto.Description,
		Amount:      amount,
		Date:        dto.Date,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("category total adjusted but expense was not stored",
			"category_id", cat.ID, "amount", amount, "error", err)
		return nil, internal.NewInternalError("failed to create expense", err)
	}

	s.logger.Info("expense created", "expense_id", row.ID, "category_id", cat.ID, "amount", amount)
	return FromDataModel(row), nil
}

// Update never moves an expense to another category. An amount change is
// applied to the category total as a single delta after the expense is saved.
// The save is conditional on the amount that was read, so two racing updates
// cannot both apply a delta from the same starting amount.
func (s *Service) Update(ctx context.Context, scope internal.Scope, id string, dto UpdateExpenseDTO) (*Expense, error) {
	if appErr := dto.Validate(s.opts.DescriptionMinLen); appErr != nil {
		return nil, appErr
	}

	row, err := s.repo.GetByID(ctx, scope, id)
	if err != nil {
		s.logger.Error("failed to get expense", "expense_id", id, "error", err)
		return nil, internal.NewInternalError("failed to get expense", err)
	}
	if row == nil {
		return nil, internal.ErrExpenseNotFound
	}

	previous := row.Amount
	if dto.Description != nil {
		row.Description = *dto.Description
	}
	if dto.Date != nil {
		row.Date = *dto.Date
	}
	if dto.Amount != nil {
		row.Amount = balance.Round2(*dto.Amount)
	}

	updated, err := s.repo.Update(ctx, scope, row, previous)
	if err != nil {
		s.logger.Error("failed to update expense", "expense_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update expense", err)
	}
	if updated == 0 {
		return nil, s.lostUpdate(ctx, scope, id)
	}

	if row.Amount != previous {
		if _, err := s.balance.ExpenseAmountUpdated(ctx, scope, previous, row.Amount, row.CategoryID); err != nil {
			s.logger.Error("expense updated but category total was not",
				"expense_id", id, "category_id", row.CategoryID, "error", err)
			return nil, err
		}
	}

	return FromDataModel(row), nil
}

// Delete is idempotent: an expense that does not exist, or is not visible in
// the scope, is already deleted as far as the caller is concerned.
func (s *Service) Delete(ctx context.Context, scope internal.Scope, id string) error {
	row, err := s.repo.GetByID(ctx, scope, id)
	if err != nil {
		s.logger.Error("failed to get expense", "expense_id", id, "error", err)
		return internal.NewInternalError("failed to get expense", err)
	}
	if row == nil {
		return nil
	}

	deleted, err := s.repo.Delete(ctx, scope, id)
	if err != nil {
		s.logger.Error("failed to delete expense", "expense_id", id, "error", err)
		return internal.NewInternalError("failed to delete expense", err)
	}
	if deleted == 0 {
		// another request removed it first and already adjusted the total
		return nil
	}

	if err := s.balance.ExpenseDeleted(ctx, scope, row.Amount, row.CategoryID); err != nil {
		s.logger.Error("expense deleted but category total was not adjusted",
			"expense_id", id, "category_id", row.CategoryID, "error", err)
		return err
	}

	s.logger.Info("expense deleted", "expense_id", id, "category_id", row.CategoryID)
	return nil
}

// lostUpdate classifies a conditional update that matched nothing.
func (s *Service) lostUpdate(ctx context.Context, scope internal.Scope, id string) error {
	current, err := s.repo.GetByID(ctx, scope, id)
	if err != nil {
		s.logger.Error("failed to get expense", "expense_id", id, "error", err)
		return internal.NewInternalError("failed to get expense", err)
	}
	if current == nil {
		return internal.ErrExpenseNotFound
	}
	s.logger.Warn("expense changed between read and write", "expense_id", id)
	return internal.ErrExpenseChanged
}

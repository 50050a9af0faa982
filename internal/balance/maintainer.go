package balance

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/common/validation"
	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
)

// CategoryStore is the slice of the category repository the maintainer
// needs. Lookups return (nil, nil) when nothing matches the scope.
type CategoryStore interface {
	GetByID(ctx context.Context, scope internal.Scope, id string) (*categoryDatamodel.Category, error)
	GetByName(ctx context.Context, scope internal.Scope, name string) (*categoryDatamodel.Category, error)
	Create(ctx context.Context, c *categoryDatamodel.Category) error
	UpdateTotal(ctx context.Context, scope internal.Scope, id string, total float64) error
	Delete(ctx context.Context, scope internal.Scope, id string) error
}

type ExpenseStore interface {
	DeleteByCategory(ctx context.Context, scope internal.Scope, categoryID string) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Options struct {
	CategoryNameMinLen int
	Locker             Locker
	Publisher          Publisher
}

// Maintainer keeps every category's total equal to the rounded sum of its
// expenses. Each operation is a plain read-modify-write against the store;
// nothing is wrapped in a transaction and nothing is rolled back.
type Maintainer struct {
	categories CategoryStore
	expenses   ExpenseStore
	locker     Locker
	events     Publisher
	nameMinLen int
	logger     *slog.Logger
}

func NewMaintainer(categories CategoryStore, expenses ExpenseStore, logger *slog.Logger, opts Options) *Maintainer {
	locker := opts.Locker
	if locker == nil {
		locker = NoopLocker{}
	}
	if opts.CategoryNameMinLen < 1 {
		opts.CategoryNameMinLen = 1
	}
	return &Maintainer{
		categories: categories,
		expenses:   expenses,
		locker:     locker,
		events:     opts.Publisher,
		nameMinLen: opts.CategoryNameMinLen,
		logger:     logger,
	}
}

func (m *Maintainer) NormalizeName(raw string) (string, error) {
	name, appErr := validation.NormalizeCategoryName(raw, m.nameMinLen)
	if appErr != nil {
		return "", appErr
	}
	return name, nil
}

// ExpenseCreated adds amount to the named category. A missing category is
// created with the amount as its total when autoCreate is set, otherwise the
// call fails with not-found and nothing is written.
func (m *Maintainer) ExpenseCreated(ctx context.Context, scope internal.Scope, amount float64, categoryName string, autoCreate bool) (*categoryDatamodel.Category, error) {
	amount = Round2(amount)
	if appErr := validation.ValidateExpenseAmount(amount); appErr != nil {
		return nil, appErr
	}

	name, err := m.NormalizeName(categoryName)
	if err != nil {
		return nil, err
	}

	cat, err := m.categories.GetByName(ctx, scope, name)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up category", err)
	}

	if cat == nil {
		if !autoCreate {
			return nil, internal.ErrCategoryNotFound
		}

		unlockName := m.locker.Lock(nameKey(scope, name))
		defer unlockName()

		cat, err = m.categories.GetByName(ctx, scope, name)
		if err != nil {
			return nil, internal.NewInternalError("failed to look up category", err)
		}
		if cat == nil {
			return m.createWithTotal(ctx, scope, name, amount)
		}
	}

	return m.adjust(ctx, scope, cat.ID, events.ReasonExpenseCreated, func(total float64) float64 {
		return Add2(total, amount)
	})
}

func (m *Maintainer) createWithTotal(ctx context.Context, scope internal.Scope, name string, amount float64) (*categoryDatamodel.Category, error) {
	cat := &categoryDatamodel.Category{
		ID:      uuid.NewString(),
		OwnerID: scope.OwnerID,
		Name:    name,
		Total:   amount,
	}
	if err := m.categories.Create(ctx, cat); err != nil {
		m.logger.Error("failed to auto-create category", "name", name, "error", err)
		return nil, internal.NewInternalError("failed to create category", err)
	}

	m.logger.Info("category auto-created", "category_id", cat.ID, "name", name, "total", cat.Total)
	m.publish(ctx, cat, 0, events.ReasonCategoryCreated)
	return cat, nil
}

// ExpenseDeleted subtracts amount from the category. The expense record is
// already gone by now, so a missing category is not an error.
func (m *Maintainer) ExpenseDeleted(ctx context.Context, scope internal.Scope, amount float64, categoryID string) error {
	_, err := m.adjust(ctx, scope, categoryID, events.ReasonExpenseDeleted, func(total float64) float64 {
		return Add2(total, -amount)
	})
	if appErr, ok := internal.IsAppError(err); ok && appErr.Is(internal.ErrCategoryNotFound) {
		m.logger.Warn("category missing while removing expense amount",
			"category_id", categoryID, "amount", amount)
		return nil
	}
	return err
}

// ExpenseAmountUpdated applies next - prev to the category in one step.
func (m *Maintainer) ExpenseAmountUpdated(ctx context.Context, scope internal.Scope, prev, next float64, categoryID string) (*categoryDatamodel.Category, error) {
	next = Round2(next)
	if appErr := validation.ValidateExpenseAmount(next); appErr != nil {
		return nil, appErr
	}
	return m.adjust(ctx, scope, categoryID, events.ReasonExpenseUpdated, func(total float64) float64 {
		return Delta2(total, prev, next)
	})
}

// CategoryDeleted removes the category and then every expense that
// references it. If the cascade fails the category stays deleted.
func (m *Maintainer) CategoryDeleted(ctx context.Context, scope internal.Scope, categoryID string) error {
	unlock := m.locker.Lock(categoryID)
	defer unlock()

	cat, err := m.categories.GetByID(ctx, scope, categoryID)
	if err != nil {
		return internal.NewInternalError("failed to get category", err)
	}
	if cat == nil {
		return internal.ErrCategoryNotFound
	}

	if err := m.categories.Delete(ctx, scope, categoryID); err != nil {
		return internal.NewInternalError("failed to delete category", err)
	}

	if err := m.expenses.DeleteByCategory(ctx, scope, categoryID); err != nil {
		m.logger.Error("category deleted but its expenses were not",
			"category_id", categoryID, "error", err)
		return internal.NewInternalError("failed to delete category expenses", err)
	}

	m.logger.Info("category deleted", "category_id", categoryID, "name", cat.Name)
	return nil
}

// CategoryTotalOverwritten stores newTotal as given, rounded. It does not
// check the value against the category's expenses.
func (m *Maintainer) CategoryTotalOverwritten(ctx context.Context, scope internal.Scope, categoryID string, newTotal float64) (*categoryDatamodel.Category, error) {
	v := validation.NewValidator()
	v.Field("total", newTotal).Finite(internal.ErrCodeInvalidTotal)
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}
	return m.adjust(ctx, scope, categoryID, events.ReasonTotalOverwritten, func(float64) float64 {
		return Round2(newTotal)
	})
}

// adjust re-reads the category under its lock, computes the new total and
// writes only that column back.
func (m *Maintainer) adjust(ctx context.Context, scope internal.Scope, categoryID, reason string, next func(total float64) float64) (*categoryDatamodel.Category, error) {
	unlock := m.locker.Lock(categoryID)
	defer unlock()

	cat, err := m.categories.GetByID(ctx, scope, categoryID)
	if err != nil {
		return nil, internal.NewInternalError("failed to get category", err)
	}
	if cat == nil {
		return nil, internal.ErrCategoryNotFound
	}

	previous := cat.Total
	cat.Total = next(cat.Total)

	if err := m.categories.UpdateTotal(ctx, scope, cat.ID, cat.Total); err != nil {
		m.logger.Error("failed to store category total",
			"category_id", cat.ID, "reason", reason, "error", err)
		return nil, internal.NewInternalError("failed to update category total", err)
	}

	m.logger.Debug("category total updated",
		"category_id", cat.ID, "reason", reason, "previous", previous, "total", cat.Total)
	m.publish(ctx, cat, previous, reason)
	return cat, nil
}

func (m *Maintainer) publish(ctx context.Context, cat *categoryDatamodel.Category, previous float64, reason string) {
	if m.events == nil {
		return
	}
	event := events.NewBalanceChangedEvent(cat.ID, cat.Name, cat.OwnerID, previous, cat.Total, cat.Limit, reason)
	if err := m.events.Publish(ctx, event); err != nil {
		m.logger.Warn("failed to publish balance event", "category_id", cat.ID, "error", err)
	}
}

func nameKey(scope internal.Scope, name string) string {
	return "name:" + scope.OwnerID + "/" + name
}

package report

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/balance"
	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
)

type RepositoryAPI interface {
	SumByCategory(ctx context.Context, scope internal.Scope) ([]ExpenseSum, error)
}

type CategoryLister interface {
	List(ctx context.Context, scope internal.Scope) ([]*categoryDatamodel.Category, error)
}

type BalanceAPI interface {
	CategoryTotalOverwritten(ctx context.Context, scope internal.Scope, categoryID string, newTotal float64) (*categoryDatamodel.Category, error)
}

type Service struct {
	repo       RepositoryAPI
	categories CategoryLister
	balance    BalanceAPI
	currency   string
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, categories CategoryLister, balance BalanceAPI, currency string, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		balance:    balance,
		currency:   currency,
		logger:     logger,
	}
}

// Audit recomputes every category's sum from its expenses and reports how
// far the stored running total has drifted from it.
func (s *Service) Audit(ctx context.Context, scope internal.Scope) (*Audit, error) {
	categories, err := s.categories.List(ctx, scope)
	if err != nil {
		s.logger.Error("failed to list categories for audit", "error", err)
		return nil, internal.NewInternalError("failed to list categories", err)
	}

	sums, err := s.repo.SumByCategory(ctx, scope)
	if err != nil {
		s.logger.Error("failed to sum expenses", "error", err)
		return nil, internal.NewInternalError("failed to sum expenses", err)
	}
	byCategory := make(map[string]ExpenseSum, len(sums))
	for _, sum := range sums {
		byCategory[sum.CategoryID] = sum
	}

	audit := &Audit{Currency: s.currency, Categories: make([]CategoryBalance, 0, len(categories))}
	for _, c := range categories {
		sum := byCategory[c.ID]
		computed := balance.Round2(sum.Total)
		b := CategoryBalance{
			CategoryID:    c.ID,
			Name:          c.Name,
			Limit:         c.Limit,
			StoredTotal:   c.Total,
			ComputedTotal: computed,
			Drift:         balance.Add2(c.Total, -computed),
			ExpenseCount:  sum.Count,
			OverLimit:     c.Limit != nil && c.Total > float64(*c.Limit),
			Display:       formatAmount(c.Total, s.currency),
		}
		if b.Drifted() {
			audit.Drifted++
		}
		audit.Categories = append(audit.Categories, b)
	}
	return audit, nil
}

// Reconcile overwrites every drifted total with the recomputed sum. It is the
// repair path for partial failures, which are never rolled back in place.
func (s *Service) Reconcile(ctx context.Context, scope internal.Scope) (*ReconcileResult, error) {
	audit, err := s.Audit(ctx, scope)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Checked: len(audit.Categories), Repaired: []CategoryBalance{}}
	for _, b := range audit.Categories {
		if !b.Drifted() {
			continue
		}
		if _, err := s.balance.CategoryTotalOverwritten(ctx, scope, b.CategoryID, b.ComputedTotal); err != nil {
			s.logger.Error("failed to repair category total", "category_id", b.CategoryID, "error", err)
			return nil, err
		}
		s.logger.Warn("category total repaired",
			"category_id", b.CategoryID,
			"stored", b.StoredTotal,
			"computed", b.ComputedTotal)
		result.Repaired = append(result.Repaired, b)
	}
	return result, nil
}

package category

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/balance"
	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
)

type RepositoryAPI interface {
	balance.CategoryStore
	List(ctx context.Context, scope internal.Scope) ([]*categoryDatamodel.Category, error)
	UpdateDetails(ctx context.Context, scope internal.Scope, c *categoryDatamodel.Category) error
}

// BalanceAPI is the part of the balance maintainer category operations go
// through. Deletes and total overwrites never touch the repository directly.
type BalanceAPI interface {
	NormalizeName(raw string) (string, error)
	CategoryDeleted(ctx context.Context, scope internal.Scope, categoryID string) error
	CategoryTotalOverwritten(ctx context.Context, scope internal.Scope, categoryID string, newTotal float64) (*categoryDatamodel.Category, error)
}

type Service struct {
	repo    RepositoryAPI
	balance BalanceAPI
	logger  *slog.Logger
}

func NewService(repo RepositoryAPI, balance BalanceAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		balance: balance,
		logger:  logger,
	}
}

func (s *Service) List(ctx context.Context, scope internal.Scope) ([]*Category, error) {
	rows, err := s.repo.List(ctx, scope)
	if err != nil {
		s.logger.Error("failed to list categories", "error", err)
		return nil, internal.NewInternalError("failed to list categories", err)
	}

	categories := make([]*Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, FromDataModel(row))
	}
	return categories, nil
}

func (s *Service) Get(ctx context.Context, scope internal.Scope, id string) (*Category, error) {
	row, err := s.repo.GetByID(ctx, scope, id)
	if err != nil {
		s.logger.Error("failed to get category", "category_id", id, "error", err)
		return nil, internal.NewInternalError("failed to get category", err)
	}
	if row == nil {
		return nil, internal.ErrCategoryNotFound
	}
	return FromDataModel(row), nil
}

// Create stores a new category with a zero total. Names are unique per scope
// after normalization.
func (s *Service) Create(ctx context.Context, scope internal.Scope, dto CreateCategoryDTO) (*Category, error) {
	name, err := s.balance.NormalizeName(dto.Name)
	if err != nil {
		return nil, err
	}
	if appErr := validateLimit(dto.Limit); appErr != nil {
		return nil, appErr
	}

	if err := s.ensureNameFree(ctx, scope, name, ""); err != nil {
		return nil, err
	}

	row := &categoryDatamodel.Category{
		ID:      uuid.NewString(),
		OwnerID: scope.OwnerID,
		Name:    name,
		Limit:   dto.Limit,
		Total:   0,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create category", "name", name, "error", err)
		return nil, internal.NewInternalError("failed to create category", err)
	}

	s.logger.Info("category created", "category_id", row.ID, "name", name)
	return FromDataModel(row), nil
}

// Update applies any of name, limit and total. Everything is validated
// before the first write; a total goes through the balance maintainer.
func (s *Service) Update(ctx context.Context, scope internal.Scope, id string, dto UpdateCategoryDTO) (*Category, error) {
	if dto.IsEmpty() {
		return nil, internal.NewValidationError("at least one of name, limit or total is required", internal.ErrCodeValidationFailed)
	}
	if appErr := validateLimit(dto.Limit); appErr != nil {
		return nil, appErr
	}
	if appErr := validateTotal(dto.Total); appErr != nil {
		return nil, appErr
	}

	var name string
	if dto.Name != nil {
		normalized, err := s.balance.NormalizeName(*dto.Name)
		if err != nil {
			return nil, err
		}
		name = normalized
	}

	row, err := s.repo.GetByID(ctx, scope, id)
	if err != nil {
		s.logger.Error("failed to get category", "category_id", id, "error", err)
		return nil, internal.NewInternalError("failed to get category", err)
	}
	if row == nil {
		return nil, internal.ErrCategoryNotFound
	}

	detailsChanged := false
	if dto.Name != nil && name != row.Name {
		if err := s.ensureNameFree(ctx, scope, name, row.ID); err != nil {
			return nil, err
		}
		row.Name = name
		detailsChanged = true
	}
	if dto.Limit != nil {
		row.Limit = dto.Limit
		detailsChanged = true
	}

	if detailsChanged {
		if err := s.repo.UpdateDetails(ctx, scope, row); err != nil {
			s.logger.Error("failed to update category", "category_id", id, "error", err)
			return nil, internal.NewInternalError("failed to update category", err)
		}
	}

	if dto.Total != nil {
		updated, err := s.balance.CategoryTotalOverwritten(ctx, scope, id, *dto.Total)
		if err != nil {
			return nil, err
		}
		row = updated
	}

	s.logger.Info("category updated", "category_id", id)
	return FromDataModel(row), nil
}

func (s *Service) Delete(ctx context.Context, scope internal.Scope, id string) error {
	return s.balance.CategoryDeleted(ctx, scope, id)
}

func (s *Service) ensureNameFree(ctx context.Context, scope internal.Scope, name, selfID string) error {
	existing, err := s.repo.GetByName(ctx, scope, name)
	if err != nil {
		s.logger.Error("failed to look up category name", "name", name, "error", err)
		return internal.NewInternalError("failed to look up category", err)
	}
	if existing != nil && existing.ID != selfID {
		return internal.ErrCategoryExists
	}
	return nil
}

package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/category"
	"github.com/frahmantamala/expense-tracker/internal/core/common/tenancy"
	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
)

// CategoryRepository stores categories through gorm. It serves both the
// postgres and the sqlite deployment.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) scoped(ctx context.Context, scope internal.Scope) *gorm.DB {
	return r.db.WithContext(ctx).Scopes(tenancy.GormScope(scope))
}

func (r *CategoryRepository) List(ctx context.Context, scope internal.Scope) ([]*categoryDatamodel.Category, error) {
	var categories []*categoryDatamodel.Category
	err := r.scoped(ctx, scope).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) GetByID(ctx context.Context, scope internal.Scope, id string) (*categoryDatamodel.Category, error) {
	return r.first(r.scoped(ctx, scope).Where("id = ?", id))
}

func (r *CategoryRepository) GetByName(ctx context.Context, scope internal.Scope, name string) (*categoryDatamodel.Category, error) {
	return r.first(r.scoped(ctx, scope).Where("name = ?", name))
}

func (r *CategoryRepository) first(query *gorm.DB) (*categoryDatamodel.Category, error) {
	var cat categoryDatamodel.Category
	if err := query.First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) Create(ctx context.Context, cat *categoryDatamodel.Category) error {
	return r.db.WithContext(ctx).Create(cat).Error
}

func (r *CategoryRepository) UpdateTotal(ctx context.Context, scope internal.Scope, id string, total float64) error {
	return r.scoped(ctx, scope).
		Model(&categoryDatamodel.Category{}).
		Where("id = ?", id).
		Update("total", total).Error
}

func (r *CategoryRepository) UpdateDetails(ctx context.Context, scope internal.Scope, cat *categoryDatamodel.Category) error {
	return r.scoped(ctx, scope).
		Model(&categoryDatamodel.Category{}).
		Where("id = ?", cat.ID).
		Updates(map[string]interface{}{
			"name":           cat.Name,
			"spending_limit": cat.Limit,
		}).Error
}

func (r *CategoryRepository) Delete(ctx context.Context, scope internal.Scope, id string) error {
	return r.scoped(ctx, scope).Where("id = ?", id).Delete(&categoryDatamodel.Category{}).Error
}

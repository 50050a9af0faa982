package category

import (
	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/common/validation"
)

type CreateCategoryDTO struct {
	Name  string `json:"name"`
	Limit *int64 `json:"limit,omitempty"`
}

// UpdateCategoryDTO carries a partial update. Absent fields stay unchanged.
type UpdateCategoryDTO struct {
	Name  *string  `json:"name,omitempty"`
	Limit *int64   `json:"limit,omitempty"`
	Total *float64 `json:"total,omitempty"`
}

func (dto UpdateCategoryDTO) IsEmpty() bool {
	return dto.Name == nil && dto.Limit == nil && dto.Total == nil
}

type CategoriesResponse struct {
	Categories []*Category `json:"categories"`
}

func validateLimit(limit *int64) *internal.AppError {
	if limit == nil {
		return nil
	}
	v := validation.NewValidator()
	v.Field("limit", *limit).Positive(internal.ErrCodeInvalidLimit)
	return v.Validate()
}

func validateTotal(total *float64) *internal.AppError {
	if total == nil {
		return nil
	}
	v := validation.NewValidator()
	v.Field("total", *total).Finite(internal.ErrCodeInvalidTotal)
	return v.Validate()
}

package category

import (
	"time"

	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
)

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Limit     *int64    `json:"limit"`
	Total     float64   `json:"total"`
	OwnerID   string    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OverLimit reports whether the running total has passed the spending limit.
func (c *Category) OverLimit() bool {
	return c.Limit != nil && c.Total > float64(*c.Limit)
}

func FromDataModel(c *categoryDatamodel.Category) *Category {
	return &Category{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Name:      c.Name,
		Limit:     c.Limit,
		Total:     c.Total,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

package category

import "time"

// Category is the stored category record. Total is the denormalized running
// sum of the category's expense amounts, kept at two fraction digits.
type Category struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	OwnerID   string    `gorm:"column:owner_id;type:varchar(36);not null;default:'';uniqueIndex:idx_categories_owner_name" bson:"owner_id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:idx_categories_owner_name" bson:"name"`
	Limit     *int64    `gorm:"column:spending_limit" bson:"limit,omitempty"`
	Total     float64   `gorm:"column:total;not null;default:0" bson:"total"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" bson:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" bson:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

package expense

import "time"

type Expense struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	OwnerID     string    `gorm:"column:owner_id;type:varchar(36);not null;default:'';index" bson:"owner_id"`
	CategoryID  string    `gorm:"column:category_id;type:varchar(36);not null;index" bson:"category_id"`
	Description string    `gorm:"column:description;not null" bson:"description"`
	Amount      float64   `gorm:"column:amount;not null" bson:"amount"`
	Date        string    `gorm:"column:expense_date;type:varchar(10);not null" bson:"date"`
	Added       time.Time `gorm:"column:added;autoCreateTime" bson:"added"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" bson:"updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

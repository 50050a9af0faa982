package user

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Username     string    `gorm:"column:username;uniqueIndex;not null" bson:"username"`
	PasswordHash string    `gorm:"column:password_hash;not null" bson:"password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" bson:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" bson:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

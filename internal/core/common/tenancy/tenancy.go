// Package tenancy turns an internal.Scope into store-specific filters.
package tenancy

import (
	"go.mongodb.org/mongo-driver/bson"
	"gorm.io/gorm"

	"github.com/frahmantamala/expense-tracker/internal"
)

const OwnerColumn = "owner_id"

// GormScope restricts a query to the scope's owner, for use with db.Scopes.
func GormScope(scope internal.Scope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !scope.IsTenant() {
			return db
		}
		return db.Where(OwnerColumn+" = ?", scope.OwnerID)
	}
}

// MongoFilter adds the owner predicate to filter. A nil filter is allowed.
func MongoFilter(scope internal.Scope, filter bson.M) bson.M {
	if filter == nil {
		filter = bson.M{}
	}
	if scope.IsTenant() {
		filter[OwnerColumn] = scope.OwnerID
	}
	return filter
}

package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/common/tenancy"
	"github.com/frahmantamala/expense-tracker/internal/core/storage"
	"github.com/frahmantamala/expense-tracker/internal/report"
)

type ReportRepository struct {
	expenses *mongo.Collection
}

func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{expenses: db.Collection(storage.ExpensesCollection)}
}

var _ report.RepositoryAPI = (*ReportRepository)(nil)

func (r *ReportRepository) SumByCategory(ctx context.Context, scope internal.Scope) ([]report.ExpenseSum, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: tenancy.MongoFilter(scope, bson.M{})}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category_id"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.expenses.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var sums []report.ExpenseSum
	if err := cursor.All(ctx, &sums); err != nil {
		return nil, err
	}
	return sums, nil
}

package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/common/tenancy"
	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tracker/internal/core/storage"
	"github.com/frahmantamala/expense-tracker/internal/expense"
)

type ExpenseRepository struct {
	coll *mongo.Collection
}

func NewExpenseRepository(db *mongo.Database) *ExpenseRepository {
	return &ExpenseRepository{coll: db.Collection(storage.ExpensesCollection)}
}

var _ expense.RepositoryAPI = (*ExpenseRepository)(nil)

func (r *ExpenseRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "category_id", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: -1}}},
	})
	return err
}

func (r *ExpenseRepository) List(ctx context.Context, scope internal.Scope, filter expense.ListFilter) ([]*expenseDatamodel.Expense, error) {
	query := bson.M{}
	if filter.CategoryID != "" {
		query["category_id"] = filter.CategoryID
	}
	cursor, err := r.coll.Find(ctx, tenancy.MongoFilter(scope, query),
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "added", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var expenses []*expenseDatamodel.Expense
	if err := cursor.All(ctx, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *ExpenseRepository) GetByID(ctx context.Context, scope internal.Scope, id string) (*expenseDatamodel.Expense, error) {
	var exp expenseDatamodel.Expense
	err := r.coll.FindOne(ctx, tenancy.MongoFilter(scope, bson.M{"_id": id})).Decode(&exp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &exp, nil
}

func (r *ExpenseRepository) Create(ctx context.Context, exp *expenseDatamodel.Expense) error {
	now := time.Now().UTC()
	if exp.Added.IsZero() {
		exp.Added = now
	}
	exp.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, exp)
	return err
}

// Update matches on the previous amount so a concurrent change is not
// overwritten. It reports how many documents matched.
func (r *ExpenseRepository) Update(ctx context.Context, scope internal.Scope, exp *expenseDatamodel.Expense, previousAmount float64) (int64, error) {
	result, err := r.coll.UpdateOne(ctx, tenancy.MongoFilter(scope, bson.M{"_id": exp.ID, "amount": previousAmount}), bson.M{
		"$set": bson.M{
			"description": exp.Description,
			"amount":      exp.Amount,
			"date":        exp.Date,
			"updated_at":  time.Now().UTC(),
		},
	})
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, scope internal.Scope, id string) (int64, error) {
	result, err := r.coll.DeleteOne(ctx, tenancy.MongoFilter(scope, bson.M{"_id": id}))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *ExpenseRepository) DeleteByCategory(ctx context.Context, scope internal.Scope, categoryID string) error {
	_, err := r.coll.DeleteMany(ctx, tenancy.MongoFilter(scope, bson.M{"category_id": categoryID}))
	return err
}

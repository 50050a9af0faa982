package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/category"
	"github.com/frahmantamala/expense-tracker/internal/core/common/tenancy"
	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
	"github.com/frahmantamala/expense-tracker/internal/core/storage"
)

// CategoryRepository keeps categories in a document collection, one
// document per category keyed by its uuid.
type CategoryRepository struct {
	coll *mongo.Collection
}

func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{coll: db.Collection(storage.CategoriesCollection)}
}

var _ category.RepositoryAPI = (*CategoryRepository)(nil)

// EnsureIndexes creates the per-owner unique name index.
func (r *CategoryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *CategoryRepository) List(ctx context.Context, scope internal.Scope) ([]*categoryDatamodel.Category, error) {
	cursor, err := r.coll.Find(ctx, tenancy.MongoFilter(scope, nil),
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var categories []*categoryDatamodel.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, scope internal.Scope, id string) (*categoryDatamodel.Category, error) {
	return r.findOne(ctx, tenancy.MongoFilter(scope, bson.M{"_id": id}))
}

func (r *CategoryRepository) GetByName(ctx context.Context, scope internal.Scope, name string) (*categoryDatamodel.Category, error) {
	return r.findOne(ctx, tenancy.MongoFilter(scope, bson.M{"name": name}))
}

func (r *CategoryRepository) findOne(ctx context.Context, filter bson.M) (*categoryDatamodel.Category, error) {
	var cat categoryDatamodel.Category
	if err := r.coll.FindOne(ctx, filter).Decode(&cat); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) Create(ctx context.Context, cat *categoryDatamodel.Category) error {
	now := time.Now().UTC()
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = now
	}
	cat.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, cat)
	return err
}

func (r *CategoryRepository) UpdateTotal(ctx context.Context, scope internal.Scope, id string, total float64) error {
	_, err := r.coll.UpdateOne(ctx, tenancy.MongoFilter(scope, bson.M{"_id": id}), bson.M{
		"$set": bson.M{"total": total, "updated_at": time.Now().UTC()},
	})
	return err
}

func (r *CategoryRepository) UpdateDetails(ctx context.Context, scope internal.Scope, cat *categoryDatamodel.Category) error {
	set := bson.M{"name": cat.Name, "updated_at": time.Now().UTC()}
	update := bson.M{"$set": set}
	if cat.Limit != nil {
		set["limit"] = *cat.Limit
	} else {
		update["$unset"] = bson.M{"limit": ""}
	}
	_, err := r.coll.UpdateOne(ctx, tenancy.MongoFilter(scope, bson.M{"_id": cat.ID}), update)
	return err
}

func (r *CategoryRepository) Delete(ctx context.Context, scope internal.Scope, id string) error {
	_, err := r.coll.DeleteOne(ctx, tenancy.MongoFilter(scope, bson.M{"_id": id}))
	return err
}

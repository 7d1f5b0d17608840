package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	tenantserrors "tourhub/internal/tenants/errors"
	"tourhub/pkg/config"
	mongodb "tourhub/pkg/db/mongo"
	"tourhub/pkg/model"
)

const (
	CollectionName = "tenants"

	usersCollection       = "users"
	attractionsCollection = "attractions"
)

type TenantFilter struct {
	Status model.TenantStatus
	Search string
	IDs    []primitive.ObjectID
}

type TenantRepository interface {
	Create(ctx context.Context, t *model.Tenant) error
	FindByID(ctx context.Context, id string) (*model.Tenant, error)
	FindActive(ctx context.Context, ref string) (*model.Tenant, error)
	FindActiveByDomain(ctx context.Context, domain string) (*model.Tenant, error)
	FindAll(ctx context.Context, f TenantFilter, limit int, skip int64) ([]*model.Tenant, error)
	Count(ctx context.Context, f TenantFilter) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.Tenant, error)

	// Delete removes the tenant and every reference to it from users and
	// attractions in a single transaction.
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoTenantRepository struct {
	cfg         *config.Config
	collection  *mongo.Collection
	users       *mongo.Collection
	attractions *mongo.Collection
	tx          mongodb.TransactionManager
}

func NewMongoTenantRepository(cfg *config.Config) TenantRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTenantRepository{
		cfg:         cfg,
		collection:  db.Collection(CollectionName),
		users:       db.Collection(usersCollection),
		attractions: db.Collection(attractionsCollection),
		tx:          mongodb.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoTenantRepository) Create(ctx context.Context, t *model.Tenant) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongodb.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Domains == nil {
		t.Domains = []string{}
	}

	result, err := r.collection.InsertOne(ctx, t)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", tenantserrors.ErrDuplicateSlug, t.Slug)
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		t.ID = oid
	}
	return nil
}

func (r *mongoTenantRepository) findOne(ctx context.Context, filter bson.M, ref string) (*model.Tenant, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var t model.Tenant
	if err := r.collection.FindOne(ctx, filter).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", tenantserrors.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to find tenant: %w", err)
	}
	return &t, nil
}

func (r *mongoTenantRepository) FindByID(ctx context.Context, id string) (*model.Tenant, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", tenantserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID}, id)
}

// FindActive looks a tenant up by ObjectID or slug.
func (r *mongoTenantRepository) FindActive(ctx context.Context, ref string) (*model.Tenant, error) {
	filter := mongodb.IDOrSlugFilter(ref)
	filter["status"] = model.TenantStatusActive
	return r.findOne(ctx, filter, ref)
}

func (r *mongoTenantRepository) FindActiveByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	return r.findOne(ctx, bson.M{"domains": domain, "status": model.TenantStatusActive}, domain)
}

func buildFilter(f TenantFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.IDs != nil {
		filter["_id"] = bson.M{"$in": f.IDs}
	}
	if f.Search != "" {
		re := mongodb.ContainsInsensitive(f.Search)
		filter["$or"] = []bson.M{{"name": re}, {"slug": re}, {"domains": re}}
	}
	return filter
}

func (r *mongoTenantRepository) FindAll(ctx context.Context, f TenantFilter, limit int, skip int64) ([]*model.Tenant, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(skip).
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer cursor.Close(ctx)

	tenants := []*model.Tenant{}
	if err := cursor.All(ctx, &tenants); err != nil {
		return nil, fmt.Errorf("failed to decode tenants: %w", err)
	}
	return tenants, nil
}

func (r *mongoTenantRepository) Count(ctx context.Context, f TenantFilter) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count tenants: %w", err)
	}
	return count, nil
}

func (r *mongoTenantRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.Tenant, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set["updatedAt"] = mongodb.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var t model.Tenant
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", tenantserrors.ErrNotFound, id.Hex())
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %v", tenantserrors.ErrDuplicateSlug, set["slug"])
		}
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	return &t, nil
}

func (r *mongoTenantRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	return r.tx.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		result, err := r.collection.DeleteOne(sessCtx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to delete tenant: %w", err)
		}
		if result.DeletedCount == 0 {
			return fmt.Errorf("%w: %s", tenantserrors.ErrNotFound, id.Hex())
		}

		pull := bson.M{"$pull": bson.M{"tenants": id}}
		if _, err := r.users.UpdateMany(sessCtx, bson.M{"tenants": id}, pull); err != nil {
			return fmt.Errorf("failed to detach tenant from users: %w", err)
		}
		if _, err := r.attractions.UpdateMany(sessCtx, bson.M{"tenants": id}, pull); err != nil {
			return fmt.Errorf("failed to detach tenant from attractions: %w", err)
		}
		return nil
	})
}

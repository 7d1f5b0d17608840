package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	attractionserrors "tourhub/internal/attractions/errors"
	"tourhub/pkg/config"
	mongodb "tourhub/pkg/db/mongo"
	"tourhub/pkg/model"
)

const (
	CollectionName = "attractions"
)

// Named sort orders accepted by the public listing.
var sortOrders = map[string]bson.D{
	"price":   {{Key: "pricing.basePrice", Value: 1}, {Key: "_id", Value: 1}},
	"-price":  {{Key: "pricing.basePrice", Value: -1}, {Key: "_id", Value: -1}},
	"rating":  {{Key: "rating.average", Value: -1}, {Key: "rating.count", Value: -1}, {Key: "_id", Value: -1}},
	"newest":  {{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
	"popular": {{Key: "stats.bookingCount", Value: -1}, {Key: "_id", Value: -1}},
	"title":   {{Key: "title", Value: 1}, {Key: "_id", Value: 1}},
}

var defaultSort = bson.D{{Key: "featured", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// IsValidSort reports whether s names a supported sort order.
func IsValidSort(s string) bool {
	_, ok := sortOrders[s]
	return s == "" || ok
}

type AttractionFilter struct {
	Status      model.AttractionStatus
	Destination *primitive.ObjectID
	Category    *primitive.ObjectID
	MinPrice    *float64
	MaxPrice    *float64
	Search      string
	Featured    *bool
	Badge       string
	// Tenant limits results to attractions sold by the tenant or shared by all.
	Tenant *primitive.ObjectID
	Sort   string
}

func (f AttractionFilter) query() bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Destination != nil {
		filter["destination"] = *f.Destination
	}
	if f.Category != nil {
		filter["category"] = *f.Category
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["pricing.basePrice"] = price
	}
	if f.Featured != nil {
		filter["featured"] = *f.Featured
	}
	if f.Badge != "" {
		filter["badges"] = f.Badge
	}

	var and []bson.M
	if f.Search != "" {
		re := mongodb.ContainsInsensitive(f.Search)
		and = append(and, bson.M{"$or": []bson.M{
			{"title": re},
			{"shortDescription": re},
			{"description": re},
		}})
	}
	if f.Tenant != nil {
		and = append(and, bson.M{"$or": []bson.M{
			{"tenants": *f.Tenant},
			{"tenants": bson.M{"$size": 0}},
			{"tenants": bson.M{"$exists": false}},
		}})
	}
	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter
}

type AttractionRepository interface {
	Create(ctx context.Context, a *model.Attraction) error
	FindByRef(ctx context.Context, ref string) (*model.Attraction, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Attraction, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Attraction, error)
	FindAll(ctx context.Context, f AttractionFilter, limit int, skip int64) ([]*model.Attraction, error)
	Count(ctx context.Context, f AttractionFilter) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.Attraction, error)
	IncrementViewCount(ctx context.Context, id primitive.ObjectID) error
	IncrementBookingCount(ctx context.Context, id primitive.ObjectID, delta int) error
}

type mongoAttractionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAttractionRepository(cfg *config.Config) AttractionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAttractionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoAttractionRepository) Create(ctx context.Context, a *model.Attraction) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongodb.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.Tenants == nil {
		a.Tenants = []primitive.ObjectID{}
	}
	if a.Badges == nil {
		a.Badges = []string{}
	}
	if a.Images == nil {
		a.Images = []model.Image{}
	}

	result, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", attractionserrors.ErrDuplicateSlug, a.Slug)
		}
		return fmt.Errorf("failed to create attraction: %w", err)
	}
	a.ID, _ = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoAttractionRepository) findOne(ctx context.Context, filter bson.M, ref string) (*model.Attraction, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var a model.Attraction
	if err := r.collection.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", attractionserrors.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to find attraction: %w", err)
	}
	return &a, nil
}

// FindByRef looks an attraction up by hex id or slug.
func (r *mongoAttractionRepository) FindByRef(ctx context.Context, ref string) (*model.Attraction, error) {
	return r.findOne(ctx, mongodb.IDOrSlugFilter(ref), ref)
}

func (r *mongoAttractionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Attraction, error) {
	return r.findOne(ctx, bson.M{"_id": id}, id.Hex())
}

func (r *mongoAttractionRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Attraction, error) {
	if len(ids) == 0 {
		return []*model.Attraction{}, nil
	}

	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find attractions: %w", err)
	}
	defer cursor.Close(ctx)

	attractions := []*model.Attraction{}
	if err := cursor.All(ctx, &attractions); err != nil {
		return nil, fmt.Errorf("failed to decode attractions: %w", err)
	}
	return attractions, nil
}

func (r *mongoAttractionRepository) FindAll(ctx context.Context, f AttractionFilter, limit int, skip int64) ([]*model.Attraction, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	sort, ok := sortOrders[f.Sort]
	if !ok {
		sort = defaultSort
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(skip).
		SetSort(sort)

	cursor, err := r.collection.Find(ctx, f.query(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query attractions: %w", err)
	}
	defer cursor.Close(ctx)

	attractions := []*model.Attraction{}
	if err := cursor.All(ctx, &attractions); err != nil {
		return nil, fmt.Errorf("failed to decode attractions: %w", err)
	}
	return attractions, nil
}

func (r *mongoAttractionRepository) Count(ctx context.Context, f AttractionFilter) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, f.query())
	if err != nil {
		return 0, fmt.Errorf("failed to count attractions: %w", err)
	}
	return n, nil
}

func (r *mongoAttractionRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.Attraction, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set["updatedAt"] = mongodb.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a model.Attraction
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", attractionserrors.ErrNotFound, id.Hex())
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %v", attractionserrors.ErrDuplicateSlug, set["slug"])
		}
		return nil, fmt.Errorf("failed to update attraction: %w", err)
	}
	return &a, nil
}

func (r *mongoAttractionRepository) increment(ctx context.Context, id primitive.ObjectID, field string, delta int) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", field, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", attractionserrors.ErrNotFound, id.Hex())
	}
	return nil
}

// IncrementViewCount leaves updatedAt untouched; views are not edits.
func (r *mongoAttractionRepository) IncrementViewCount(ctx context.Context, id primitive.ObjectID) error {
	return r.increment(ctx, id, "stats.viewCount", 1)
}

func (r *mongoAttractionRepository) IncrementBookingCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	return r.increment(ctx, id, "stats.bookingCount", delta)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	catalogerrors "tourhub/internal/catalog/errors"
	"tourhub/pkg/config"
	mongodb "tourhub/pkg/db/mongo"
)

const (
	CategoriesCollection   = "categories"
	DestinationsCollection = "destinations"

	attractionsCollection = "attractions"
)

// ListFilter is shared by category and destination listings.
type ListFilter struct {
	ActiveOnly bool
	Search     string
	Featured   *bool
	Country    string
}

func (f ListFilter) query() bson.M {
	filter := bson.M{}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	if f.Featured != nil {
		filter["featured"] = *f.Featured
	}
	if f.Country != "" {
		filter["country"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Country) + "$", Options: "i"}
	}
	if f.Search != "" {
		re := mongodb.ContainsInsensitive(f.Search)
		filter["$or"] = []bson.M{{"name": re}, {"description": re}}
	}
	return filter
}

var listSort = bson.D{{Key: "sortOrder", Value: 1}, {Key: "name", Value: 1}, {Key: "_id", Value: 1}}

// store holds the collection plumbing common to both catalog entities.
type store struct {
	cfg         *config.Config
	collection  *mongo.Collection
	attractions *mongo.Collection
	tx          mongodb.TransactionManager
	notFound    error
	refField    string
}

func newStore(cfg *config.Config, collection string, notFound error, refField string) store {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return store{
		cfg:         cfg,
		collection:  db.Collection(collection),
		attractions: db.Collection(attractionsCollection),
		tx:          mongodb.NewTransactionManager(cfg.Client.Mongo),
		notFound:    notFound,
		refField:    refField,
	}
}

func (s store) insert(ctx context.Context, doc any) (primitive.ObjectID, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	result, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, catalogerrors.ErrDuplicateSlug
		}
		return primitive.NilObjectID, fmt.Errorf("failed to insert into %s: %w", s.collection.Name(), err)
	}
	oid, _ := result.InsertedID.(primitive.ObjectID)
	return oid, nil
}

func (s store) findOne(ctx context.Context, filter bson.M, ref string, out any) error {
	ctx, cancel := mongodb.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	if err := s.collection.FindOne(ctx, filter).Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: %s", s.notFound, ref)
		}
		return fmt.Errorf("failed to find in %s: %w", s.collection.Name(), err)
	}
	return nil
}

func (s store) findRef(ctx context.Context, ref string, activeOnly bool, out any) error {
	filter := mongodb.IDOrSlugFilter(ref)
	if activeOnly {
		filter["isActive"] = true
	}
	return s.findOne(ctx, filter, ref, out)
}

func (s store) findAll(ctx context.Context, f ListFilter, limit int, skip int64, out any) error {
	ctx, cancel := mongodb.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetLimit(int64(limit)).SetSkip(skip).SetSort(listSort)
	cursor, err := s.collection.Find(ctx, f.query(), opts)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", s.collection.Name(), err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", s.collection.Name(), err)
	}
	return nil
}

func (s store) count(ctx context.Context, f ListFilter) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	n, err := s.collection.CountDocuments(ctx, f.query())
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", s.collection.Name(), err)
	}
	return n, nil
}

func (s store) update(ctx context.Context, id primitive.ObjectID, set bson.M, out any) error {
	ctx, cancel := mongodb.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	set["updatedAt"] = mongodb.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: %s", s.notFound, id.Hex())
		}
		if mongo.IsDuplicateKeyError(err) {
			return catalogerrors.ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update %s: %w", s.collection.Name(), err)
	}
	return nil
}

// delete refuses to remove an entry that any attraction points at. The
// reference check and the delete share a transaction.
func (s store) delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := mongodb.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	return s.tx.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		refs, err := s.attractions.CountDocuments(sessCtx, bson.M{s.refField: id}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("failed to check references: %w", err)
		}
		if refs > 0 {
			return catalogerrors.ErrInUse
		}

		result, err := s.collection.DeleteOne(sessCtx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to delete from %s: %w", s.collection.Name(), err)
		}
		if result.DeletedCount == 0 {
			return fmt.Errorf("%w: %s", s.notFound, id.Hex())
		}
		return nil
	})
}

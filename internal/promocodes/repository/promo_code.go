package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	promoerrors "tourhub/internal/promocodes/errors"
	"tourhub/pkg/config"
	mongodb "tourhub/pkg/db/mongo"
	"tourhub/pkg/model"
)

const (
	CollectionName = "promo_codes"
)

type PromoCodeFilter struct {
	Active *bool
	Search string
	// Tenants, when non-nil, limits results to codes of these tenants.
	Tenants []primitive.ObjectID
}

func (f PromoCodeFilter) query() bson.M {
	filter := bson.M{}
	if f.Active != nil {
		filter["isActive"] = *f.Active
	}
	if f.Search != "" {
		re := mongodb.ContainsInsensitive(f.Search)
		filter["$or"] = []bson.M{{"code": re}, {"description": re}}
	}
	if f.Tenants != nil {
		filter["tenants"] = bson.M{"$in": f.Tenants}
	}
	return filter
}

type PromoCodeRepository interface {
	Create(ctx context.Context, p *model.PromoCode) error
	FindByID(ctx context.Context, id string) (*model.PromoCode, error)
	FindByCode(ctx context.Context, code string) (*model.PromoCode, error)
	FindAll(ctx context.Context, f PromoCodeFilter, limit int, skip int64) ([]*model.PromoCode, error)
	Count(ctx context.Context, f PromoCodeFilter) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.PromoCode, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoPromoCodeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPromoCodeRepository(cfg *config.Config) PromoCodeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPromoCodeRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPromoCodeRepository) Create(ctx context.Context, p *model.PromoCode) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongodb.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Tenants == nil {
		p.Tenants = []primitive.ObjectID{}
	}

	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", promoerrors.ErrDuplicateCode, p.Code)
		}
		return fmt.Errorf("failed to create promo code: %w", err)
	}
	p.ID, _ = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoPromoCodeRepository) findOne(ctx context.Context, filter bson.M, ref string) (*model.PromoCode, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var p model.PromoCode
	if err := r.collection.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", promoerrors.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to find promo code: %w", err)
	}
	return &p, nil
}

func (r *mongoPromoCodeRepository) FindByID(ctx context.Context, id string) (*model.PromoCode, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", promoerrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": oid}, id)
}

// FindByCode expects an already normalized code.
func (r *mongoPromoCodeRepository) FindByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	return r.findOne(ctx, bson.M{"code": code}, code)
}

func (r *mongoPromoCodeRepository) FindAll(ctx context.Context, f PromoCodeFilter, limit int, skip int64) ([]*model.PromoCode, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(skip).
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, f.query(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query promo codes: %w", err)
	}
	defer cursor.Close(ctx)

	codes := []*model.PromoCode{}
	if err := cursor.All(ctx, &codes); err != nil {
		return nil, fmt.Errorf("failed to decode promo codes: %w", err)
	}
	return codes, nil
}

func (r *mongoPromoCodeRepository) Count(ctx context.Context, f PromoCodeFilter) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, f.query())
	if err != nil {
		return 0, fmt.Errorf("failed to count promo codes: %w", err)
	}
	return n, nil
}

func (r *mongoPromoCodeRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.PromoCode, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set["updatedAt"] = mongodb.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p model.PromoCode
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", promoerrors.ErrNotFound, id.Hex())
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %v", promoerrors.ErrDuplicateCode, set["code"])
		}
		return nil, fmt.Errorf("failed to update promo code: %w", err)
	}
	return &p, nil
}

func (r *mongoPromoCodeRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete promo code: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", promoerrors.ErrNotFound, id.Hex())
	}
	return nil
}

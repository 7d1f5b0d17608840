package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	userserrors "tourhub/internal/users/errors"
	"tourhub/pkg/config"
	mongodb "tourhub/pkg/db/mongo"
	"tourhub/pkg/model"
)

const (
	CollectionName = "users"
)

var sortFields = map[string]string{
	"name":      "name",
	"email":     "email",
	"createdAt": "createdAt",
	"lastLogin": "lastLoginAt",
}

// UserFilter holds the optional list filters of the admin user listing.
type UserFilter struct {
	Role    model.Role
	Status  model.UserStatus
	Search  string
	Tenants []primitive.ObjectID
	Sort    string
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*model.User, error)
	FindAll(ctx context.Context, f UserFilter, limit int, skip int64) ([]*model.User, error)
	Count(ctx context.Context, f UserFilter) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.User, error)

	SetRefreshTokenHash(ctx context.Context, id primitive.ObjectID, hash string) error
	RotateRefreshTokenHash(ctx context.Context, id primitive.ObjectID, oldHash, newHash string) (bool, error)
	SetPasswordResetToken(ctx context.Context, id primitive.ObjectID, hash string, expires time.Time) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error

	AddToWishlist(ctx context.Context, id, attractionID primitive.ObjectID) error
	RemoveFromWishlist(ctx context.Context, id, attractionID primitive.ObjectID) error
	IncrementBookingStats(ctx context.Context, id primitive.ObjectID, amount float64) error
}

type mongoUserRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoUserRepository(cfg *config.Config) UserRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoUserRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoUserRepository) Create(ctx context.Context, u *model.User) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongodb.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Tenants == nil {
		u.Tenants = []primitive.ObjectID{}
	}
	if u.Wishlist == nil {
		u.Wishlist = []primitive.ObjectID{}
	}

	result, err := r.collection.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", userserrors.ErrDuplicateEmail, u.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", userserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID}, id)
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, email)
}

func (r *mongoUserRepository) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*model.User, error) {
	return r.findOne(ctx, bson.M{
		"passwordResetToken":   hash,
		"passwordResetExpires": bson.M{"$gt": now},
	}, "reset token")
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M, ref string) (*model.User, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var u model.User
	if err := r.collection.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", userserrors.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

func buildFilter(f UserFilter) bson.M {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if len(f.Tenants) > 0 {
		filter["tenants"] = bson.M{"$in": f.Tenants}
	}
	if f.Search != "" {
		re := mongodb.ContainsInsensitive(f.Search)
		filter["$or"] = []bson.M{{"name": re}, {"email": re}}
	}
	return filter
}

func (r *mongoUserRepository) FindAll(ctx context.Context, f UserFilter, limit int, skip int64) ([]*model.User, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(skip).
		SetSort(mongodb.SortFrom(f.Sort, sortFields, bson.D{{Key: "createdAt", Value: -1}})).
		SetProjection(bson.M{"password": 0, "refreshTokenHash": 0, "passwordResetToken": 0})

	cursor, err := r.collection.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []*model.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (r *mongoUserRepository) Count(ctx context.Context, f UserFilter) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *mongoUserRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.User, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set["updatedAt"] = mongodb.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var u model.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", userserrors.ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &u, nil
}

func (r *mongoUserRepository) updateOne(ctx context.Context, filter, update bson.M) (*mongo.UpdateResult, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return result, nil
}

func (r *mongoUserRepository) mustMatch(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	result, err := r.updateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", userserrors.ErrNotFound, id.Hex())
	}
	return nil
}

// SetRefreshTokenHash stores hash, or removes the stored hash when empty.
func (r *mongoUserRepository) SetRefreshTokenHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	update := bson.M{"$set": bson.M{"refreshTokenHash": hash}}
	if hash == "" {
		update = bson.M{"$unset": bson.M{"refreshTokenHash": ""}}
	}
	return r.mustMatch(ctx, id, update)
}

// RotateRefreshTokenHash swaps oldHash for newHash only if oldHash is still
// the stored value. It reports false when another refresh won the race or
// the token was already rotated.
func (r *mongoUserRepository) RotateRefreshTokenHash(ctx context.Context, id primitive.ObjectID, oldHash, newHash string) (bool, error) {
	result, err := r.updateOne(ctx,
		bson.M{"_id": id, "refreshTokenHash": oldHash},
		bson.M{"$set": bson.M{"refreshTokenHash": newHash}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

func (r *mongoUserRepository) SetPasswordResetToken(ctx context.Context, id primitive.ObjectID, hash string, expires time.Time) error {
	return r.mustMatch(ctx, id, bson.M{"$set": bson.M{
		"passwordResetToken":   hash,
		"passwordResetExpires": expires,
	}})
}

// UpdatePassword also revokes the refresh token and any pending reset token.
func (r *mongoUserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	return r.mustMatch(ctx, id, bson.M{
		"$set":   bson.M{"password": passwordHash, "updatedAt": mongodb.Now()},
		"$unset": bson.M{"refreshTokenHash": "", "passwordResetToken": "", "passwordResetExpires": ""},
	})
}

func (r *mongoUserRepository) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.mustMatch(ctx, id, bson.M{"$set": bson.M{"lastLoginAt": at}})
}

func (r *mongoUserRepository) AddToWishlist(ctx context.Context, id, attractionID primitive.ObjectID) error {
	return r.mustMatch(ctx, id, bson.M{"$addToSet": bson.M{"wishlist": attractionID}})
}

func (r *mongoUserRepository) RemoveFromWishlist(ctx context.Context, id, attractionID primitive.ObjectID) error {
	return r.mustMatch(ctx, id, bson.M{"$pull": bson.M{"wishlist": attractionID}})
}

func (r *mongoUserRepository) IncrementBookingStats(ctx context.Context, id primitive.ObjectID, amount float64) error {
	return r.mustMatch(ctx, id, bson.M{"$inc": bson.M{
		"stats.totalBookings": 1,
		"stats.totalSpent":    amount,
	}})
}

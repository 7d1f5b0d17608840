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

	bookingserrors "tourhub/internal/bookings/errors"
	"tourhub/pkg/config"
	mongodb "tourhub/pkg/db/mongo"
	"tourhub/pkg/model"
)

const (
	CollectionName = "bookings"
)

type BookingFilter struct {
	Status        model.BookingStatus
	PaymentStatus model.PaymentStatus
	Attraction    *primitive.ObjectID
	User          *primitive.ObjectID
	Reference     string
	From          *time.Time
	To            *time.Time
	// Tenants, when non-nil, limits results to bookings of these tenants.
	Tenants []primitive.ObjectID
}

func (f BookingFilter) query() bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.PaymentStatus != "" {
		filter["paymentStatus"] = f.PaymentStatus
	}
	if f.Attraction != nil {
		filter["attraction"] = *f.Attraction
	}
	if f.User != nil {
		filter["user"] = *f.User
	}
	if f.Reference != "" {
		filter["reference"] = f.Reference
	}
	if f.From != nil || f.To != nil {
		date := bson.M{}
		if f.From != nil {
			date["$gte"] = *f.From
		}
		if f.To != nil {
			date["$lte"] = *f.To
		}
		filter["bookingDate"] = date
	}
	if f.Tenants != nil {
		filter["tenant"] = bson.M{"$in": f.Tenants}
	}
	return filter
}

type BookingRepository interface {
	Create(ctx context.Context, b *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByReference(ctx context.Context, reference string) (*model.Booking, error)
	FindByPaymentIntent(ctx context.Context, intentID string) (*model.Booking, error)
	FindAll(ctx context.Context, f BookingFilter, limit int, skip int64) ([]*model.Booking, error)
	Count(ctx context.Context, f BookingFilter) (int64, error)
	// UpdateIf applies set only while the booking still matches cond.
	UpdateIf(ctx context.Context, id primitive.ObjectID, cond bson.M, set bson.M) (*model.Booking, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongodb.Now()
	b.CreatedAt, b.UpdatedAt = now, now

	result, err := r.collection.InsertOne(ctx, b)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateReference, b.Reference)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	b.ID, _ = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M, ref string) (*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var b model.Booking
	if err := r.collection.FindOne(ctx, filter).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &b, nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": oid}, id)
}

func (r *mongoBookingRepository) FindByReference(ctx context.Context, reference string) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{"reference": reference}, reference)
}

func (r *mongoBookingRepository) FindByPaymentIntent(ctx context.Context, intentID string) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{"paymentIntentId": intentID}, intentID)
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, f BookingFilter, limit int, skip int64) ([]*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(skip)

	cursor, err := r.collection.Find(ctx, f.query(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, f BookingFilter) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, f.query())
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return n, nil
}

func (r *mongoBookingRepository) UpdateIf(ctx context.Context, id primitive.ObjectID, cond bson.M, set bson.M) (*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id}
	for k, v := range cond {
		filter[k] = v
	}
	set["updatedAt"] = mongodb.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var b model.Booking
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&b)
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to check booking: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id.Hex())
	}
	return nil, fmt.Errorf("%w: %s", bookingserrors.ErrStatusConflict, id.Hex())
}

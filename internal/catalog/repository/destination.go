package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	catalogerrors "tourhub/internal/catalog/errors"
	"tourhub/pkg/config"
	mongodb "tourhub/pkg/db/mongo"
	"tourhub/pkg/model"
)

type DestinationRepository interface {
	Create(ctx context.Context, d *model.Destination) error
	FindByRef(ctx context.Context, ref string, activeOnly bool) (*model.Destination, error)
	FindAll(ctx context.Context, f ListFilter, limit int, skip int64) ([]*model.Destination, error)
	Count(ctx context.Context, f ListFilter) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.Destination, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoDestinationRepository struct {
	store
}

func NewMongoDestinationRepository(cfg *config.Config) DestinationRepository {
	return &mongoDestinationRepository{
		store: newStore(cfg, DestinationsCollection, catalogerrors.ErrDestinationNotFound, "destination"),
	}
}

func (r *mongoDestinationRepository) Create(ctx context.Context, d *model.Destination) error {
	now := mongodb.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	id, err := r.insert(ctx, d)
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

func (r *mongoDestinationRepository) FindByRef(ctx context.Context, ref string, activeOnly bool) (*model.Destination, error) {
	var d model.Destination
	if err := r.findRef(ctx, ref, activeOnly, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *mongoDestinationRepository) FindAll(ctx context.Context, f ListFilter, limit int, skip int64) ([]*model.Destination, error) {
	out := []*model.Destination{}
	if err := r.findAll(ctx, f, limit, skip, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoDestinationRepository) Count(ctx context.Context, f ListFilter) (int64, error) {
	return r.count(ctx, f)
}

func (r *mongoDestinationRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.Destination, error) {
	var d model.Destination
	if err := r.update(ctx, id, set, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *mongoDestinationRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.delete(ctx, id)
}

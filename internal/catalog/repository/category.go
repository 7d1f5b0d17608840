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

type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	FindByRef(ctx context.Context, ref string, activeOnly bool) (*model.Category, error)
	FindAll(ctx context.Context, f ListFilter, limit int, skip int64) ([]*model.Category, error)
	Count(ctx context.Context, f ListFilter) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.Category, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoCategoryRepository struct {
	store
}

func NewMongoCategoryRepository(cfg *config.Config) CategoryRepository {
	return &mongoCategoryRepository{
		store: newStore(cfg, CategoriesCollection, catalogerrors.ErrCategoryNotFound, "category"),
	}
}

func (r *mongoCategoryRepository) Create(ctx context.Context, c *model.Category) error {
	now := mongodb.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	id, err := r.insert(ctx, c)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *mongoCategoryRepository) FindByRef(ctx context.Context, ref string, activeOnly bool) (*model.Category, error) {
	var c model.Category
	if err := r.findRef(ctx, ref, activeOnly, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *mongoCategoryRepository) FindAll(ctx context.Context, f ListFilter, limit int, skip int64) ([]*model.Category, error) {
	out := []*model.Category{}
	if err := r.findAll(ctx, f, limit, skip, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoCategoryRepository) Count(ctx context.Context, f ListFilter) (int64, error) {
	return r.count(ctx, f)
}

func (r *mongoCategoryRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.Category, error) {
	var c model.Category
	if err := r.update(ctx, id, set, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *mongoCategoryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.delete(ctx, id)
}

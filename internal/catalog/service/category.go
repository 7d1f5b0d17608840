package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"

	catalogerrors "tourhub/internal/catalog/errors"
	"tourhub/internal/catalog/repository"
	"tourhub/pkg/config"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/model"
	"tourhub/pkg/sanitizer"
	"tourhub/pkg/validation"
)

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Slug        string `json:"slug,omitempty" validate:"omitempty,slug,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Icon        string `json:"icon,omitempty" validate:"omitempty,max=100"`
	Image       string `json:"image,omitempty" validate:"omitempty,url"`
	SortOrder   int    `json:"sortOrder"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

type CategoryUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Slug        *string `json:"slug,omitempty" validate:"omitempty,slug,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Icon        *string `json:"icon,omitempty" validate:"omitempty,max=100"`
	Image       *string `json:"image,omitempty" validate:"omitempty,url"`
	SortOrder   *int    `json:"sortOrder,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

type CategoryService interface {
	List(ctx context.Context, f repository.ListFilter, page, limit int) ([]*model.Category, int64, error)
	Get(ctx context.Context, ref string, activeOnly bool) (*model.Category, error)
	Create(ctx context.Context, req *CategoryRequest) (*model.Category, error)
	Update(ctx context.Context, ref string, req *CategoryUpdate) (*model.Category, error)
	Delete(ctx context.Context, ref string) error
}

type categoryService struct {
	repo      repository.CategoryRepository
	validator *validation.Validator
	cfg       *config.Config
}

func NewCategoryService(repo repository.CategoryRepository, validator *validation.Validator, cfg *config.Config) CategoryService {
	return &categoryService{repo: repo, validator: validator, cfg: cfg}
}

func (s *categoryService) mapError(err error, ref, action string) error {
	switch {
	case errors.Is(err, catalogerrors.ErrCategoryNotFound):
		return apperrors.NotFoundWithID("Category", ref)
	case errors.Is(err, catalogerrors.ErrDuplicateSlug):
		return apperrors.Conflict("A category with this slug already exists")
	case errors.Is(err, catalogerrors.ErrInUse):
		return apperrors.Conflict("Category is used by one or more attractions")
	}
	s.cfg.Log.Error("Category repository failure", "action", action, "ref", ref, "error", err)
	return apperrors.Internal("Failed to "+action, err)
}

func (s *categoryService) List(ctx context.Context, f repository.ListFilter, page, limit int) ([]*model.Category, int64, error) {
	return listConcurrently(ctx, s.cfg, "categories",
		func(ctx context.Context) (int64, error) { return s.repo.Count(ctx, f) },
		func(ctx context.Context) ([]*model.Category, error) {
			return s.repo.FindAll(ctx, f, limit, int64((page-1)*limit))
		},
	)
}

func (s *categoryService) Get(ctx context.Context, ref string, activeOnly bool) (*model.Category, error) {
	c, err := s.repo.FindByRef(ctx, ref, activeOnly)
	if err != nil {
		return nil, s.mapError(err, ref, "retrieve category")
	}
	return c, nil
}

func (s *categoryService) Create(ctx context.Context, req *CategoryRequest) (*model.Category, error) {
	req.Name = sanitizer.NormalizeName(req.Name)
	if req.Slug == "" {
		req.Slug = sanitizer.Slugify(req.Name)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	c := &model.Category{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: sanitizer.TrimAndNormalize(req.Description),
		Icon:        req.Icon,
		Image:       req.Image,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, s.mapError(err, c.Slug, "create category")
	}

	s.cfg.Log.Info("Category created", "id", c.ID.Hex(), "slug", c.Slug)
	return c, nil
}

func (s *categoryService) Update(ctx context.Context, ref string, req *CategoryUpdate) (*model.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, ref, false)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if req.Name != nil {
		set["name"] = sanitizer.NormalizeName(*req.Name)
	}
	if req.Slug != nil {
		set["slug"] = *req.Slug
	}
	if req.Description != nil {
		set["description"] = sanitizer.TrimAndNormalize(*req.Description)
	}
	if req.Icon != nil {
		set["icon"] = *req.Icon
	}
	if req.Image != nil {
		set["image"] = *req.Image
	}
	if req.SortOrder != nil {
		set["sortOrder"] = *req.SortOrder
	}
	if req.IsActive != nil {
		set["isActive"] = *req.IsActive
	}
	if len(set) == 0 {
		return existing, nil
	}

	updated, err := s.repo.Update(ctx, existing.ID, set)
	if err != nil {
		return nil, s.mapError(err, ref, "update category")
	}
	return updated, nil
}

func (s *categoryService) Delete(ctx context.Context, ref string) error {
	existing, err := s.Get(ctx, ref, false)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		return s.mapError(err, ref, "delete category")
	}

	s.cfg.Log.Info("Category deleted", "id", existing.ID.Hex())
	return nil
}

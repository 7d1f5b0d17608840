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

type DestinationRequest struct {
	Name        string             `json:"name" validate:"required,min=2,max=100"`
	Slug        string             `json:"slug,omitempty" validate:"omitempty,slug,max=100"`
	Description string             `json:"description,omitempty" validate:"omitempty,max=2000"`
	Country     string             `json:"country" validate:"required,min=2,max=100"`
	City        string             `json:"city,omitempty" validate:"omitempty,max=100"`
	Image       string             `json:"image,omitempty" validate:"omitempty,url"`
	Coordinates *model.Coordinates `json:"coordinates,omitempty"`
	Featured    bool               `json:"featured"`
	SortOrder   int                `json:"sortOrder"`
	IsActive    *bool              `json:"isActive,omitempty"`
}

type DestinationUpdate struct {
	Name        *string            `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Slug        *string            `json:"slug,omitempty" validate:"omitempty,slug,max=100"`
	Description *string            `json:"description,omitempty" validate:"omitempty,max=2000"`
	Country     *string            `json:"country,omitempty" validate:"omitempty,min=2,max=100"`
	City        *string            `json:"city,omitempty" validate:"omitempty,max=100"`
	Image       *string            `json:"image,omitempty" validate:"omitempty,url"`
	Coordinates *model.Coordinates `json:"coordinates,omitempty"`
	Featured    *bool              `json:"featured,omitempty"`
	SortOrder   *int               `json:"sortOrder,omitempty"`
	IsActive    *bool              `json:"isActive,omitempty"`
}

type DestinationService interface {
	List(ctx context.Context, f repository.ListFilter, page, limit int) ([]*model.Destination, int64, error)
	Get(ctx context.Context, ref string, activeOnly bool) (*model.Destination, error)
	Create(ctx context.Context, req *DestinationRequest) (*model.Destination, error)
	Update(ctx context.Context, ref string, req *DestinationUpdate) (*model.Destination, error)
	Delete(ctx context.Context, ref string) error
}

type destinationService struct {
	repo      repository.DestinationRepository
	validator *validation.Validator
	cfg       *config.Config
}

func NewDestinationService(repo repository.DestinationRepository, validator *validation.Validator, cfg *config.Config) DestinationService {
	return &destinationService{repo: repo, validator: validator, cfg: cfg}
}

func (s *destinationService) mapError(err error, ref, action string) error {
	switch {
	case errors.Is(err, catalogerrors.ErrDestinationNotFound):
		return apperrors.NotFoundWithID("Destination", ref)
	case errors.Is(err, catalogerrors.ErrDuplicateSlug):
		return apperrors.Conflict("A destination with this slug already exists")
	case errors.Is(err, catalogerrors.ErrInUse):
		return apperrors.Conflict("Destination is used by one or more attractions")
	}
	s.cfg.Log.Error("Destination repository failure", "action", action, "ref", ref, "error", err)
	return apperrors.Internal("Failed to "+action, err)
}

func (s *destinationService) List(ctx context.Context, f repository.ListFilter, page, limit int) ([]*model.Destination, int64, error) {
	return listConcurrently(ctx, s.cfg, "destinations",
		func(ctx context.Context) (int64, error) { return s.repo.Count(ctx, f) },
		func(ctx context.Context) ([]*model.Destination, error) {
			return s.repo.FindAll(ctx, f, limit, int64((page-1)*limit))
		},
	)
}

func (s *destinationService) Get(ctx context.Context, ref string, activeOnly bool) (*model.Destination, error) {
	d, err := s.repo.FindByRef(ctx, ref, activeOnly)
	if err != nil {
		return nil, s.mapError(err, ref, "retrieve destination")
	}
	return d, nil
}

func (s *destinationService) Create(ctx context.Context, req *DestinationRequest) (*model.Destination, error) {
	req.Name = sanitizer.NormalizeName(req.Name)
	req.Country = sanitizer.NormalizeName(req.Country)
	req.City = sanitizer.NormalizeName(req.City)
	if req.Slug == "" {
		req.Slug = sanitizer.Slugify(req.Name)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	d := &model.Destination{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: sanitizer.TrimAndNormalize(req.Description),
		Country:     req.Country,
		City:        req.City,
		Image:       req.Image,
		Coordinates: req.Coordinates,
		Featured:    req.Featured,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, s.mapError(err, d.Slug, "create destination")
	}

	s.cfg.Log.Info("Destination created", "id", d.ID.Hex(), "slug", d.Slug)
	return d, nil
}

func (s *destinationService) Update(ctx context.Context, ref string, req *DestinationUpdate) (*model.Destination, error) {
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
	if req.Country != nil {
		set["country"] = sanitizer.NormalizeName(*req.Country)
	}
	if req.City != nil {
		set["city"] = sanitizer.NormalizeName(*req.City)
	}
	if req.Image != nil {
		set["image"] = *req.Image
	}
	if req.Coordinates != nil {
		set["coordinates"] = *req.Coordinates
	}
	if req.Featured != nil {
		set["featured"] = *req.Featured
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
		return nil, s.mapError(err, ref, "update destination")
	}
	return updated, nil
}

func (s *destinationService) Delete(ctx context.Context, ref string) error {
	existing, err := s.Get(ctx, ref, false)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		return s.mapError(err, ref, "delete destination")
	}

	s.cfg.Log.Info("Destination deleted", "id", existing.ID.Hex())
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	attractionserrors "tourhub/internal/attractions/errors"
	"tourhub/internal/attractions/repository"
	catalogerrors "tourhub/internal/catalog/errors"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	mongodb "tourhub/pkg/db/mongo"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/model"
	"tourhub/pkg/sanitizer"
	"tourhub/pkg/validation"
)

// CategoryLookup and DestinationLookup resolve catalog references by id or
// slug. The catalog repositories satisfy them.
type CategoryLookup interface {
	FindByRef(ctx context.Context, ref string, activeOnly bool) (*model.Category, error)
}

type DestinationLookup interface {
	FindByRef(ctx context.Context, ref string, activeOnly bool) (*model.Destination, error)
}

type AttractionService interface {
	List(ctx context.Context, actor *auth.Principal, q ListQuery) ([]*model.Attraction, int64, error)
	Get(ctx context.Context, actor *auth.Principal, ref string, tenant *primitive.ObjectID) (*model.Attraction, error)
	Availability(ctx context.Context, ref string, tenant *primitive.ObjectID, from *time.Time, days int) (*Availability, error)
	Create(ctx context.Context, actor *auth.Principal, req *AttractionRequest) (*model.Attraction, error)
	Update(ctx context.Context, actor *auth.Principal, ref string, req *UpdateAttractionRequest) (*model.Attraction, error)
	Archive(ctx context.Context, actor *auth.Principal, ref string) error
}

type attractionService struct {
	repo         repository.AttractionRepository
	categories   CategoryLookup
	destinations DestinationLookup
	validator    *validation.Validator
	cfg          *config.Config
	now          func() time.Time
}

func NewAttractionService(
	repo repository.AttractionRepository,
	categories CategoryLookup,
	destinations DestinationLookup,
	validator *validation.Validator,
	cfg *config.Config,
) AttractionService {
	return &attractionService{
		repo:         repo,
		categories:   categories,
		destinations: destinations,
		validator:    validator,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *attractionService) mapError(err error, ref, action string) error {
	switch {
	case errors.Is(err, attractionserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Attraction", ref)
	case errors.Is(err, attractionserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid attraction ID format")
	case errors.Is(err, attractionserrors.ErrDuplicateSlug):
		return apperrors.Conflict("An attraction with this slug already exists")
	}
	s.cfg.Log.Error("Attraction repository failure",
		"action", action,
		"ref", ref,
		"error", err,
	)
	return apperrors.Internal("Failed to "+action, err)
}

// errUnresolved marks a catalog reference that matched nothing.
var errUnresolved = errors.New("unresolved catalog reference")

func (s *attractionService) resolveDestination(ctx context.Context, ref string) (primitive.ObjectID, error) {
	d, err := s.destinations.FindByRef(ctx, ref, false)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrDestinationNotFound) {
			return primitive.NilObjectID, errUnresolved
		}
		s.cfg.Log.Error("Failed to resolve destination", "ref", ref, "error", err)
		return primitive.NilObjectID, apperrors.Internal("Failed to resolve destination", err)
	}
	return d.ID, nil
}

func (s *attractionService) resolveCategory(ctx context.Context, ref string) (primitive.ObjectID, error) {
	c, err := s.categories.FindByRef(ctx, ref, false)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrCategoryNotFound) {
			return primitive.NilObjectID, errUnresolved
		}
		s.cfg.Log.Error("Failed to resolve category", "ref", ref, "error", err)
		return primitive.NilObjectID, apperrors.Internal("Failed to resolve category", err)
	}
	return c.ID, nil
}

// visibleStatus applies the listing rule: only staff may look past active
// attractions.
func visibleStatus(actor *auth.Principal, requested model.AttractionStatus) model.AttractionStatus {
	if actor.IsStaff() {
		return requested
	}
	return model.AttractionStatusActive
}

func (s *attractionService) List(ctx context.Context, actor *auth.Principal, q ListQuery) ([]*model.Attraction, int64, error) {
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return nil, 0, validation.Single("minPrice", "minPrice must not exceed maxPrice")
	}
	if !repository.IsValidSort(q.Sort) {
		return nil, 0, validation.Single("sort", "sort must be one of price, -price, rating, newest, popular, title")
	}
	switch q.Status {
	case "", model.AttractionStatusActive, model.AttractionStatusDraft, model.AttractionStatusArchived:
	default:
		return nil, 0, validation.Single("status", "status must be one of active, draft, archived")
	}

	filter := repository.AttractionFilter{
		Status:   visibleStatus(actor, q.Status),
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Search:   q.Search,
		Featured: q.Featured,
		Badge:    sanitizer.NormalizeBadge(q.Badge),
		Tenant:   q.Tenant,
		Sort:     q.Sort,
	}

	// An unknown destination or category cannot match anything.
	if q.Destination != "" {
		id, err := s.resolveDestination(ctx, q.Destination)
		if errors.Is(err, errUnresolved) {
			return []*model.Attraction{}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		filter.Destination = &id
	}
	if q.Category != "" {
		id, err := s.resolveCategory(ctx, q.Category)
		if errors.Is(err, errUnresolved) {
			return []*model.Attraction{}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		filter.Category = &id
	}

	skip := int64((q.Page - 1) * q.Limit)

	var (
		count           int64
		attractions     []*model.Attraction
		errCount, errFn error
		wg              sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if count, err = s.repo.Count(ctx, filter); err != nil {
			s.cfg.Log.Error("Failed to count attractions", "error", err)
			errCount = apperrors.Internal("Failed to count attractions", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if attractions, err = s.repo.FindAll(ctx, filter, q.Limit, skip); err != nil {
			s.cfg.Log.Error("Failed to list attractions",
				"limit", q.Limit,
				"skip", skip,
				"error", err,
			)
			errFn = apperrors.Internal("Failed to retrieve attractions", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFn != nil {
		return nil, 0, errFn
	}
	return attractions, count, nil
}

func (s *attractionService) Get(ctx context.Context, actor *auth.Principal, ref string, tenant *primitive.ObjectID) (*model.Attraction, error) {
	a, err := s.repo.FindByRef(ctx, ref)
	if err != nil {
		return nil, s.mapError(err, ref, "retrieve attraction")
	}

	if actor.IsStaff() {
		return a, nil
	}
	if a.Status != model.AttractionStatusActive || !a.AvailableToTenant(tenant) {
		return nil, apperrors.NotFoundWithID("Attraction", ref)
	}

	if err := s.repo.IncrementViewCount(ctx, a.ID); err != nil {
		s.cfg.Log.Warn("Failed to record attraction view", "id", a.ID.Hex(), "error", err)
	} else {
		a.Stats.ViewCount++
	}
	return a, nil
}

func (s *attractionService) Availability(ctx context.Context, ref string, tenant *primitive.ObjectID, from *time.Time, days int) (*Availability, error) {
	if days < 1 || days > MaxAvailabilityDays {
		return nil, validation.Single("days", fmt.Sprintf("days must be between 1 and %d", MaxAvailabilityDays))
	}

	a, err := s.repo.FindByRef(ctx, ref)
	if err != nil {
		return nil, s.mapError(err, ref, "retrieve attraction")
	}
	if a.Status != model.AttractionStatusActive || !a.AvailableToTenant(tenant) {
		return nil, apperrors.NotFoundWithID("Attraction", ref)
	}

	now := s.now().UTC()
	start := now
	if from != nil {
		start = *from
	}
	return buildAvailability(a, start, days, now), nil
}

// assignTenants restricts non super admins to the tenants they belong to.
// Their attractions are never shared across all storefronts.
func assignTenants(actor *auth.Principal, requested []string) ([]primitive.ObjectID, error) {
	ids, err := mongodb.ParseIDs(requested)
	if err != nil {
		return nil, validation.Single("tenants", "tenants must contain valid IDs")
	}
	if actor.Role == model.RoleSuperAdmin {
		return ids, nil
	}
	if len(ids) == 0 {
		if len(actor.Tenants) == 0 {
			return nil, apperrors.Forbidden("No tenants assigned")
		}
		return actor.Tenants, nil
	}
	for _, id := range ids {
		if !actor.CanManageTenant(id) {
			return nil, apperrors.Forbidden("You do not manage tenant " + id.Hex())
		}
	}
	return ids, nil
}

// canEdit reports whether actor may modify a. Shared attractions belong to
// super admins.
func canEdit(actor *auth.Principal, a *model.Attraction) bool {
	if actor.Role == model.RoleSuperAdmin {
		return true
	}
	for _, t := range a.Tenants {
		if actor.CanManageTenant(t) {
			return true
		}
	}
	return false
}

func normalizeSEO(seo *model.SEO) {
	if seo != nil {
		seo.Keywords = sanitizer.NormalizeKeywords(seo.Keywords)
	}
}

func (s *attractionService) normalizePricing(p *model.Pricing) error {
	if p.Currency == "" {
		p.Currency = s.cfg.DefaultCurrency
	}
	p.Currency = sanitizer.NormalizeCurrency(p.Currency)
	if p.Options == nil {
		p.Options = []model.PricingOption{}
	}

	seen := make(map[string]bool, len(p.Options))
	for i := range p.Options {
		opt := &p.Options[i]
		opt.ID = sanitizer.Slugify(opt.ID)
		opt.Name = sanitizer.NormalizeName(opt.Name)
		if opt.ID == "" {
			opt.ID = sanitizer.Slugify(opt.Name)
		}
		if seen[opt.ID] {
			return validation.Single(fmt.Sprintf("pricing.options[%d].id", i), "option ids must be unique")
		}
		seen[opt.ID] = true
		if opt.MaxQuantity > 0 && opt.MinQuantity > opt.MaxQuantity {
			return validation.Single(fmt.Sprintf("pricing.options[%d].minQuantity", i), "minQuantity must not exceed maxQuantity")
		}
	}
	return nil
}

func (s *attractionService) Create(ctx context.Context, actor *auth.Principal, req *AttractionRequest) (*model.Attraction, error) {
	req.Title = sanitizer.NormalizeName(req.Title)
	if req.Slug == "" {
		req.Slug = sanitizer.Slugify(req.Title)
	}
	normalizeSEO(&req.SEO)
	if err := s.normalizePricing(&req.Pricing); err != nil {
		return nil, err
	}
	if req.Availability.Type == "" {
		req.Availability.Type = model.AvailabilityDaily
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	destination, err := s.resolveDestination(ctx, req.Destination)
	if err != nil {
		return nil, s.referenceError("destination", err)
	}
	category, err := s.resolveCategory(ctx, req.Category)
	if err != nil {
		return nil, s.referenceError("category", err)
	}
	tenants, err := assignTenants(actor, req.Tenants)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = model.AttractionStatusDraft
	}
	createdBy := actor.UserID

	a := &model.Attraction{
		Title:            req.Title,
		Slug:             req.Slug,
		ShortDescription: sanitizer.TrimAndNormalize(req.ShortDescription),
		Description:      req.Description,
		Highlights:       req.Highlights,
		Included:         req.Included,
		Excluded:         req.Excluded,
		Images:           req.Images,
		Destination:      destination,
		Category:         category,
		Pricing:          req.Pricing,
		Duration:         req.Duration,
		Availability:     req.Availability,
		SEO:              req.SEO,
		Badges:           sanitizer.NormalizeBadges(req.Badges),
		Tenants:          tenants,
		Status:           status,
		Featured:         req.Featured,
		CreatedBy:        &createdBy,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, s.mapError(err, a.Slug, "create attraction")
	}

	s.cfg.Log.Info("Attraction created",
		"id", a.ID.Hex(),
		"slug", a.Slug,
		"status", a.Status,
		"created_by", actor.UserID.Hex(),
	)
	return a, nil
}

// referenceError turns an unknown catalog reference into a 400 and passes
// storage failures through.
func (s *attractionService) referenceError(field string, err error) error {
	if errors.Is(err, errUnresolved) {
		return validation.Single(field, field+" does not exist")
	}
	return err
}

func (s *attractionService) editable(ctx context.Context, actor *auth.Principal, ref string) (*model.Attraction, error) {
	a, err := s.repo.FindByRef(ctx, ref)
	if err != nil {
		return nil, s.mapError(err, ref, "retrieve attraction")
	}
	if !canEdit(actor, a) {
		return nil, apperrors.Forbidden("You cannot modify this attraction")
	}
	return a, nil
}

func (s *attractionService) Update(ctx context.Context, actor *auth.Principal, ref string, req *UpdateAttractionRequest) (*model.Attraction, error) {
	if req.Pricing != nil {
		if err := s.normalizePricing(req.Pricing); err != nil {
			return nil, err
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.editable(ctx, actor, ref)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if req.Title != nil {
		set["title"] = sanitizer.NormalizeName(*req.Title)
	}
	if req.Slug != nil {
		set["slug"] = *req.Slug
	}
	if req.ShortDescription != nil {
		set["shortDescription"] = sanitizer.TrimAndNormalize(*req.ShortDescription)
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Highlights != nil {
		set["highlights"] = req.Highlights
	}
	if req.Included != nil {
		set["included"] = req.Included
	}
	if req.Excluded != nil {
		set["excluded"] = req.Excluded
	}
	if req.Images != nil {
		set["images"] = req.Images
	}
	if req.Destination != nil {
		id, err := s.resolveDestination(ctx, *req.Destination)
		if err != nil {
			return nil, s.referenceError("destination", err)
		}
		set["destination"] = id
	}
	if req.Category != nil {
		id, err := s.resolveCategory(ctx, *req.Category)
		if err != nil {
			return nil, s.referenceError("category", err)
		}
		set["category"] = id
	}
	if req.Pricing != nil {
		set["pricing"] = *req.Pricing
	}
	if req.Duration != nil {
		set["duration"] = *req.Duration
	}
	if req.Availability != nil {
		if req.Availability.Type == "" {
			req.Availability.Type = model.AvailabilityDaily
		}
		set["availability"] = *req.Availability
	}
	if req.SEO != nil {
		normalizeSEO(req.SEO)
		set["seo"] = *req.SEO
	}
	if req.Badges != nil {
		set["badges"] = sanitizer.NormalizeBadges(req.Badges)
	}
	if req.Tenants != nil {
		tenants, err := assignTenants(actor, req.Tenants)
		if err != nil {
			return nil, err
		}
		set["tenants"] = tenants
	}
	if req.Status != nil {
		set["status"] = *req.Status
	}
	if req.Featured != nil {
		set["featured"] = *req.Featured
	}
	if len(set) == 0 {
		return existing, nil
	}

	updated, err := s.repo.Update(ctx, existing.ID, set)
	if err != nil {
		return nil, s.mapError(err, ref, "update attraction")
	}
	return updated, nil
}

// Archive hides the attraction instead of deleting it; bookings keep
// pointing at it.
func (s *attractionService) Archive(ctx context.Context, actor *auth.Principal, ref string) error {
	existing, err := s.editable(ctx, actor, ref)
	if err != nil {
		return err
	}
	if existing.Status == model.AttractionStatusArchived {
		return nil
	}

	if _, err := s.repo.Update(ctx, existing.ID, bson.M{"status": model.AttractionStatusArchived}); err != nil {
		return s.mapError(err, ref, "archive attraction")
	}

	s.cfg.Log.Info("Attraction archived", "id", existing.ID.Hex(), "by", actor.UserID.Hex())
	return nil
}

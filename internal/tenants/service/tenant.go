package service

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	tenantserrors "tourhub/internal/tenants/errors"
	"tourhub/internal/tenants/repository"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/middleware"
	"tourhub/pkg/model"
	"tourhub/pkg/sanitizer"
	"tourhub/pkg/validation"
)

// subdomain labels that never name a tenant
var reservedLabels = map[string]bool{"www": true, "api": true}

type CreateTenantRequest struct {
	Name            string                `json:"name" validate:"required,min=2,max=100"`
	Slug            string                `json:"slug,omitempty" validate:"omitempty,slug,max=60"`
	Domains         []string              `json:"domains,omitempty" validate:"omitempty,dive,fqdn"`
	Branding        model.TenantBranding  `json:"branding"`
	DefaultCurrency string                `json:"defaultCurrency,omitempty" validate:"omitempty,iso4217"`
	DefaultLanguage string                `json:"defaultLanguage,omitempty" validate:"omitempty,min=2,max=5"`
	Features        *model.TenantFeatures `json:"features,omitempty"`
	ContactEmail    string                `json:"contactEmail,omitempty" validate:"omitempty,email"`
	Status          model.TenantStatus    `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

type UpdateTenantRequest struct {
	Name            *string               `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Slug            *string               `json:"slug,omitempty" validate:"omitempty,slug,max=60"`
	Domains         []string              `json:"domains,omitempty" validate:"omitempty,dive,fqdn"`
	Branding        *model.TenantBranding `json:"branding,omitempty"`
	DefaultCurrency *string               `json:"defaultCurrency,omitempty" validate:"omitempty,iso4217"`
	DefaultLanguage *string               `json:"defaultLanguage,omitempty" validate:"omitempty,min=2,max=5"`
	Features        *model.TenantFeatures `json:"features,omitempty"`
	ContactEmail    *string               `json:"contactEmail,omitempty" validate:"omitempty,email"`
	Status          *model.TenantStatus   `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

type TenantService interface {
	middleware.TenantResolver

	List(ctx context.Context, actor *auth.Principal, search string, status model.TenantStatus, page, limit int) ([]*model.Tenant, int64, error)
	GetByID(ctx context.Context, actor *auth.Principal, id string) (*model.Tenant, error)
	Create(ctx context.Context, req *CreateTenantRequest) (*model.Tenant, error)
	Update(ctx context.Context, actor *auth.Principal, id string, req *UpdateTenantRequest) (*model.Tenant, error)
	Delete(ctx context.Context, id string) error
}

type tenantService struct {
	repo      repository.TenantRepository
	cache     TenantCache
	validator *validation.Validator
	cfg       *config.Config
}

func NewTenantService(
	repo repository.TenantRepository,
	cache TenantCache,
	validator *validation.Validator,
	cfg *config.Config,
) TenantService {
	if cache == nil {
		cache = NoopTenantCache{}
	}
	return &tenantService{
		repo:      repo,
		cache:     cache,
		validator: validator,
		cfg:       cfg,
	}
}

// ResolveTenant tries the header, then the query parameter, then the host.
// It returns nil without error when nothing matches an active tenant.
func (s *tenantService) ResolveTenant(ctx context.Context, hint middleware.TenantHint) (*model.Tenant, error) {
	for _, ref := range []string{hint.Header, hint.Query} {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		t, err := s.lookup(ctx, "ref:"+strings.ToLower(ref), func() (*model.Tenant, error) {
			return s.repo.FindActive(ctx, strings.ToLower(ref))
		})
		if t != nil || err != nil {
			return t, err
		}
	}

	host := normalizeHost(hint.Host)
	if host == "" {
		return nil, nil
	}
	t, err := s.lookup(ctx, "host:"+host, func() (*model.Tenant, error) {
		return s.repo.FindActiveByDomain(ctx, host)
	})
	if t != nil || err != nil {
		return t, err
	}

	label := subdomain(host)
	if label == "" {
		return nil, nil
	}
	return s.lookup(ctx, "ref:"+label, func() (*model.Tenant, error) {
		return s.repo.FindActive(ctx, label)
	})
}

func (s *tenantService) lookup(ctx context.Context, key string, find func() (*model.Tenant, error)) (*model.Tenant, error) {
	if t, ok := s.cache.Get(ctx, key); ok {
		return t, nil
	}
	t, err := find()
	if err != nil {
		if errors.Is(err, tenantserrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	s.cache.Set(ctx, key, t)
	return t, nil
}

// normalizeHost strips the port and rejects hosts that cannot carry a
// tenant, such as IP addresses and localhost.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" || host == "localhost" || net.ParseIP(host) != nil {
		return ""
	}
	return host
}

func subdomain(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return ""
	}
	if reservedLabels[labels[0]] {
		return ""
	}
	return labels[0]
}

func (s *tenantService) mapError(err error, id, action string) error {
	switch {
	case errors.Is(err, tenantserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Tenant", id)
	case errors.Is(err, tenantserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid tenant ID format")
	case errors.Is(err, tenantserrors.ErrDuplicateSlug):
		return apperrors.Conflict("Tenant slug already exists")
	}
	s.cfg.Log.Error("Tenant repository failure", "action", action, "id", id, "error", err)
	return apperrors.Internal("Failed to "+action, err)
}

func (s *tenantService) List(ctx context.Context, actor *auth.Principal, search string, status model.TenantStatus, page, limit int) ([]*model.Tenant, int64, error) {
	filter := repository.TenantFilter{Search: search, Status: status}
	if actor.Role != model.RoleSuperAdmin {
		filter.IDs = actor.Tenants
		if filter.IDs == nil {
			filter.IDs = []primitive.ObjectID{}
		}
	}
	skip := int64((page - 1) * limit)

	var (
		count           int64
		tenants         []*model.Tenant
		errCount, errFn error
		wg              sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if count, err = s.repo.Count(ctx, filter); err != nil {
			s.cfg.Log.Error("Failed to count tenants", "error", err)
			errCount = apperrors.Internal("Failed to count tenants", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if tenants, err = s.repo.FindAll(ctx, filter, limit, skip); err != nil {
			s.cfg.Log.Error("Failed to list tenants", "error", err)
			errFn = apperrors.Internal("Failed to retrieve tenants", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFn != nil {
		return nil, 0, errFn
	}
	return tenants, count, nil
}

func (s *tenantService) GetByID(ctx context.Context, actor *auth.Principal, id string) (*model.Tenant, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "retrieve tenant")
	}
	if !actor.CanManageTenant(t.ID) {
		return nil, apperrors.NotFoundWithID("Tenant", id)
	}
	return t, nil
}

func (s *tenantService) Create(ctx context.Context, req *CreateTenantRequest) (*model.Tenant, error) {
	req.Name = sanitizer.NormalizeName(req.Name)
	if req.Slug == "" {
		req.Slug = sanitizer.Slugify(req.Name)
	}
	req.Domains = sanitizer.NormalizeDomains(req.Domains)
	req.DefaultCurrency = sanitizer.NormalizeCurrency(req.DefaultCurrency)
	req.ContactEmail = sanitizer.NormalizeEmail(req.ContactEmail)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	t := &model.Tenant{
		Name:            req.Name,
		Slug:            req.Slug,
		Domains:         req.Domains,
		Branding:        req.Branding,
		DefaultCurrency: req.DefaultCurrency,
		DefaultLanguage: req.DefaultLanguage,
		Features:        model.DefaultTenantFeatures(),
		ContactEmail:    req.ContactEmail,
		Status:          req.Status,
	}
	if req.Features != nil {
		t.Features = *req.Features
	}
	if t.DefaultCurrency == "" {
		t.DefaultCurrency = s.cfg.DefaultCurrency
	}
	if t.DefaultLanguage == "" {
		t.DefaultLanguage = "en"
	}
	if t.Status == "" {
		t.Status = model.TenantStatusActive
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, s.mapError(err, t.Slug, "create tenant")
	}

	s.cfg.Log.Info("Tenant created", "id", t.ID.Hex(), "slug", t.Slug)
	return t, nil
}

func (s *tenantService) Update(ctx context.Context, actor *auth.Principal, id string, req *UpdateTenantRequest) (*model.Tenant, error) {
	if req.DefaultCurrency != nil {
		c := sanitizer.NormalizeCurrency(*req.DefaultCurrency)
		req.DefaultCurrency = &c
	}
	if req.Domains != nil {
		req.Domains = sanitizer.NormalizeDomains(req.Domains)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleSuperAdmin && (req.Slug != nil || req.Status != nil || req.Domains != nil) {
		return nil, apperrors.Forbidden("Only a super admin may change slug, domains or status")
	}

	set := bson.M{}
	if req.Name != nil {
		set["name"] = sanitizer.NormalizeName(*req.Name)
	}
	if req.Slug != nil {
		set["slug"] = *req.Slug
	}
	if req.Domains != nil {
		set["domains"] = req.Domains
	}
	if req.Branding != nil {
		set["branding"] = *req.Branding
	}
	if req.DefaultCurrency != nil {
		set["defaultCurrency"] = *req.DefaultCurrency
	}
	if req.DefaultLanguage != nil {
		set["defaultLanguage"] = *req.DefaultLanguage
	}
	if req.Features != nil {
		set["features"] = *req.Features
	}
	if req.ContactEmail != nil {
		set["contactEmail"] = sanitizer.NormalizeEmail(*req.ContactEmail)
	}
	if req.Status != nil {
		set["status"] = *req.Status
	}
	if len(set) == 0 {
		return existing, nil
	}

	updated, err := s.repo.Update(ctx, existing.ID, set)
	if err != nil {
		return nil, s.mapError(err, id, "update tenant")
	}
	s.cache.Invalidate(ctx, existing.ID.Hex())

	s.cfg.Log.Info("Tenant updated", "id", id, "updated_by", actor.UserID.Hex())
	return updated, nil
}

func (s *tenantService) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.InvalidInput("Invalid tenant ID format")
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return s.mapError(err, id, "delete tenant")
	}
	s.cache.Invalidate(ctx, id)

	s.cfg.Log.Info("Tenant deleted", "id", id)
	return nil
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	promoerrors "tourhub/internal/promocodes/errors"
	"tourhub/internal/promocodes/repository"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	mongodb "tourhub/pkg/db/mongo"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/model"
	"tourhub/pkg/sanitizer"
	"tourhub/pkg/validation"
)

type PromoCodeRequest struct {
	Code           string          `json:"code" validate:"required,min=3,max=32"`
	Description    string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Type           model.PromoType `json:"type" validate:"required,oneof=percentage fixed"`
	Value          float64         `json:"value" validate:"gt=0"`
	MinOrderAmount float64         `json:"minOrderAmount" validate:"gte=0"`
	MaxDiscount    *float64        `json:"maxDiscount,omitempty" validate:"omitempty,gt=0"`
	UsageLimit     *int            `json:"usageLimit,omitempty" validate:"omitempty,gt=0"`
	ValidFrom      *time.Time      `json:"validFrom,omitempty"`
	ValidUntil     *time.Time      `json:"validUntil,omitempty"`
	Tenants        []string        `json:"tenants,omitempty" validate:"omitempty,dive,mongodb"`
	IsActive       *bool           `json:"isActive,omitempty"`
}

type UpdatePromoCodeRequest struct {
	Code           *string          `json:"code,omitempty" validate:"omitempty,min=3,max=32"`
	Description    *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Type           *model.PromoType `json:"type,omitempty" validate:"omitempty,oneof=percentage fixed"`
	Value          *float64         `json:"value,omitempty" validate:"omitempty,gt=0"`
	MinOrderAmount *float64         `json:"minOrderAmount,omitempty" validate:"omitempty,gte=0"`
	MaxDiscount    *float64         `json:"maxDiscount,omitempty" validate:"omitempty,gt=0"`
	UsageLimit     *int             `json:"usageLimit,omitempty" validate:"omitempty,gt=0"`
	ValidFrom      *time.Time       `json:"validFrom,omitempty"`
	ValidUntil     *time.Time       `json:"validUntil,omitempty"`
	Tenants        []string         `json:"tenants,omitempty" validate:"omitempty,dive,mongodb"`
	IsActive       *bool            `json:"isActive,omitempty"`
}

type ValidateRequest struct {
	Code     string  `json:"code" validate:"required,max=32"`
	Subtotal float64 `json:"subtotal" validate:"gte=0"`
}

type PromoCodeService interface {
	List(ctx context.Context, actor *auth.Principal, search string, active *bool, page, limit int) ([]*model.PromoCode, int64, error)
	GetByID(ctx context.Context, actor *auth.Principal, id string) (*model.PromoCode, error)
	Create(ctx context.Context, actor *auth.Principal, req *PromoCodeRequest) (*model.PromoCode, error)
	Update(ctx context.Context, actor *auth.Principal, id string, req *UpdatePromoCodeRequest) (*model.PromoCode, error)
	Delete(ctx context.Context, actor *auth.Principal, id string) error
	Validate(ctx context.Context, req *ValidateRequest, tenant *primitive.ObjectID) (*Evaluation, error)
}

type promoCodeService struct {
	repo      repository.PromoCodeRepository
	validator *validation.Validator
	cfg       *config.Config
	now       func() time.Time
}

func NewPromoCodeService(repo repository.PromoCodeRepository, validator *validation.Validator, cfg *config.Config) PromoCodeService {
	return &promoCodeService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *promoCodeService) mapError(err error, ref, action string) error {
	switch {
	case errors.Is(err, promoerrors.ErrNotFound):
		return apperrors.NotFoundWithID("Promo code", ref)
	case errors.Is(err, promoerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid promo code ID format")
	case errors.Is(err, promoerrors.ErrDuplicateCode):
		return apperrors.Conflict("A promo code with this code already exists")
	}
	s.cfg.Log.Error("Promo code repository failure",
		"action", action,
		"ref", ref,
		"error", err,
	)
	return apperrors.Internal("Failed to "+action, err)
}

// tenantsFor limits non super admins to codes of their own tenants.
func tenantsFor(actor *auth.Principal) []primitive.ObjectID {
	if actor.Role == model.RoleSuperAdmin {
		return nil
	}
	if actor.Tenants == nil {
		return []primitive.ObjectID{}
	}
	return actor.Tenants
}

func canManage(actor *auth.Principal, p *model.PromoCode) bool {
	if actor.Role == model.RoleSuperAdmin {
		return true
	}
	for _, t := range p.Tenants {
		if actor.CanManageTenant(t) {
			return true
		}
	}
	return false
}

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

func checkRules(typ model.PromoType, value float64, from, until *time.Time) error {
	if typ == model.PromoTypePercentage && value > 100 {
		return validation.Single("value", "percentage value must be at most 100")
	}
	if from != nil && until != nil && !until.After(*from) {
		return validation.Single("validUntil", "validUntil must be after validFrom")
	}
	return nil
}

func (s *promoCodeService) List(ctx context.Context, actor *auth.Principal, search string, active *bool, page, limit int) ([]*model.PromoCode, int64, error) {
	filter := repository.PromoCodeFilter{
		Active:  active,
		Search:  search,
		Tenants: tenantsFor(actor),
	}
	skip := int64((page - 1) * limit)

	var (
		count           int64
		codes           []*model.PromoCode
		errCount, errFn error
		wg              sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if count, err = s.repo.Count(ctx, filter); err != nil {
			s.cfg.Log.Error("Failed to count promo codes", "error", err)
			errCount = apperrors.Internal("Failed to count promo codes", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if codes, err = s.repo.FindAll(ctx, filter, limit, skip); err != nil {
			s.cfg.Log.Error("Failed to list promo codes", "error", err)
			errFn = apperrors.Internal("Failed to retrieve promo codes", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFn != nil {
		return nil, 0, errFn
	}
	return codes, count, nil
}

func (s *promoCodeService) GetByID(ctx context.Context, actor *auth.Principal, id string) (*model.PromoCode, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "retrieve promo code")
	}
	if !canManage(actor, p) {
		return nil, apperrors.NotFoundWithID("Promo code", id)
	}
	return p, nil
}

func (s *promoCodeService) Create(ctx context.Context, actor *auth.Principal, req *PromoCodeRequest) (*model.PromoCode, error) {
	req.Code = sanitizer.NormalizePromoCode(req.Code)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if err := checkRules(req.Type, req.Value, req.ValidFrom, req.ValidUntil); err != nil {
		return nil, err
	}
	tenants, err := assignTenants(actor, req.Tenants)
	if err != nil {
		return nil, err
	}

	p := &model.PromoCode{
		Code:           req.Code,
		Description:    sanitizer.TrimAndNormalize(req.Description),
		Type:           req.Type,
		Value:          req.Value,
		MinOrderAmount: req.MinOrderAmount,
		MaxDiscount:    req.MaxDiscount,
		UsageLimit:     req.UsageLimit,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		Tenants:        tenants,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, s.mapError(err, p.Code, "create promo code")
	}

	s.cfg.Log.Info("Promo code created", "id", p.ID.Hex(), "code", p.Code, "by", actor.UserID.Hex())
	return p, nil
}

func (s *promoCodeService) Update(ctx context.Context, actor *auth.Principal, id string, req *UpdatePromoCodeRequest) (*model.PromoCode, error) {
	if req.Code != nil {
		code := sanitizer.NormalizePromoCode(*req.Code)
		req.Code = &code
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	typ, value := existing.Type, existing.Value
	from, until := existing.ValidFrom, existing.ValidUntil
	set := bson.M{}
	if req.Code != nil {
		set["code"] = *req.Code
	}
	if req.Description != nil {
		set["description"] = sanitizer.TrimAndNormalize(*req.Description)
	}
	if req.Type != nil {
		typ = *req.Type
		set["type"] = typ
	}
	if req.Value != nil {
		value = *req.Value
		set["value"] = value
	}
	if req.MinOrderAmount != nil {
		set["minOrderAmount"] = *req.MinOrderAmount
	}
	if req.MaxDiscount != nil {
		set["maxDiscount"] = *req.MaxDiscount
	}
	if req.UsageLimit != nil {
		set["usageLimit"] = *req.UsageLimit
	}
	if req.ValidFrom != nil {
		from = req.ValidFrom
		set["validFrom"] = *from
	}
	if req.ValidUntil != nil {
		until = req.ValidUntil
		set["validUntil"] = *until
	}
	if req.Tenants != nil {
		tenants, err := assignTenants(actor, req.Tenants)
		if err != nil {
			return nil, err
		}
		set["tenants"] = tenants
	}
	if req.IsActive != nil {
		set["isActive"] = *req.IsActive
	}
	if err := checkRules(typ, value, from, until); err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return existing, nil
	}

	updated, err := s.repo.Update(ctx, existing.ID, set)
	if err != nil {
		return nil, s.mapError(err, id, "update promo code")
	}
	return updated, nil
}

func (s *promoCodeService) Delete(ctx context.Context, actor *auth.Principal, id string) error {
	existing, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		return s.mapError(err, id, "delete promo code")
	}

	s.cfg.Log.Info("Promo code deleted", "id", id, "code", existing.Code, "by", actor.UserID.Hex())
	return nil
}

// Validate reports what a code would be worth. Unknown codes are an invalid
// evaluation rather than a 404 so storefronts can render one message.
func (s *promoCodeService) Validate(ctx context.Context, req *ValidateRequest, tenant *primitive.ObjectID) (*Evaluation, error) {
	req.Code = sanitizer.NormalizePromoCode(req.Code)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	subtotal := decimal.NewFromFloat(req.Subtotal)

	p, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, promoerrors.ErrNotFound) {
			return invalid(req.Code, subtotal, "Promo code not found"), nil
		}
		return nil, s.mapError(err, req.Code, "validate promo code")
	}
	return Evaluate(p, subtotal, tenant, s.now().UTC()), nil
}

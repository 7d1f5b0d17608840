package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	promoerrors "tourhub/internal/promocodes/errors"
	"tourhub/internal/promocodes/repository"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/logger"
	"tourhub/pkg/model"
	"tourhub/pkg/validation"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestEvaluate(t *testing.T) {
	tenant := primitive.NewObjectID()
	other := primitive.NewObjectID()

	tests := []struct {
		name         string
		promo        model.PromoCode
		subtotal     string
		tenant       *primitive.ObjectID
		wantValid    bool
		wantDiscount float64
		wantReason   string
	}{
		{
			name:         "percentage",
			promo:        model.PromoCode{Code: "SUMMER10", Type: model.PromoTypePercentage, Value: 10, IsActive: true},
			subtotal:     "123.45",
			wantValid:    true,
			wantDiscount: 12.35,
		},
		{
			name:         "percentage capped",
			promo:        model.PromoCode{Code: "BIG50", Type: model.PromoTypePercentage, Value: 50, MaxDiscount: ptr(20.0), IsActive: true},
			subtotal:     "100",
			wantValid:    true,
			wantDiscount: 20,
		},
		{
			name:         "fixed never exceeds subtotal",
			promo:        model.PromoCode{Code: "FLAT30", Type: model.PromoTypeFixed, Value: 30, IsActive: true},
			subtotal:     "25",
			wantValid:    true,
			wantDiscount: 25,
		},
		{
			name:       "inactive",
			promo:      model.PromoCode{Code: "OLD", Type: model.PromoTypeFixed, Value: 5},
			subtotal:   "50",
			wantReason: "Promo code is not active",
		},
		{
			name:       "not started",
			promo:      model.PromoCode{Code: "SOON", Type: model.PromoTypeFixed, Value: 5, IsActive: true, ValidFrom: ptr(now.Add(time.Hour))},
			subtotal:   "50",
			wantReason: "Promo code is not valid yet",
		},
		{
			name:       "expired",
			promo:      model.PromoCode{Code: "GONE", Type: model.PromoTypeFixed, Value: 5, IsActive: true, ValidUntil: ptr(now.Add(-time.Hour))},
			subtotal:   "50",
			wantReason: "Promo code has expired",
		},
		{
			name:       "used up",
			promo:      model.PromoCode{Code: "LIMITED", Type: model.PromoTypeFixed, Value: 5, IsActive: true, UsageLimit: ptr(3), UsedCount: 3},
			subtotal:   "50",
			wantReason: "Promo code usage limit reached",
		},
		{
			name:       "below minimum",
			promo:      model.PromoCode{Code: "MIN100", Type: model.PromoTypeFixed, Value: 5, IsActive: true, MinOrderAmount: 100},
			subtotal:   "99.99",
			wantReason: "Minimum order amount is 100.00",
		},
		{
			name:       "other storefront",
			promo:      model.PromoCode{Code: "ACME", Type: model.PromoTypeFixed, Value: 5, IsActive: true, Tenants: []primitive.ObjectID{tenant}},
			subtotal:   "50",
			tenant:     &other,
			wantReason: "Promo code is not valid for this store",
		},
		{
			name:         "own storefront",
			promo:        model.PromoCode{Code: "ACME", Type: model.PromoTypeFixed, Value: 5, IsActive: true, Tenants: []primitive.ObjectID{tenant}},
			subtotal:     "50",
			tenant:       &tenant,
			wantValid:    true,
			wantDiscount: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(&tt.promo, decimal.RequireFromString(tt.subtotal), tt.tenant, now)
			assert.Equal(t, tt.wantValid, got.Valid)
			assert.Equal(t, tt.wantDiscount, got.Discount)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, tt.promo.Code, got.Code)
		})
	}
}

type mockPromoCodeRepository struct {
	codes   map[string]*model.PromoCode
	lastSet bson.M
	filter  repository.PromoCodeFilter
	failing bool
}

func newMockRepo(codes ...*model.PromoCode) *mockPromoCodeRepository {
	m := &mockPromoCodeRepository{codes: map[string]*model.PromoCode{}}
	for _, c := range codes {
		m.codes[c.Code] = c
	}
	return m
}

func (m *mockPromoCodeRepository) Create(ctx context.Context, p *model.PromoCode) error {
	if _, ok := m.codes[p.Code]; ok {
		return fmt.Errorf("%w: %s", promoerrors.ErrDuplicateCode, p.Code)
	}
	p.ID = primitive.NewObjectID()
	m.codes[p.Code] = p
	return nil
}

func (m *mockPromoCodeRepository) FindByID(ctx context.Context, id string) (*model.PromoCode, error) {
	for _, c := range m.codes {
		if c.ID.Hex() == id {
			return c, nil
		}
	}
	return nil, promoerrors.ErrNotFound
}

func (m *mockPromoCodeRepository) FindByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	if m.failing {
		return nil, errors.New("connection refused")
	}
	if c, ok := m.codes[code]; ok {
		return c, nil
	}
	return nil, promoerrors.ErrNotFound
}

func (m *mockPromoCodeRepository) FindAll(ctx context.Context, f repository.PromoCodeFilter, limit int, skip int64) ([]*model.PromoCode, error) {
	m.filter = f
	return []*model.PromoCode{}, nil
}

func (m *mockPromoCodeRepository) Count(ctx context.Context, f repository.PromoCodeFilter) (int64, error) {
	return int64(len(m.codes)), nil
}

func (m *mockPromoCodeRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.PromoCode, error) {
	m.lastSet = set
	return m.FindByID(ctx, id.Hex())
}

func (m *mockPromoCodeRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	for code, c := range m.codes {
		if c.ID == id {
			delete(m.codes, code)
			return nil
		}
	}
	return promoerrors.ErrNotFound
}

func newTestService(repo *mockPromoCodeRepository) *promoCodeService {
	log := logger.Nop()
	svc := NewPromoCodeService(repo, validation.New(log), &config.Config{Log: log}).(*promoCodeService)
	svc.now = func() time.Time { return now }
	return svc
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return 400
	}
	t.Fatalf("unexpected error type %T: %v", err, err)
	return 0
}

var superAdmin = &auth.Principal{UserID: primitive.NewObjectID(), Role: model.RoleSuperAdmin}

func TestValidate(t *testing.T) {
	repo := newMockRepo(&model.PromoCode{Code: "WELCOME15", Type: model.PromoTypePercentage, Value: 15, IsActive: true})
	svc := newTestService(repo)

	got, err := svc.Validate(context.Background(), &ValidateRequest{Code: " welcome15 ", Subtotal: 80}, nil)
	require.NoError(t, err)
	assert.True(t, got.Valid)
	assert.Equal(t, 12.0, got.Discount)

	got, err = svc.Validate(context.Background(), &ValidateRequest{Code: "NOPE", Subtotal: 80}, nil)
	require.NoError(t, err)
	assert.False(t, got.Valid)
	assert.Equal(t, "Promo code not found", got.Reason)

	_, err = svc.Validate(context.Background(), &ValidateRequest{Code: "", Subtotal: 80}, nil)
	assert.Equal(t, 400, statusOf(t, err))

	repo.failing = true
	_, err = svc.Validate(context.Background(), &ValidateRequest{Code: "WELCOME15", Subtotal: 80}, nil)
	assert.Equal(t, 500, statusOf(t, err))
}

func TestCreate(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	p, err := svc.Create(context.Background(), superAdmin, &PromoCodeRequest{
		Code:  "summer-26 ",
		Type:  model.PromoTypePercentage,
		Value: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, "SUMMER-26", p.Code)
	assert.True(t, p.IsActive)
	assert.Empty(t, p.Tenants)

	tests := []struct {
		name  string
		actor *auth.Principal
		req   PromoCodeRequest
		want  int
	}{
		{"duplicate", superAdmin, PromoCodeRequest{Code: "SUMMER-26", Type: model.PromoTypeFixed, Value: 5}, 409},
		{"percentage above 100", superAdmin, PromoCodeRequest{Code: "HUGE", Type: model.PromoTypePercentage, Value: 120}, 400},
		{"window reversed", superAdmin, PromoCodeRequest{
			Code: "BACKWARDS", Type: model.PromoTypeFixed, Value: 5,
			ValidFrom: ptr(now), ValidUntil: ptr(now.Add(-time.Hour)),
		}, 400},
		{"unknown type", superAdmin, PromoCodeRequest{Code: "BOGO", Type: "bogo", Value: 1}, 400},
		{"manager without tenants", &auth.Principal{UserID: primitive.NewObjectID(), Role: model.RoleManager},
			PromoCodeRequest{Code: "LOCAL", Type: model.PromoTypeFixed, Value: 5}, 403},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.actor, &tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.want, statusOf(t, err))
		})
	}
}

func TestManagerScope(t *testing.T) {
	tenant := primitive.NewObjectID()
	mine := &model.PromoCode{ID: primitive.NewObjectID(), Code: "MINE", Type: model.PromoTypeFixed, Value: 5, Tenants: []primitive.ObjectID{tenant}}
	shared := &model.PromoCode{ID: primitive.NewObjectID(), Code: "SHARED", Type: model.PromoTypeFixed, Value: 5}
	repo := newMockRepo(mine, shared)
	svc := newTestService(repo)
	manager := &auth.Principal{UserID: primitive.NewObjectID(), Role: model.RoleManager, Tenants: []primitive.ObjectID{tenant}}

	_, _, err := svc.List(context.Background(), manager, "", nil, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{tenant}, repo.filter.Tenants)

	_, _, err = svc.List(context.Background(), superAdmin, "", nil, 1, 20)
	require.NoError(t, err)
	assert.Nil(t, repo.filter.Tenants)

	_, err = svc.GetByID(context.Background(), manager, shared.ID.Hex())
	assert.Equal(t, 404, statusOf(t, err))

	value := 150.0
	_, err = svc.Update(context.Background(), manager, mine.ID.Hex(), &UpdatePromoCodeRequest{Type: ptr(model.PromoTypePercentage), Value: &value})
	assert.Equal(t, 400, statusOf(t, err))

	value = 15
	_, err = svc.Update(context.Background(), manager, mine.ID.Hex(), &UpdatePromoCodeRequest{Type: ptr(model.PromoTypePercentage), Value: &value})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"type": model.PromoTypePercentage, "value": 15.0}, repo.lastSet)

	require.NoError(t, svc.Delete(context.Background(), manager, mine.ID.Hex()))
	assert.NotContains(t, repo.codes, "MINE")
}

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourhub/internal/bookings/service"
	"tourhub/pkg/auth"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/logger"
	"tourhub/pkg/middleware"
	"tourhub/pkg/model"
)

type mockBookingService struct {
	service.BookingService
	createFunc       func(ctx context.Context, actor *auth.Principal, tenant *model.Tenant, req *service.CreateBookingRequest) (*model.Booking, error)
	listFunc         func(ctx context.Context, actor *auth.Principal, q service.ListQuery) ([]*model.Booking, int64, error)
	lookupFunc       func(ctx context.Context, reference, email string) (*model.Booking, error)
	updateStatusFunc func(ctx context.Context, actor *auth.Principal, id string, req *service.UpdateStatusRequest) (*model.Booking, error)
}

func (m *mockBookingService) Create(ctx context.Context, actor *auth.Principal, tenant *model.Tenant, req *service.CreateBookingRequest) (*model.Booking, error) {
	return m.createFunc(ctx, actor, tenant, req)
}

func (m *mockBookingService) List(ctx context.Context, actor *auth.Principal, q service.ListQuery) ([]*model.Booking, int64, error) {
	return m.listFunc(ctx, actor, q)
}

func (m *mockBookingService) Lookup(ctx context.Context, reference, email string) (*model.Booking, error) {
	return m.lookupFunc(ctx, reference, email)
}

func (m *mockBookingService) UpdateStatus(ctx context.Context, actor *auth.Principal, id string, req *service.UpdateStatusRequest) (*model.Booking, error) {
	return m.updateStatusFunc(ctx, actor, id, req)
}

type tokenAuth map[string]*auth.Principal

func (a tokenAuth) Authenticate(_ context.Context, token string) (*auth.Principal, error) {
	if p, ok := a[token]; ok {
		return p, nil
	}
	return nil, apperrors.Unauthorized("Invalid token")
}

type slugResolver map[string]*model.Tenant

func (s slugResolver) ResolveTenant(_ context.Context, hint middleware.TenantHint) (*model.Tenant, error) {
	return s[hint.Header], nil
}

func serve(router *httprouter.Router, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var (
	customer = &auth.Principal{UserID: primitive.NewObjectID(), Email: "ana@example.com", Role: model.RoleCustomer}
	manager  = &auth.Principal{UserID: primitive.NewObjectID(), Email: "desk@tourhub.io", Role: model.RoleManager}
	lisbon   = &model.Tenant{ID: primitive.NewObjectID(), Slug: "lisbon"}
)

func newRouter(svc service.BookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(svc, tokenAuth{"customer": customer, "manager": manager}, slugResolver{"lisbon": lisbon}, logger.Nop()).RegisterRoutes(router)
	return router
}

func TestCreate_GuestWithTenant(t *testing.T) {
	var gotActor *auth.Principal
	var gotTenant *model.Tenant
	svc := &mockBookingService{createFunc: func(_ context.Context, actor *auth.Principal, tenant *model.Tenant, req *service.CreateBookingRequest) (*model.Booking, error) {
		gotActor, gotTenant = actor, tenant
		assert.Equal(t, "2030-05-01", req.BookingDate)
		require.Len(t, req.Items, 1)
		return &model.Booking{ID: primitive.NewObjectID(), Reference: "TB-ABCD2345"}, nil
	}}

	body := `{"attraction":"kayak-tour","bookingDate":"2030-05-01","items":[{"optionId":"adult","quantity":2}],"guest":{"name":"Ana","email":"ana@example.com"}}`
	rec := serve(newRouter(svc), http.MethodPost, "/api/v1/bookings", "", body, middleware.HeaderTenantID, "lisbon")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "TB-ABCD2345")
	assert.Nil(t, gotActor)
	assert.Equal(t, lisbon, gotTenant)
}

func TestMine_ActsAsCustomer(t *testing.T) {
	var got *auth.Principal
	svc := &mockBookingService{listFunc: func(_ context.Context, actor *auth.Principal, q service.ListQuery) ([]*model.Booking, int64, error) {
		got = actor
		assert.Equal(t, model.BookingStatusConfirmed, q.Status)
		return []*model.Booking{}, 0, nil
	}}
	router := newRouter(svc)

	rec := serve(router, http.MethodGet, "/api/v1/bookings/me?status=confirmed", "manager", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, manager.UserID, got.UserID)
	assert.Equal(t, model.RoleCustomer, got.Role)

	rec = serve(router, http.MethodGet, "/api/v1/bookings/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestList_BadDateRange(t *testing.T) {
	svc := &mockBookingService{listFunc: func(context.Context, *auth.Principal, service.ListQuery) ([]*model.Booking, int64, error) {
		t.Fatal("service must not be called")
		return nil, 0, nil
	}}
	rec := serve(newRouter(svc), http.MethodGet, "/api/v1/bookings?from=yesterday", "manager", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLookup_PassesEmail(t *testing.T) {
	svc := &mockBookingService{lookupFunc: func(_ context.Context, reference, email string) (*model.Booking, error) {
		if reference != "TB-ABCD2345" || email != "ana@example.com" {
			return nil, apperrors.NotFound("Booking")
		}
		return &model.Booking{Reference: reference}, nil
	}}
	router := newRouter(svc)

	rec := serve(router, http.MethodGet, "/api/v1/bookings/reference/TB-ABCD2345?email=ana@example.com", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/v1/bookings/reference/TB-ABCD2345?email=eve@example.com", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatus_RequiresManager(t *testing.T) {
	svc := &mockBookingService{updateStatusFunc: func(_ context.Context, _ *auth.Principal, id string, req *service.UpdateStatusRequest) (*model.Booking, error) {
		return &model.Booking{Status: req.Status}, nil
	}}
	router := newRouter(svc)
	path := "/api/v1/bookings/id/" + primitive.NewObjectID().Hex() + "/status"

	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodPatch, path, "customer", `{"status":"completed"}`).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPatch, path, "manager", `{"status":"completed"}`).Code)
}

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

	"tourhub/internal/payments/service"
	"tourhub/pkg/auth"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/logger"
	"tourhub/pkg/model"
)

type mockPaymentService struct {
	service.PaymentService
	webhookFunc func(ctx context.Context, payload []byte, signature string) error
	refundFunc  func(ctx context.Context, actor *auth.Principal, id string, req *service.RefundRequest) (*model.Booking, error)
}

func (m *mockPaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.webhookFunc(ctx, payload, signature)
}

func (m *mockPaymentService) Refund(ctx context.Context, actor *auth.Principal, id string, req *service.RefundRequest) (*model.Booking, error) {
	return m.refundFunc(ctx, actor, id, req)
}

type tokenAuth map[string]*auth.Principal

func (a tokenAuth) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	if p, ok := a[token]; ok {
		return p, nil
	}
	return nil, apperrors.Unauthorized("Invalid token")
}

func newRouter(svc service.PaymentService, authn tokenAuth) *httprouter.Router {
	router := httprouter.New()
	NewPaymentHandler(svc, authn, logger.Nop()).RegisterRoutes(router)
	return router
}

func TestWebhook(t *testing.T) {
	var gotPayload, gotSignature string
	svc := &mockPaymentService{webhookFunc: func(ctx context.Context, payload []byte, signature string) error {
		gotPayload, gotSignature = string(payload), signature
		if signature != "t=1,v1=abc" {
			return apperrors.InvalidInput("Invalid webhook signature")
		}
		return nil
	}}
	router := newRouter(svc, nil)

	body := `{"id":"evt_1","type":"payment_intent.succeeded"}`
	req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body))
	req.Header.Set(SignatureHeader, "t=1,v1=abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Equal(t, body, gotPayload, "payload is passed through untouched")
	assert.Equal(t, "t=1,v1=abc", gotSignature)

	req = httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_RejectsOversizedPayload(t *testing.T) {
	called := false
	svc := &mockPaymentService{webhookFunc: func(ctx context.Context, payload []byte, signature string) error {
		called = true
		return nil
	}}
	router := newRouter(svc, nil)

	body := `{"id":"evt_1","data":"` + strings.Repeat("x", maxWebhookBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body))
	req.Header.Set(SignatureHeader, "t=1,v1=abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, called, "oversized payloads never reach signature verification")

	body = strings.Repeat(" ", maxWebhookBytes-2) + "{}"
	req = httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body))
	req.Header.Set(SignatureHeader, "t=1,v1=abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRefund_RequiresManager(t *testing.T) {
	called := false
	svc := &mockPaymentService{refundFunc: func(ctx context.Context, actor *auth.Principal, id string, req *service.RefundRequest) (*model.Booking, error) {
		called = true
		require.NotNil(t, req.Amount)
		assert.Equal(t, 25.0, *req.Amount)
		return &model.Booking{ID: primitive.NewObjectID(), Status: model.BookingStatusRefunded}, nil
	}}
	router := newRouter(svc, tokenAuth{
		"customer": {UserID: primitive.NewObjectID(), Role: model.RoleCustomer},
		"manager":  {UserID: primitive.NewObjectID(), Role: model.RoleManager},
	})
	path := "/api/v1/payments/refund/" + primitive.NewObjectID().Hex()

	tests := []struct {
		token string
		want  int
	}{
		{"", http.StatusUnauthorized},
		{"customer", http.StatusForbidden},
		{"manager", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"amount":25}`))
		req.Header.Set("Content-Type", "application/json")
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Code, "token %q", tt.token)
	}
	assert.True(t, called)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	bookingserrors "tourhub/internal/bookings/errors"
	"tourhub/internal/bookings/repository"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/events"
	"tourhub/pkg/logger"
	"tourhub/pkg/metrics"
	"tourhub/pkg/model"
	"tourhub/pkg/payment"
	"tourhub/pkg/validation"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type memBookings struct {
	repository.BookingRepository
	bookings map[primitive.ObjectID]*model.Booking
}

func newMemBookings(bookings ...*model.Booking) *memBookings {
	m := &memBookings{bookings: map[primitive.ObjectID]*model.Booking{}}
	for _, b := range bookings {
		m.bookings[b.ID] = b
	}
	return m
}

func (m *memBookings) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, bookingserrors.ErrInvalidID
	}
	if b, ok := m.bookings[oid]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *memBookings) FindByPaymentIntent(ctx context.Context, intentID string) (*model.Booking, error) {
	for _, b := range m.bookings {
		if b.PaymentIntentID == intentID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

// matches understands equality, $in and $nin on status fields, which is all
// the payment flows use.
func matches[T comparable](actual T, cond any) bool {
	switch c := cond.(type) {
	case T:
		return actual == c
	case bson.M:
		if in, ok := c["$in"].([]T); ok {
			for _, v := range in {
				if v == actual {
					return true
				}
			}
			return false
		}
		if nin, ok := c["$nin"].([]T); ok {
			for _, v := range nin {
				if v == actual {
					return false
				}
			}
			return true
		}
	}
	panic("unsupported condition")
}

func (m *memBookings) UpdateIf(ctx context.Context, id primitive.ObjectID, cond bson.M, set bson.M) (*model.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if c, ok := cond["status"]; ok && !matches(b.Status, c) {
		return nil, bookingserrors.ErrStatusConflict
	}
	if c, ok := cond["paymentStatus"]; ok && !matches(b.PaymentStatus, c) {
		return nil, bookingserrors.ErrStatusConflict
	}
	for k, v := range set {
		switch k {
		case "status":
			b.Status = v.(model.BookingStatus)
		case "paymentStatus":
			b.PaymentStatus = v.(model.PaymentStatus)
		case "paymentIntentId":
			b.PaymentIntentID = v.(string)
		case "refund":
			r := v.(model.Refund)
			b.Refund = &r
		}
	}
	cp := *b
	return &cp, nil
}

type mockGateway struct {
	createFunc func(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error)
	refundFunc func(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error)
	event      *payment.WebhookEvent
	intents    []payment.IntentRequest
	refunds    []payment.RefundRequest
}

func (g *mockGateway) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	g.intents = append(g.intents, req)
	if g.createFunc != nil {
		return g.createFunc(ctx, req)
	}
	return &payment.Intent{ID: "pi_123", ClientSecret: "pi_123_secret_abc", Status: "requires_payment_method"}, nil
}

func (g *mockGateway) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	g.refunds = append(g.refunds, req)
	if g.refundFunc != nil {
		return g.refundFunc(ctx, req)
	}
	amount := int64(10500)
	if req.Amount != nil {
		amount = *req.Amount
	}
	return &payment.RefundResult{ID: "re_1", Amount: amount, Status: "succeeded"}, nil
}

func (g *mockGateway) ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	return g.event, nil
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) PublishBooking(ctx context.Context, eventType string, b *model.Booking) {
	p.events = append(p.events, eventType)
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	svc       *paymentService
	repo      *memBookings
	gateway   *mockGateway
	publisher *recordingPublisher
}

func newFixture(bookings ...*model.Booking) *fixture {
	log := logger.Nop()
	f := &fixture{
		repo:      newMemBookings(bookings...),
		gateway:   &mockGateway{},
		publisher: &recordingPublisher{},
	}
	cfg := &config.Config{Log: log}
	f.svc = NewPaymentService(f.repo, f.gateway, f.publisher, metrics.New("tourhub_test"), validation.New(log), cfg).(*paymentService)
	f.svc.now = func() time.Time { return now }
	return f
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

func booking(user *primitive.ObjectID) *model.Booking {
	tenant := primitive.NewObjectID()
	return &model.Booking{
		ID:              primitive.NewObjectID(),
		Reference:       "TB-AB23CD45",
		User:            user,
		Tenant:          &tenant,
		AttractionTitle: "Sunset Kayak Tour",
		Total:           105,
		Currency:        "USD",
		ContactEmail:    "ana@example.com",
		Status:          model.BookingStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
	}
}

func TestCreateIntent(t *testing.T) {
	owner := primitive.NewObjectID()
	b := booking(&owner)
	f := newFixture(b)

	got, err := f.svc.CreateIntent(context.Background(), &auth.Principal{UserID: owner}, &CreateIntentRequest{BookingID: b.ID.Hex()})
	require.NoError(t, err)
	assert.Equal(t, "pi_123_secret_abc", got.ClientSecret)
	assert.Equal(t, "pi_123", got.PaymentIntentID)

	require.Len(t, f.gateway.intents, 1)
	req := f.gateway.intents[0]
	assert.Equal(t, int64(10500), req.Amount)
	assert.Equal(t, "USD", req.Currency)
	assert.Equal(t, b.ID.Hex(), req.Metadata[payment.MetadataBookingID])
	assert.Equal(t, b.Reference, req.Metadata[payment.MetadataReference])
	assert.Equal(t, b.Tenant.Hex(), req.Metadata[payment.MetadataTenant])

	stored := f.repo.bookings[b.ID]
	assert.Equal(t, model.PaymentStatusProcessing, stored.PaymentStatus)
	assert.Equal(t, "pi_123", stored.PaymentIntentID)

	_, err = f.svc.CreateIntent(context.Background(), &auth.Principal{UserID: owner}, &CreateIntentRequest{BookingID: b.ID.Hex()})
	assert.Equal(t, 400, statusOf(t, err), "payment already started")
}

func TestCreateIntent_Access(t *testing.T) {
	guestBooking := booking(nil)
	owner := primitive.NewObjectID()
	userBooking := booking(&owner)
	f := newFixture(guestBooking, userBooking)

	_, err := f.svc.CreateIntent(context.Background(), nil, &CreateIntentRequest{BookingID: guestBooking.ID.Hex(), Email: "ANA@example.com"})
	require.NoError(t, err, "guests pay with their booking email")

	_, err = f.svc.CreateIntent(context.Background(), nil, &CreateIntentRequest{BookingID: userBooking.ID.Hex(), Email: "ana@example.com"})
	assert.Equal(t, 403, statusOf(t, err), "account bookings need the account")

	_, err = f.svc.CreateIntent(context.Background(), &auth.Principal{UserID: primitive.NewObjectID(), Role: model.RoleCustomer},
		&CreateIntentRequest{BookingID: userBooking.ID.Hex()})
	assert.Equal(t, 403, statusOf(t, err))

	_, err = f.svc.CreateIntent(context.Background(), nil, &CreateIntentRequest{BookingID: "bad"})
	assert.Equal(t, 400, statusOf(t, err))
}

func TestCreateIntent_ProviderErrors(t *testing.T) {
	owner := primitive.NewObjectID()
	b := booking(&owner)
	f := newFixture(b)
	actor := &auth.Principal{UserID: owner}

	f.gateway.createFunc = func(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
		return nil, payment.ErrNotConfigured
	}
	_, err := f.svc.CreateIntent(context.Background(), actor, &CreateIntentRequest{BookingID: b.ID.Hex()})
	assert.Equal(t, 503, statusOf(t, err))

	f.gateway.createFunc = func(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
		return nil, errors.New("api_connection_error")
	}
	_, err = f.svc.CreateIntent(context.Background(), actor, &CreateIntentRequest{BookingID: b.ID.Hex()})
	assert.Equal(t, 502, statusOf(t, err))
	assert.Equal(t, model.PaymentStatusPending, f.repo.bookings[b.ID].PaymentStatus)
}

func TestWebhook_Succeeded(t *testing.T) {
	b := booking(nil)
	b.PaymentIntentID = "pi_123"
	b.PaymentStatus = model.PaymentStatusProcessing
	f := newFixture(b)
	f.gateway.event = &payment.WebhookEvent{ID: "evt_1", Type: payment.EventPaymentSucceeded, PaymentIntentID: "pi_123"}

	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "valid"))
	assert.Equal(t, model.BookingStatusConfirmed, f.repo.bookings[b.ID].Status)
	assert.Equal(t, model.PaymentStatusSucceeded, f.repo.bookings[b.ID].PaymentStatus)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "valid"), "replays are acknowledged")
	assert.Equal(t, []string{events.BookingConfirmed}, f.publisher.events, "replays change nothing")
}

func TestWebhook_MatchesByMetadata(t *testing.T) {
	b := booking(nil)
	f := newFixture(b)
	f.gateway.event = &payment.WebhookEvent{
		ID:              "evt_2",
		Type:            payment.EventPaymentSucceeded,
		PaymentIntentID: "pi_unknown",
		Metadata:        map[string]string{payment.MetadataBookingID: b.ID.Hex()},
	}

	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "valid"))
	assert.Equal(t, model.BookingStatusConfirmed, f.repo.bookings[b.ID].Status)
	assert.Equal(t, "pi_unknown", f.repo.bookings[b.ID].PaymentIntentID)
}

func TestWebhook_Failed(t *testing.T) {
	processing := booking(nil)
	processing.PaymentIntentID = "pi_fail"
	processing.PaymentStatus = model.PaymentStatusProcessing
	paid := booking(nil)
	paid.PaymentIntentID = "pi_paid"
	paid.Status = model.BookingStatusConfirmed
	paid.PaymentStatus = model.PaymentStatusSucceeded
	f := newFixture(processing, paid)

	f.gateway.event = &payment.WebhookEvent{ID: "evt_3", Type: payment.EventPaymentFailed, PaymentIntentID: "pi_fail", FailureMessage: "card declined"}
	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "valid"))
	assert.Equal(t, model.PaymentStatusFailed, f.repo.bookings[processing.ID].PaymentStatus)
	assert.Equal(t, model.BookingStatusPending, f.repo.bookings[processing.ID].Status, "booking status is untouched")

	f.gateway.event = &payment.WebhookEvent{ID: "evt_4", Type: payment.EventPaymentFailed, PaymentIntentID: "pi_paid"}
	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "valid"))
	assert.Equal(t, model.PaymentStatusSucceeded, f.repo.bookings[paid.ID].PaymentStatus, "never downgrades a settled payment")

	assert.Equal(t, []string{events.BookingPaymentFailed}, f.publisher.events)
}

func TestWebhook_Rejections(t *testing.T) {
	f := newFixture()
	err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "forged")
	assert.Equal(t, 400, statusOf(t, err))

	f.gateway.event = &payment.WebhookEvent{ID: "evt_5", Type: "charge.refunded"}
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "valid"), "other events are ignored")

	f.gateway.event = &payment.WebhookEvent{ID: "evt_6", Type: payment.EventPaymentSucceeded, PaymentIntentID: "pi_nobody"}
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "valid"), "unknown bookings are acknowledged")
}

func TestRefund(t *testing.T) {
	b := booking(nil)
	b.Status = model.BookingStatusConfirmed
	b.PaymentStatus = model.PaymentStatusSucceeded
	b.PaymentIntentID = "pi_123"
	f := newFixture(b)
	manager := &auth.Principal{UserID: primitive.NewObjectID(), Role: model.RoleManager, Tenants: []primitive.ObjectID{*b.Tenant}}

	amount := 200.0
	_, err := f.svc.Refund(context.Background(), manager, b.ID.Hex(), &RefundRequest{Amount: &amount})
	assert.Equal(t, 400, statusOf(t, err), "cannot refund more than the total")

	amount = 40
	got, err := f.svc.Refund(context.Background(), manager, b.ID.Hex(), &RefundRequest{Amount: &amount, Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusRefunded, got.Status)
	assert.Equal(t, model.PaymentStatusRefunded, got.PaymentStatus)
	require.NotNil(t, got.Refund)
	assert.Equal(t, 40.0, got.Refund.Amount)
	assert.Equal(t, "re_1", got.Refund.ID)
	assert.Equal(t, now, got.Refund.RefundedAt)

	require.Len(t, f.gateway.refunds, 1)
	assert.Equal(t, int64(4000), *f.gateway.refunds[0].Amount)
	assert.Equal(t, payment.RefundReasonDuplicate, f.gateway.refunds[0].Reason)
	assert.Equal(t, []string{events.BookingRefunded}, f.publisher.events)

	_, err = f.svc.Refund(context.Background(), manager, b.ID.Hex(), &RefundRequest{})
	assert.Equal(t, 400, statusOf(t, err), "already refunded")
}

func TestRefund_Rejections(t *testing.T) {
	pending := booking(nil)
	paid := booking(nil)
	paid.PaymentStatus = model.PaymentStatusSucceeded
	paid.PaymentIntentID = "pi_paid"
	f := newFixture(pending, paid)
	admin := &auth.Principal{UserID: primitive.NewObjectID(), Role: model.RoleSuperAdmin}

	_, err := f.svc.Refund(context.Background(), admin, pending.ID.Hex(), &RefundRequest{})
	assert.Equal(t, 400, statusOf(t, err), "requires a succeeded payment")

	outsider := &auth.Principal{UserID: primitive.NewObjectID(), Role: model.RoleManager, Tenants: []primitive.ObjectID{primitive.NewObjectID()}}
	_, err = f.svc.Refund(context.Background(), outsider, paid.ID.Hex(), &RefundRequest{})
	assert.Equal(t, 403, statusOf(t, err))

	f.gateway.refundFunc = func(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
		return nil, errors.New("charge_already_refunded")
	}
	_, err = f.svc.Refund(context.Background(), admin, paid.ID.Hex(), &RefundRequest{})
	assert.Equal(t, 502, statusOf(t, err))
	assert.Equal(t, model.PaymentStatusSucceeded, f.repo.bookings[paid.ID].PaymentStatus)
	assert.Empty(t, f.publisher.events)
}

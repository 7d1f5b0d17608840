package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	bookingserrors "tourhub/internal/bookings/errors"
	"tourhub/internal/bookings/repository"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/events"
	"tourhub/pkg/metrics"
	"tourhub/pkg/model"
	"tourhub/pkg/payment"
	"tourhub/pkg/sanitizer"
	"tourhub/pkg/validation"
)

type CreateIntentRequest struct {
	BookingID string `json:"bookingId" validate:"required,mongodb"`
	// Email identifies guests paying for their own booking.
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type IntentResponse struct {
	BookingID       string  `json:"bookingId"`
	PaymentIntentID string  `json:"paymentIntentId"`
	ClientSecret    string  `json:"clientSecret"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

type RefundRequest struct {
	Amount *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Reason string   `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type PaymentService interface {
	CreateIntent(ctx context.Context, actor *auth.Principal, req *CreateIntentRequest) (*IntentResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	Refund(ctx context.Context, actor *auth.Principal, bookingID string, req *RefundRequest) (*model.Booking, error)
}

type paymentService struct {
	bookings  repository.BookingRepository
	gateway   payment.Gateway
	publisher events.Publisher
	metrics   *metrics.Metrics
	validator *validation.Validator
	cfg       *config.Config
	now       func() time.Time
}

func NewPaymentService(
	bookings repository.BookingRepository,
	gateway payment.Gateway,
	publisher events.Publisher,
	m *metrics.Metrics,
	validator *validation.Validator,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		bookings:  bookings,
		gateway:   gateway,
		publisher: publisher,
		metrics:   m,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *paymentService) observe(operation string, err error) {
	if s.metrics != nil {
		s.metrics.PaymentCall(operation, err)
	}
}

func (s *paymentService) mapError(err error, ref, action string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", ref)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingserrors.ErrStatusConflict):
		return apperrors.Conflict("Booking payment state changed, please retry")
	}
	s.cfg.Log.Error("Payment booking update failed",
		"action", action,
		"ref", ref,
		"error", err,
	)
	return apperrors.Internal("Failed to "+action, err)
}

func (s *paymentService) providerError(operation string, err error) error {
	if errors.Is(err, payment.ErrNotConfigured) {
		return apperrors.Unavailable("Payments")
	}
	s.cfg.Log.Error("Payment provider call failed", "operation", operation, "error", err)
	return apperrors.BadGateway("Payment provider request failed", err)
}

// mayPay reports whether the caller may start payment for the booking.
// Guests prove ownership with the booking's email address.
func mayPay(actor *auth.Principal, b *model.Booking, email string) bool {
	if actor != nil {
		if b.OwnedBy(actor.UserID) {
			return true
		}
		if actor.Role == model.RoleSuperAdmin {
			return true
		}
		if actor.IsStaff() && b.Tenant != nil && actor.CanManageTenant(*b.Tenant) {
			return true
		}
	}
	if b.User != nil || email == "" {
		return false
	}
	email = sanitizer.NormalizeEmail(email)
	if b.Guest != nil && strings.EqualFold(b.Guest.Email, email) {
		return true
	}
	return strings.EqualFold(b.ContactEmail, email)
}

func (s *paymentService) CreateIntent(ctx context.Context, actor *auth.Principal, req *CreateIntentRequest) (*IntentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	b, err := s.bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		return nil, s.mapError(err, req.BookingID, "create payment intent")
	}
	if !mayPay(actor, b, req.Email) {
		return nil, apperrors.Forbidden("You do not have access to this booking")
	}
	if b.PaymentStatus != model.PaymentStatusPending || b.Status != model.BookingStatusPending {
		return nil, apperrors.InvalidInput("Booking is not awaiting payment")
	}

	metadata := map[string]string{
		payment.MetadataBookingID: b.ID.Hex(),
		payment.MetadataReference: b.Reference,
	}
	if b.Tenant != nil {
		metadata[payment.MetadataTenant] = b.Tenant.Hex()
	}

	intent, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		Amount:         payment.ToMinorUnits(b.Total, b.Currency),
		Currency:       b.Currency,
		Description:    b.AttractionTitle + " (" + b.Reference + ")",
		ReceiptEmail:   b.ContactEmail,
		Metadata:       metadata,
		IdempotencyKey: "intent-" + b.ID.Hex(),
	})
	s.observe("create_intent", err)
	if err != nil {
		return nil, s.providerError("create_intent", err)
	}

	cond := bson.M{"paymentStatus": model.PaymentStatusPending}
	set := bson.M{
		"paymentIntentId": intent.ID,
		"paymentStatus":   model.PaymentStatusProcessing,
	}
	if _, err := s.bookings.UpdateIf(ctx, b.ID, cond, set); err != nil {
		return nil, s.mapError(err, req.BookingID, "create payment intent")
	}

	s.cfg.Log.Info("Payment intent created",
		"booking_id", b.ID.Hex(),
		"reference", b.Reference,
		"payment_intent_id", intent.ID,
	)
	return &IntentResponse{
		BookingID:       b.ID.Hex(),
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          b.Total,
		Currency:        b.Currency,
	}, nil
}

// HandleWebhook applies a verified provider event. Unknown bookings and
// event types are logged and acknowledged so the provider stops retrying.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	evt, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNotConfigured):
			return apperrors.Unavailable("Payments")
		case errors.Is(err, payment.ErrInvalidSignature):
			s.cfg.Log.Warn("Rejected webhook with invalid signature", "error", err)
			return apperrors.InvalidInput("Invalid webhook signature")
		}
		return apperrors.InvalidInput("Malformed webhook payload")
	}
	if s.metrics != nil {
		s.metrics.WebhookEvent(evt.Type)
	}

	switch evt.Type {
	case payment.EventPaymentSucceeded:
		return s.paymentSucceeded(ctx, evt)
	case payment.EventPaymentFailed:
		return s.paymentFailed(ctx, evt)
	default:
		s.cfg.Log.Debug("Ignoring webhook event", "event_id", evt.ID, "type", evt.Type)
		return nil
	}
}

func (s *paymentService) bookingFor(ctx context.Context, evt *payment.WebhookEvent) (*model.Booking, error) {
	b, err := s.bookings.FindByPaymentIntent(ctx, evt.PaymentIntentID)
	if err == nil || !errors.Is(err, bookingserrors.ErrNotFound) {
		return b, err
	}
	id := evt.Metadata[payment.MetadataBookingID]
	if id == "" {
		return nil, err
	}
	return s.bookings.FindByID(ctx, id)
}

var settledPayments = []model.PaymentStatus{model.PaymentStatusSucceeded, model.PaymentStatusRefunded}

func (s *paymentService) paymentSucceeded(ctx context.Context, evt *payment.WebhookEvent) error {
	b, err := s.bookingFor(ctx, evt)
	if err != nil {
		return s.unmatched(evt, err)
	}
	if b.PaymentStatus == model.PaymentStatusSucceeded || b.PaymentStatus == model.PaymentStatusRefunded {
		s.cfg.Log.Debug("Payment already settled", "booking_id", b.ID.Hex(), "event_id", evt.ID)
		return nil
	}

	set := bson.M{
		"paymentStatus":   model.PaymentStatusSucceeded,
		"paymentIntentId": evt.PaymentIntentID,
	}
	cond := bson.M{"paymentStatus": bson.M{"$nin": settledPayments}}
	if b.Cancellable() {
		set["status"] = model.BookingStatusConfirmed
		cond["status"] = bson.M{"$in": []model.BookingStatus{model.BookingStatusPending, model.BookingStatusConfirmed}}
	} else {
		s.cfg.Log.Warn("Payment succeeded for a booking that is no longer open, refund manually",
			"booking_id", b.ID.Hex(),
			"reference", b.Reference,
			"status", b.Status,
		)
	}

	updated, err := s.bookings.UpdateIf(ctx, b.ID, cond, set)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusConflict) {
			return nil
		}
		return s.mapError(err, b.ID.Hex(), "confirm payment")
	}

	if updated.Status == model.BookingStatusConfirmed {
		s.publisher.PublishBooking(ctx, events.BookingConfirmed, updated)
	}
	s.cfg.Log.Info("Payment succeeded",
		"booking_id", updated.ID.Hex(),
		"reference", updated.Reference,
		"payment_intent_id", evt.PaymentIntentID,
	)
	return nil
}

func (s *paymentService) paymentFailed(ctx context.Context, evt *payment.WebhookEvent) error {
	b, err := s.bookingFor(ctx, evt)
	if err != nil {
		return s.unmatched(evt, err)
	}

	final := []model.PaymentStatus{model.PaymentStatusSucceeded, model.PaymentStatusRefunded, model.PaymentStatusFailed}
	cond := bson.M{"paymentStatus": bson.M{"$nin": final}}
	updated, err := s.bookings.UpdateIf(ctx, b.ID, cond, bson.M{"paymentStatus": model.PaymentStatusFailed})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusConflict) {
			return nil
		}
		return s.mapError(err, b.ID.Hex(), "record payment failure")
	}

	s.publisher.PublishBooking(ctx, events.BookingPaymentFailed, updated)
	s.cfg.Log.Info("Payment failed",
		"booking_id", updated.ID.Hex(),
		"reference", updated.Reference,
		"reason", evt.FailureMessage,
	)
	return nil
}

func (s *paymentService) unmatched(evt *payment.WebhookEvent, err error) error {
	if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
		s.cfg.Log.Warn("Webhook event matches no booking",
			"event_id", evt.ID,
			"type", evt.Type,
			"payment_intent_id", evt.PaymentIntentID,
		)
		return nil
	}
	return s.mapError(err, evt.PaymentIntentID, "process webhook")
}

func (s *paymentService) Refund(ctx context.Context, actor *auth.Principal, bookingID string, req *RefundRequest) (*model.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, s.mapError(err, bookingID, "refund booking")
	}
	if actor.Role != model.RoleSuperAdmin && (b.Tenant == nil || !actor.CanManageTenant(*b.Tenant)) {
		return nil, apperrors.Forbidden("You do not manage this booking's store")
	}
	if b.PaymentStatus != model.PaymentStatusSucceeded {
		return nil, apperrors.InvalidInput("Only bookings with a succeeded payment can be refunded")
	}
	if b.PaymentIntentID == "" {
		return nil, apperrors.Conflict("Booking has no payment to refund")
	}

	amount := b.Total
	var minor *int64
	if req.Amount != nil {
		if *req.Amount > b.Total {
			return nil, validation.Single("amount", "must not exceed the booking total")
		}
		amount = *req.Amount
		m := payment.ToMinorUnits(amount, b.Currency)
		minor = &m
	}

	reason := strings.TrimSpace(req.Reason)
	result, err := s.gateway.Refund(ctx, payment.RefundRequest{
		PaymentIntentID: b.PaymentIntentID,
		Amount:          minor,
		Reason:          payment.RefundReason(reason),
		IdempotencyKey:  "refund-" + b.ID.Hex(),
	})
	s.observe("refund", err)
	if err != nil {
		return nil, s.providerError("refund", err)
	}
	if result.Amount > 0 {
		amount = payment.FromMinorUnits(result.Amount, b.Currency)
	}

	set := bson.M{
		"status":        model.BookingStatusRefunded,
		"paymentStatus": model.PaymentStatusRefunded,
		"refund": model.Refund{
			ID:         result.ID,
			Amount:     amount,
			Reason:     reason,
			RefundedAt: s.now().UTC(),
		},
	}
	updated, err := s.bookings.UpdateIf(ctx, b.ID, bson.M{"paymentStatus": model.PaymentStatusSucceeded}, set)
	if err != nil {
		s.cfg.Log.Error("Refund issued but booking update failed",
			"booking_id", b.ID.Hex(),
			"refund_id", result.ID,
			"error", err,
		)
		return nil, s.mapError(err, bookingID, "refund booking")
	}

	s.publisher.PublishBooking(ctx, events.BookingRefunded, updated)
	s.cfg.Log.Info("Booking refunded",
		"booking_id", updated.ID.Hex(),
		"reference", updated.Reference,
		"amount", amount,
		"actor", actor.UserID.Hex(),
	)
	return updated, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	attractionserrors "tourhub/internal/attractions/errors"
	bookingserrors "tourhub/internal/bookings/errors"
	"tourhub/internal/bookings/repository"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/events"
	httputil "tourhub/pkg/http"
	"tourhub/pkg/logger"
	"tourhub/pkg/model"
	"tourhub/pkg/payment"
	"tourhub/pkg/sanitizer"
	"tourhub/pkg/validation"
)

const maxReferenceAttempts = 5

type AttractionLookup interface {
	FindByRef(ctx context.Context, ref string) (*model.Attraction, error)
}

// UserStats records the booking totals kept on the user document.
type UserStats interface {
	IncrementBookingStats(ctx context.Context, id primitive.ObjectID, amount float64) error
}

type BookingService interface {
	Create(ctx context.Context, actor *auth.Principal, tenant *model.Tenant, req *CreateBookingRequest) (*model.Booking, error)
	List(ctx context.Context, actor *auth.Principal, q ListQuery) ([]*model.Booking, int64, error)
	Get(ctx context.Context, actor *auth.Principal, id string) (*model.Booking, error)
	Lookup(ctx context.Context, reference, email string) (*model.Booking, error)
	Cancel(ctx context.Context, actor *auth.Principal, id string, req *CancelRequest) (*model.Booking, error)
	UpdateStatus(ctx context.Context, actor *auth.Principal, id string, req *UpdateStatusRequest) (*model.Booking, error)
}

type bookingService struct {
	repo        repository.BookingRepository
	attractions AttractionLookup
	users       UserStats
	gateway     payment.Gateway
	publisher   events.Publisher
	validator   *validation.Validator
	cfg         *config.Config
	now         func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	attractions AttractionLookup,
	users UserStats,
	gateway payment.Gateway,
	publisher events.Publisher,
	validator *validation.Validator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:        repo,
		attractions: attractions,
		users:       users,
		gateway:     gateway,
		publisher:   publisher,
		validator:   validator,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *bookingService) log() *logger.Logger {
	return s.cfg.Log
}

func (s *bookingService) mapError(err error, ref, action string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", ref)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingserrors.ErrStatusConflict):
		return apperrors.Conflict("Booking was modified by another request, please retry")
	}
	s.log().Error("Booking repository failure",
		"action", action,
		"ref", ref,
		"error", err,
	)
	return apperrors.Internal("Failed to "+action+" booking", err)
}

// canAccess reports whether the actor may read or cancel the booking.
// Staff other than super admins only see bookings of their tenants.
func canAccess(actor *auth.Principal, b *model.Booking) bool {
	if actor == nil {
		return false
	}
	if b.OwnedBy(actor.UserID) {
		return true
	}
	if !actor.IsStaff() {
		return false
	}
	if actor.Role == model.RoleSuperAdmin {
		return true
	}
	return b.Tenant != nil && actor.CanManageTenant(*b.Tenant)
}

func (s *bookingService) Create(ctx context.Context, actor *auth.Principal, tenant *model.Tenant, req *CreateBookingRequest) (*model.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if actor == nil {
		if req.Guest == nil {
			return nil, validation.Single("guest", "guest details are required when not signed in")
		}
		if tenant != nil && !tenant.Features.GuestCheckout {
			return nil, apperrors.Forbidden("Guest checkout is disabled for this store")
		}
	}

	var tenantID *primitive.ObjectID
	if tenant != nil {
		tenantID = &tenant.ID
	}

	a, err := s.attractions.FindByRef(ctx, req.Attraction)
	if err != nil {
		if errors.Is(err, attractionserrors.ErrNotFound) || errors.Is(err, attractionserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Attraction", req.Attraction)
		}
		s.log().Error("Attraction lookup failed", "ref", req.Attraction, "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}
	if !a.AvailableToTenant(tenantID) {
		return nil, apperrors.NotFoundWithID("Attraction", req.Attraction)
	}
	if a.Status != model.AttractionStatusActive {
		return nil, apperrors.InvalidInput("Attraction is not available for booking")
	}

	date, err := httputil.ParseDate(req.BookingDate)
	if err != nil {
		return nil, validation.Single("bookingDate", "must be a date like 2026-05-30")
	}
	date = date.Truncate(24 * time.Hour)
	if date.Before(s.now().UTC().Truncate(24 * time.Hour)) {
		return nil, validation.Single("bookingDate", "must not be in the past")
	}

	slot, err := pickTimeSlot(a, req.TimeSlot)
	if err != nil {
		return nil, err
	}

	quote, err := PriceItems(a, req.Items, decimal.NewFromFloat(s.cfg.PlatformFeeRate))
	if err != nil {
		return nil, err
	}

	b := &model.Booking{
		Attraction:      a.ID,
		AttractionTitle: a.Title,
		Tenant:          tenantID,
		BookingDate:     date,
		TimeSlot:        slot,
		Items:           quote.Items,
		Subtotal:        quote.Subtotal.InexactFloat64(),
		Fees:            quote.Fees.InexactFloat64(),
		Discount:        quote.Discount.InexactFloat64(),
		Total:           quote.Total.InexactFloat64(),
		Currency:        sanitizer.NormalizeCurrency(a.Pricing.Currency),
		PromoCode:       sanitizer.NormalizePromoCode(req.PromoCode),
		Status:          model.BookingStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
	}
	if b.Tenant == nil && len(a.Tenants) > 0 {
		first := a.Tenants[0]
		b.Tenant = &first
	}
	if b.Currency == "" {
		b.Currency = s.cfg.DefaultCurrency
	}

	if actor != nil {
		uid := actor.UserID
		b.User = &uid
		b.ContactEmail = actor.Email
	}
	if req.Guest != nil && actor == nil {
		b.Guest = &model.GuestInfo{
			Name:  sanitizer.NormalizeName(req.Guest.Name),
			Email: sanitizer.NormalizeEmail(req.Guest.Email),
			Phone: sanitizer.NormalizePhone(req.Guest.Phone),
		}
		if req.Guest.Phone != "" && b.Guest.Phone == "" {
			return nil, validation.Single("guest.phone", "must be a valid phone number")
		}
		b.ContactEmail = b.Guest.Email
	}
	if req.ContactEmail != "" {
		b.ContactEmail = sanitizer.NormalizeEmail(req.ContactEmail)
	}

	if err := s.insert(ctx, b); err != nil {
		return nil, err
	}

	if b.User != nil {
		if err := s.users.IncrementBookingStats(ctx, *b.User, b.Total); err != nil {
			s.log().Warn("Failed to update user booking stats",
				"user_id", b.User.Hex(),
				"booking_id", b.ID.Hex(),
				"error", err,
			)
		}
	}
	s.publisher.PublishBooking(ctx, events.BookingCreated, b)

	s.log().Info("Booking created",
		"booking_id", b.ID.Hex(),
		"reference", b.Reference,
		"attraction_id", a.ID.Hex(),
		"total", b.Total,
		"currency", b.Currency,
	)
	return b, nil
}

// insert assigns a fresh reference and retries when it collides.
func (s *bookingService) insert(ctx context.Context, b *model.Booking) error {
	for attempt := 1; ; attempt++ {
		ref, err := NewReference()
		if err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		b.Reference = ref

		err = s.repo.Create(ctx, b)
		if err == nil {
			return nil
		}
		if !errors.Is(err, bookingserrors.ErrDuplicateReference) || attempt == maxReferenceAttempts {
			return s.mapError(err, ref, "create")
		}
		s.log().Warn("Booking reference collision, retrying", "reference", ref, "attempt", attempt)
	}
}

func pickTimeSlot(a *model.Attraction, requested string) (string, error) {
	slots := a.Availability.TimeSlots
	if len(slots) == 0 {
		if requested != "" {
			return "", validation.Single("timeSlot", "attraction has no time slots")
		}
		return "", nil
	}
	if requested == "" {
		return "", validation.Single("timeSlot", "is required for this attraction")
	}
	for _, slot := range slots {
		if slot == requested {
			return slot, nil
		}
	}
	return "", validation.Single("timeSlot", fmt.Sprintf("%q is not offered", requested))
}

func (s *bookingService) List(ctx context.Context, actor *auth.Principal, q ListQuery) ([]*model.Booking, int64, error) {
	if actor == nil {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}

	var filter repository.BookingFilter
	if actor.IsStaff() {
		var err error
		if filter, err = staffFilter(actor, q); err != nil {
			return nil, 0, err
		}
	} else {
		uid := actor.UserID
		filter = repository.BookingFilter{User: &uid, Status: q.Status}
	}

	skip := int64(q.Page-1) * int64(q.Limit)

	var (
		wg                sync.WaitGroup
		bookings          []*model.Booking
		count             int64
		findErr, countErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		bookings, findErr = s.repo.FindAll(ctx, filter, q.Limit, skip)
	}()
	go func() {
		defer wg.Done()
		count, countErr = s.repo.Count(ctx, filter)
	}()
	wg.Wait()

	if findErr != nil {
		return nil, 0, s.mapError(findErr, "", "list")
	}
	if countErr != nil {
		return nil, 0, s.mapError(countErr, "", "count")
	}
	return bookings, count, nil
}

func staffFilter(actor *auth.Principal, q ListQuery) (repository.BookingFilter, error) {
	f := repository.BookingFilter{
		Status:        q.Status,
		PaymentStatus: q.PaymentStatus,
		Reference:     strings.ToUpper(strings.TrimSpace(q.Reference)),
		From:          q.From,
		To:            q.To,
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return f, validation.Single("to", "must not be before from")
	}
	if q.Attraction != "" {
		oid, err := primitive.ObjectIDFromHex(q.Attraction)
		if err != nil {
			return f, validation.Single("attraction", "must be a valid id")
		}
		f.Attraction = &oid
	}
	if q.User != "" {
		oid, err := primitive.ObjectIDFromHex(q.User)
		if err != nil {
			return f, validation.Single("user", "must be a valid id")
		}
		f.User = &oid
	}

	switch {
	case q.Tenant != nil:
		if !actor.CanManageTenant(*q.Tenant) {
			return f, apperrors.Forbidden("You do not manage this store")
		}
		f.Tenants = []primitive.ObjectID{*q.Tenant}
	case actor.Role != model.RoleSuperAdmin:
		f.Tenants = append([]primitive.ObjectID{}, actor.Tenants...)
	}
	return f, nil
}

func (s *bookingService) Get(ctx context.Context, actor *auth.Principal, id string) (*model.Booking, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "get")
	}
	if !canAccess(actor, b) {
		return nil, apperrors.Forbidden("You do not have access to this booking")
	}
	return b, nil
}

// Lookup finds a booking by reference for guests. The email must match the
// guest or contact email, otherwise the booking is reported as missing.
func (s *bookingService) Lookup(ctx context.Context, reference, email string) (*model.Booking, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return nil, validation.Single("email", "is required")
	}

	b, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, s.mapError(err, reference, "get")
	}
	if !matchesEmail(b, email) {
		return nil, apperrors.NotFoundWithID("Booking", reference)
	}
	return b, nil
}

func matchesEmail(b *model.Booking, email string) bool {
	if email == "" {
		return false
	}
	if b.Guest != nil && strings.EqualFold(b.Guest.Email, email) {
		return true
	}
	return strings.EqualFold(b.ContactEmail, email)
}

func (s *bookingService) Cancel(ctx context.Context, actor *auth.Principal, id string, req *CancelRequest) (*model.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "cancel")
	}
	if !canAccess(actor, b) {
		return nil, apperrors.Forbidden("You do not have access to this booking")
	}
	if !b.Cancellable() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Booking cannot be cancelled while %s", b.Status))
	}

	now := s.now().UTC()
	by := actor.UserID
	cancellation := model.Cancellation{
		Reason:      strings.TrimSpace(req.Reason),
		CancelledAt: now,
		CancelledBy: &by,
	}
	cond := bson.M{"status": b.Status, "paymentStatus": b.PaymentStatus}
	set := bson.M{
		"status":       model.BookingStatusCancelled,
		"cancellation": cancellation,
	}

	if b.PaymentStatus == model.PaymentStatusSucceeded {
		refund, err := s.refund(ctx, b, cancellation.Reason)
		if err != nil {
			return nil, err
		}
		set["paymentStatus"] = model.PaymentStatusRefunded
		set["refund"] = model.Refund{
			ID:         refund.ID,
			Amount:     payment.FromMinorUnits(refund.Amount, b.Currency),
			Reason:     cancellation.Reason,
			RefundedAt: now,
		}
	}

	updated, err := s.repo.UpdateIf(ctx, b.ID, cond, set)
	if err != nil {
		if _, refunded := set["refund"]; refunded {
			s.log().Error("Refund issued but booking update failed",
				"booking_id", b.ID.Hex(),
				"reference", b.Reference,
				"error", err,
			)
		}
		return nil, s.mapError(err, id, "cancel")
	}

	s.publisher.PublishBooking(ctx, events.BookingCancelled, updated)
	s.log().Info("Booking cancelled",
		"booking_id", updated.ID.Hex(),
		"reference", updated.Reference,
		"payment_status", updated.PaymentStatus,
	)
	return updated, nil
}

func (s *bookingService) refund(ctx context.Context, b *model.Booking, reason string) (*payment.RefundResult, error) {
	if b.PaymentIntentID == "" {
		return nil, apperrors.Conflict("Booking has no payment to refund")
	}
	result, err := s.gateway.Refund(ctx, payment.RefundRequest{
		PaymentIntentID: b.PaymentIntentID,
		Reason:          payment.RefundReason(reason),
		IdempotencyKey:  "cancel-" + b.ID.Hex(),
	})
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, apperrors.Unavailable("Payments")
		}
		s.log().Error("Refund failed",
			"booking_id", b.ID.Hex(),
			"payment_intent_id", b.PaymentIntentID,
			"error", err,
		)
		return nil, apperrors.BadGateway("Payment provider refused the refund", err)
	}
	return result, nil
}

var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingStatusConfirmed: {model.BookingStatusPending},
	model.BookingStatusCompleted: {model.BookingStatusConfirmed},
	model.BookingStatusCancelled: {model.BookingStatusPending, model.BookingStatusConfirmed},
}

var statusEvents = map[model.BookingStatus]string{
	model.BookingStatusConfirmed: events.BookingConfirmed,
	model.BookingStatusCompleted: events.BookingCompleted,
	model.BookingStatusCancelled: events.BookingCancelled,
}

// UpdateStatus moves a booking along the staff managed transitions. It never
// touches payment state; refunds go through the payments API.
func (s *bookingService) UpdateStatus(ctx context.Context, actor *auth.Principal, id string, req *UpdateStatusRequest) (*model.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "update")
	}
	if !actor.IsStaff() || !canAccess(actor, b) {
		return nil, apperrors.Forbidden("You do not have access to this booking")
	}

	allowed := false
	for _, from := range transitions[req.Status] {
		if b.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Cannot change booking status from %s to %s", b.Status, req.Status))
	}

	set := bson.M{"status": req.Status}
	if req.Status == model.BookingStatusCancelled {
		by := actor.UserID
		set["cancellation"] = model.Cancellation{CancelledAt: s.now().UTC(), CancelledBy: &by}
	}

	updated, err := s.repo.UpdateIf(ctx, b.ID, bson.M{"status": b.Status}, set)
	if err != nil {
		return nil, s.mapError(err, id, "update")
	}

	s.publisher.PublishBooking(ctx, statusEvents[req.Status], updated)
	return updated, nil
}

package events

import (
	"context"
	"time"

	"tourhub/pkg/kafka"
	kafka_middleware "tourhub/pkg/kafka/middleware"
	"tourhub/pkg/logger"
	"tourhub/pkg/metrics"
	"tourhub/pkg/middleware"
	"tourhub/pkg/model"
)

const (
	BookingCreated       = "booking.created"
	BookingConfirmed     = "booking.confirmed"
	BookingPaymentFailed = "booking.payment_failed"
	BookingCancelled     = "booking.cancelled"
	BookingRefunded      = "booking.refunded"
	BookingCompleted     = "booking.completed"

	SchemaVersion = "1"
	source        = "tourhub-api"
)

// BookingEvent is the payload of every message on the bookings topic.
type BookingEvent struct {
	Type          string              `json:"type"`
	BookingID     string              `json:"bookingId"`
	Reference     string              `json:"reference"`
	AttractionID  string              `json:"attractionId"`
	TenantID      string              `json:"tenantId,omitempty"`
	UserID        string              `json:"userId,omitempty"`
	Status        model.BookingStatus `json:"status"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
	Total         float64             `json:"total"`
	Currency      string              `json:"currency"`
	OccurredAt    time.Time           `json:"occurredAt"`
}

func NewBookingEvent(eventType string, b *model.Booking) BookingEvent {
	evt := BookingEvent{
		Type:          eventType,
		BookingID:     b.ID.Hex(),
		Reference:     b.Reference,
		AttractionID:  b.Attraction.Hex(),
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		Total:         b.Total,
		Currency:      b.Currency,
		OccurredAt:    time.Now().UTC(),
	}
	if b.Tenant != nil {
		evt.TenantID = b.Tenant.Hex()
	}
	if b.User != nil {
		evt.UserID = b.User.Hex()
	}
	return evt
}

// Publisher emits booking lifecycle events. Publishing never fails the
// caller; errors are logged.
type Publisher interface {
	PublishBooking(ctx context.Context, eventType string, b *model.Booking)
	Close() error
}

type KafkaPublisher struct {
	producer *kafka.Producer
	metrics  *metrics.Metrics
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, m *metrics.Metrics, log *logger.Logger) *KafkaPublisher {
	producer.Use(kafka_middleware.LoggingProducerMiddleware(log))
	if m != nil {
		producer.Use(kafka_middleware.MetricsProducerMiddleware(m))
	}
	return &KafkaPublisher{producer: producer, metrics: m, log: log}
}

func (p *KafkaPublisher) PublishBooking(ctx context.Context, eventType string, b *model.Booking) {
	if p.metrics != nil {
		p.metrics.BookingTransition(eventType)
	}

	msg, err := NewMessage(ctx, NewBookingEvent(eventType, b))
	if err != nil {
		p.log.Error("failed to build booking event", "event_type", eventType, "booking_id", b.ID.Hex(), "error", err)
		return
	}

	// The request context may be cancelled as soon as the response is
	// written, so publishing gets its own deadline.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.producer.Publish(pubCtx, msg); err != nil {
		p.log.Error("failed to publish booking event",
			"event_type", eventType,
			"booking_id", b.ID.Hex(),
			"reference", b.Reference,
			"error", err,
		)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NewMessage wraps a booking event in a keyed Kafka message.
func NewMessage(ctx context.Context, evt BookingEvent) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(evt.BookingID).
		WithEventType(evt.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(source).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		WithValue(evt).
		Build()
}

// Nop is used when Kafka is not configured.
type Nop struct {
	Metrics *metrics.Metrics
}

func (n Nop) PublishBooking(_ context.Context, eventType string, _ *model.Booking) {
	if n.Metrics != nil {
		n.Metrics.BookingTransition(eventType)
	}
}

func (Nop) Close() error { return nil }

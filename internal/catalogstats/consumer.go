// Package catalogstats keeps attraction booking counters in step with the
// booking events topic.
package catalogstats

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	attractionserrors "tourhub/internal/attractions/errors"
	"tourhub/pkg/events"
	"tourhub/pkg/kafka"
	"tourhub/pkg/logger"
)

type Counter interface {
	IncrementBookingCount(ctx context.Context, id primitive.ObjectID, delta int) error
}

type Handler struct {
	counter Counter
	log     *logger.Logger
}

func NewHandler(counter Counter, log *logger.Logger) *Handler {
	return &Handler{counter: counter, log: log}
}

// Handle counts confirmed bookings. Other event types are acknowledged
// without side effects.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	if msg.EventType() != "" && msg.EventType() != events.BookingConfirmed {
		return nil
	}

	var evt events.BookingEvent
	if err := msg.DecodeValue(&evt); err != nil {
		return kafka.NewPermanentError("malformed booking event", err)
	}
	if evt.Type != events.BookingConfirmed {
		return nil
	}

	id, err := primitive.ObjectIDFromHex(evt.AttractionID)
	if err != nil {
		return kafka.NewPermanentError("invalid attraction id "+evt.AttractionID, err)
	}

	if err := h.counter.IncrementBookingCount(ctx, id, 1); err != nil {
		if errors.Is(err, attractionserrors.ErrNotFound) {
			h.log.Warn("attraction gone, skipping booking count",
				"attraction_id", evt.AttractionID,
				"booking_id", evt.BookingID,
			)
			return nil
		}
		return kafka.NewTransientError("failed to increment booking count", err)
	}

	h.log.Debug("booking counted", "attraction_id", evt.AttractionID, "reference", evt.Reference)
	return nil
}

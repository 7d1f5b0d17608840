package service

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourhub/pkg/model"
)

type ItemRequest struct {
	OptionID string `json:"optionId" validate:"required,max=50"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=100"`
}

type CreateBookingRequest struct {
	Attraction      string           `json:"attraction" validate:"required,max=200"`
	BookingDate     string           `json:"bookingDate" validate:"required"`
	TimeSlot        string           `json:"timeSlot,omitempty" validate:"omitempty,time_slot"`
	Items           []ItemRequest    `json:"items" validate:"required,min=1,max=20,dive"`
	Guest           *model.GuestInfo `json:"guest,omitempty" validate:"omitempty"`
	ContactEmail    string           `json:"contactEmail,omitempty" validate:"omitempty,email"`
	PromoCode       string           `json:"promoCode,omitempty" validate:"omitempty,max=32"`
	SpecialRequests string           `json:"specialRequests,omitempty" validate:"omitempty,max=1000"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type UpdateStatusRequest struct {
	Status model.BookingStatus `json:"status" validate:"required,oneof=confirmed completed cancelled"`
}

// ListQuery carries the booking list filters. Staff-only filters are
// ignored for customers.
type ListQuery struct {
	Status        model.BookingStatus
	PaymentStatus model.PaymentStatus
	Attraction    string
	User          string
	Reference     string
	From          *time.Time
	To            *time.Time
	Tenant        *primitive.ObjectID
	Page          int
	Limit         int
}

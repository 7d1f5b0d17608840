package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusRefunded  BookingStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

type Booking struct {
	ID              primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Reference       string              `json:"reference" bson:"reference"`
	User            *primitive.ObjectID `json:"user,omitempty" bson:"user,omitempty"`
	Guest           *GuestInfo          `json:"guest,omitempty" bson:"guest,omitempty"`
	Attraction      primitive.ObjectID  `json:"attraction" bson:"attraction"`
	AttractionTitle string              `json:"attractionTitle" bson:"attractionTitle"`
	Tenant          *primitive.ObjectID `json:"tenant,omitempty" bson:"tenant,omitempty"`
	BookingDate     time.Time           `json:"bookingDate" bson:"bookingDate"`
	TimeSlot        string              `json:"timeSlot,omitempty" bson:"timeSlot,omitempty"`
	Items           []BookingItem       `json:"items" bson:"items"`
	Subtotal        float64             `json:"subtotal" bson:"subtotal"`
	Fees            float64             `json:"fees" bson:"fees"`
	Discount        float64             `json:"discount" bson:"discount"`
	Total           float64             `json:"total" bson:"total"`
	Currency        string              `json:"currency" bson:"currency"`
	PromoCode       string              `json:"promoCode,omitempty" bson:"promoCode,omitempty"`
	Status          BookingStatus       `json:"status" bson:"status"`
	PaymentStatus   PaymentStatus       `json:"paymentStatus" bson:"paymentStatus"`
	PaymentIntentID string              `json:"paymentIntentId,omitempty" bson:"paymentIntentId,omitempty"`
	ContactEmail    string              `json:"contactEmail" bson:"contactEmail"`
	SpecialRequests string              `json:"specialRequests,omitempty" bson:"specialRequests,omitempty"`
	Cancellation    *Cancellation       `json:"cancellation,omitempty" bson:"cancellation,omitempty"`
	Refund          *Refund             `json:"refund,omitempty" bson:"refund,omitempty"`
	CreatedAt       time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt" bson:"updatedAt"`
}

type GuestInfo struct {
	Name  string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" bson:"email" validate:"required,email"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,max=32"`
}

type BookingItem struct {
	OptionID   string  `json:"optionId" bson:"optionId"`
	Name       string  `json:"name" bson:"name"`
	Quantity   int     `json:"quantity" bson:"quantity"`
	UnitPrice  float64 `json:"unitPrice" bson:"unitPrice"`
	TotalPrice float64 `json:"totalPrice" bson:"totalPrice"`
}

type Cancellation struct {
	Reason      string              `json:"reason,omitempty" bson:"reason,omitempty"`
	CancelledAt time.Time           `json:"cancelledAt" bson:"cancelledAt"`
	CancelledBy *primitive.ObjectID `json:"cancelledBy,omitempty" bson:"cancelledBy,omitempty"`
}

type Refund struct {
	ID         string    `json:"id" bson:"id"`
	Amount     float64   `json:"amount" bson:"amount"`
	Reason     string    `json:"reason,omitempty" bson:"reason,omitempty"`
	RefundedAt time.Time `json:"refundedAt" bson:"refundedAt"`
}

// Cancellable reports whether the booking may still be cancelled.
func (b *Booking) Cancellable() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// OwnedBy reports whether the booking belongs to the given user.
func (b *Booking) OwnedBy(userID primitive.ObjectID) bool {
	return b.User != nil && *b.User == userID
}

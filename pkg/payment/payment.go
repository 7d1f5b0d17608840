package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"

	MetadataBookingID = "bookingId"
	MetadataReference = "reference"
	MetadataTenant    = "tenant"

	RefundReasonRequestedByCustomer = "requested_by_customer"
	RefundReasonDuplicate           = "duplicate"
	RefundReasonFraudulent          = "fraudulent"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrNotConfigured    = errors.New("payment provider not configured")
)

// Gateway is the payment provider used for charging and refunding bookings.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

type IntentRequest struct {
	Amount         int64 // minor units
	Currency       string
	Description    string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

type RefundRequest struct {
	PaymentIntentID string
	Amount          *int64 // minor units, nil refunds the full charge
	Reason          string
	IdempotencyKey  string
}

type RefundResult struct {
	ID     string
	Amount int64
	Status string
}

// WebhookEvent is a verified provider event reduced to the fields bookings
// care about.
type WebhookEvent struct {
	ID              string
	Type            string
	PaymentIntentID string
	Amount          int64
	Currency        string
	Metadata        map[string]string
	FailureMessage  string
}

// RefundReason maps a free text reason onto one the provider accepts.
func RefundReason(reason string) string {
	switch r := strings.ToLower(strings.TrimSpace(reason)); r {
	case RefundReasonDuplicate, RefundReasonFraudulent, RefundReasonRequestedByCustomer:
		return r
	}
	return RefundReasonRequestedByCustomer
}

var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true,
	"KRW": true, "MGA": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

// ToMinorUnits converts a major-unit amount to the provider's integer
// representation, rounding half away from zero.
func ToMinorUnits(amount float64, currency string) int64 {
	d := decimal.NewFromFloat(amount)
	if !zeroDecimalCurrencies[strings.ToUpper(currency)] {
		d = d.Shift(2)
	}
	return d.Round(0).IntPart()
}

func FromMinorUnits(amount int64, currency string) float64 {
	d := decimal.NewFromInt(amount)
	if !zeroDecimalCurrencies[strings.ToUpper(currency)] {
		d = d.Shift(-2)
	}
	f, _ := d.Float64()
	return f
}

// Disabled is used when no provider credentials are configured. Every call
// fails with ErrNotConfigured.
type Disabled struct{}

func (Disabled) CreateIntent(context.Context, IntentRequest) (*Intent, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Refund(context.Context, RefundRequest) (*RefundResult, error) {
	return nil, ErrNotConfigured
}

func (Disabled) ParseWebhook([]byte, string) (*WebhookEvent, error) {
	return nil, ErrNotConfigured
}

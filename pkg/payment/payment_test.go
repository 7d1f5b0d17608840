package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts.Unix(), payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   float64
		currency string
		want     int64
	}{
		{105.0, "USD", 10500},
		{19.99, "usd", 1999},
		{0.1 + 0.2, "EUR", 30},
		{2.675, "USD", 268},
		{1500, "JPY", 1500},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v %s", tt.amount, tt.currency), func(t *testing.T) {
			assert.Equal(t, tt.want, ToMinorUnits(tt.amount, tt.currency))
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	assert.Equal(t, 19.99, FromMinorUnits(1999, "USD"))
	assert.Equal(t, 1500.0, FromMinorUnits(1500, "JPY"))
}

func TestStripeGateway_ParseWebhook_Succeeded(t *testing.T) {
	g := NewStripeGateway("sk_test_dummy", testWebhookSecret)
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_123",
			"object": "payment_intent",
			"amount": 10500,
			"currency": "usd",
			"metadata": {"bookingId": "665f1c2e9b1d4a0012ab34cd", "reference": "TB-AB12CD34"}
		}}
	}`)

	evt, err := g.ParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, evt.Type)
	assert.Equal(t, "pi_123", evt.PaymentIntentID)
	assert.Equal(t, int64(10500), evt.Amount)
	assert.Equal(t, "665f1c2e9b1d4a0012ab34cd", evt.Metadata[MetadataBookingID])
}

func TestStripeGateway_ParseWebhook_Failed(t *testing.T) {
	g := NewStripeGateway("sk_test_dummy", testWebhookSecret)
	payload := []byte(`{"id":"evt_2","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_9","object":"payment_intent","last_payment_error":{"message":"Your card was declined."}}}}`)

	evt, err := g.ParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, evt.Type)
	assert.Equal(t, "Your card was declined.", evt.FailureMessage)
}

func TestStripeGateway_ParseWebhook_OtherEvent(t *testing.T) {
	g := NewStripeGateway("sk_test_dummy", testWebhookSecret)
	payload := []byte(`{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)

	evt, err := g.ParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "customer.created", evt.Type)
	assert.Empty(t, evt.PaymentIntentID)
}

func TestStripeGateway_ParseWebhook_RejectsBadSignature(t *testing.T) {
	g := NewStripeGateway("sk_test_dummy", testWebhookSecret)
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)

	_, err := g.ParseWebhook(payload, signPayload(payload, "whsec_other", time.Now()))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = g.ParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidSignature, "stale timestamps are rejected")

	_, err = g.ParseWebhook(payload, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDisabled(t *testing.T) {
	var g Gateway = Disabled{}
	_, err := g.CreateIntent(context.Background(), IntentRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = g.Refund(context.Background(), RefundRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRefundReason(t *testing.T) {
	assert.Equal(t, RefundReasonDuplicate, RefundReason(" Duplicate "))
	assert.Equal(t, RefundReasonFraudulent, RefundReason("fraudulent"))
	assert.Equal(t, RefundReasonRequestedByCustomer, RefundReason("plans changed"))
	assert.Equal(t, RefundReasonRequestedByCustomer, RefundReason(""))
}

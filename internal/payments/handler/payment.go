package handler

import (
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tourhub/internal/payments/service"
	"tourhub/pkg/auth"
	apperrors "tourhub/pkg/errors"
	httputil "tourhub/pkg/http"
	"tourhub/pkg/logger"
	"tourhub/pkg/middleware"
	"tourhub/pkg/model"
)

const (
	WebhookPath     = "/api/v1/payments/webhook"
	SignatureHeader = "Stripe-Signature"

	maxWebhookBytes = 1 << 16
)

type PaymentHandler struct {
	service service.PaymentService
	authn   middleware.Authenticator
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, authn middleware.Authenticator, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		authn:   authn,
		log:     log,
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments/create-intent", middleware.Route(h.CreateIntent, middleware.OptionalAuth(h.authn)))
	router.POST(WebhookPath, h.Webhook)
	router.POST("/api/v1/payments/refund/:bookingId", middleware.Route(h.Refund,
		middleware.Authenticate(h.authn),
		middleware.RequireRoles(model.BookingManagerRoles...),
	))
}

func (h *PaymentHandler) fail(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.CreateIntentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "CreateIntent", err)
		return
	}

	intent, err := h.service.CreateIntent(r.Context(), principal(r), &req)
	if err != nil {
		h.fail(w, "CreateIntent", err)
		return
	}

	if err := httputil.WriteSuccess(w, intent); err != nil {
		h.log.Error("failed to write success response", "handler", "CreateIntent", "operation", "WriteSuccess", "error", err)
	}
}

// Webhook needs the raw body for signature verification, so it is exempt
// from the JSON content type check.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes+1))
	if err != nil {
		h.fail(w, "Webhook", apperrors.InvalidInput("failed to read webhook body"))
		return
	}
	if len(payload) > maxWebhookBytes {
		h.fail(w, "Webhook", apperrors.New(apperrors.CodeBadRequest, "Webhook payload too large", http.StatusRequestEntityTooLarge))
		return
	}

	if err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get(SignatureHeader)); err != nil {
		h.fail(w, "Webhook", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Webhook", "operation", "WriteJSON", "error", err)
	}
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req service.RefundRequest
	if err := httputil.DecodeOptionalJSON(r, &req); err != nil {
		h.fail(w, "Refund", err)
		return
	}

	booking, err := h.service.Refund(r.Context(), principal(r), ps.ByName("bookingId"), &req)
	if err != nil {
		h.fail(w, "Refund", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Booking refunded", booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Refund", "operation", "WriteSuccess", "error", err)
	}
}

package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tourhub/internal/bookings/service"
	"tourhub/pkg/auth"
	httputil "tourhub/pkg/http"
	"tourhub/pkg/logger"
	"tourhub/pkg/middleware"
	"tourhub/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	authn   middleware.Authenticator
	tenants middleware.TenantResolver
	log     *logger.Logger
}

func NewBookingHandler(
	service service.BookingService,
	authn middleware.Authenticator,
	tenants middleware.TenantResolver,
	log *logger.Logger,
) *BookingHandler {
	return &BookingHandler{
		service: service,
		authn:   authn,
		tenants: tenants,
		log:     log,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	authn := middleware.Authenticate(h.authn)
	tenant := middleware.ResolveTenant(h.tenants, h.log)

	router.POST("/api/v1/bookings", middleware.Route(h.Create, middleware.OptionalAuth(h.authn), tenant))
	router.GET("/api/v1/bookings", middleware.Route(h.List, authn, tenant))
	router.GET("/api/v1/bookings/me", middleware.Route(h.Mine, authn))
	router.GET("/api/v1/bookings/reference/:reference", middleware.Route(h.Lookup))
	router.GET("/api/v1/bookings/id/:id", middleware.Route(h.GetByID, authn))
	router.POST("/api/v1/bookings/id/:id/cancel", middleware.Route(h.Cancel, authn))
	router.PATCH("/api/v1/bookings/id/:id/status", middleware.Route(h.UpdateStatus, authn, middleware.RequireRoles(model.BookingManagerRoles...)))
}

func (h *BookingHandler) fail(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.CreateBookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Create", err)
		return
	}

	tenant, _ := middleware.TenantFrom(r.Context())
	booking, err := h.service.Create(r.Context(), principal(r), tenant, &req)
	if err != nil {
		h.fail(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, "Booking created", booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) listQuery(r *http.Request) (service.ListQuery, error) {
	page, err := httputil.ExtractPage(r)
	if err != nil {
		return service.ListQuery{}, err
	}
	from, err := httputil.QueryDate(r, "from")
	if err != nil {
		return service.ListQuery{}, err
	}
	to, err := httputil.QueryDate(r, "to")
	if err != nil {
		return service.ListQuery{}, err
	}

	return service.ListQuery{
		Status:        model.BookingStatus(httputil.QueryString(r, "status")),
		PaymentStatus: model.PaymentStatus(httputil.QueryString(r, "paymentStatus")),
		Attraction:    httputil.QueryString(r, "attraction"),
		User:          httputil.QueryString(r, "user"),
		Reference:     httputil.QueryString(r, "reference"),
		From:          from,
		To:            to,
		Tenant:        middleware.TenantIDFrom(r.Context()),
		Page:          page.Page,
		Limit:         page.Limit,
	}, nil
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q, err := h.listQuery(r)
	if err != nil {
		h.fail(w, "List", err)
		return
	}
	h.writeList(w, r, "List", principal(r), q)
}

func (h *BookingHandler) Mine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := httputil.ExtractPage(r)
	if err != nil {
		h.fail(w, "Mine", err)
		return
	}

	// Staff use this endpoint for their own bookings too, so the actor is
	// reduced to a plain customer view.
	actor := principal(r)
	self := &auth.Principal{UserID: actor.UserID, Email: actor.Email, Role: model.RoleCustomer}
	q := service.ListQuery{
		Status: model.BookingStatus(httputil.QueryString(r, "status")),
		Page:   page.Page,
		Limit:  page.Limit,
	}

	h.writeList(w, r, "Mine", self, q)
}

func (h *BookingHandler) writeList(w http.ResponseWriter, r *http.Request, handler string, actor *auth.Principal, q service.ListQuery) {
	bookings, total, err := h.service.List(r.Context(), actor, q)
	if err != nil {
		h.fail(w, handler, err)
		return
	}
	if err := httputil.WritePaginated(w, bookings, httputil.NewPagination(q.Page, q.Limit, total)); err != nil {
		h.log.Error("failed to write paginated response", "handler", handler, "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Get(r.Context(), principal(r), ps.ByName("id"))
	if err != nil {
		h.fail(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Lookup(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Lookup(r.Context(), ps.ByName("reference"), httputil.QueryString(r, "email"))
	if err != nil {
		h.fail(w, "Lookup", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Lookup", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req service.CancelRequest
	if err := httputil.DecodeOptionalJSON(r, &req); err != nil {
		h.fail(w, "Cancel", err)
		return
	}

	booking, err := h.service.Cancel(r.Context(), principal(r), ps.ByName("id"), &req)
	if err != nil {
		h.fail(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Booking cancelled", booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req service.UpdateStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "UpdateStatus", err)
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), principal(r), ps.ByName("id"), &req)
	if err != nil {
		h.fail(w, "UpdateStatus", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Booking status updated", booking); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "operation", "WriteSuccess", "error", err)
	}
}

package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tourhub/internal/promocodes/service"
	"tourhub/pkg/auth"
	httputil "tourhub/pkg/http"
	"tourhub/pkg/logger"
	"tourhub/pkg/middleware"
	"tourhub/pkg/model"
)

type PromoCodeHandler struct {
	service service.PromoCodeService
	authn   middleware.Authenticator
	tenants middleware.TenantResolver
	log     *logger.Logger
}

func NewPromoCodeHandler(
	service service.PromoCodeService,
	authn middleware.Authenticator,
	tenants middleware.TenantResolver,
	log *logger.Logger,
) *PromoCodeHandler {
	return &PromoCodeHandler{
		service: service,
		authn:   authn,
		tenants: tenants,
		log:     log,
	}
}

func (h *PromoCodeHandler) RegisterRoutes(router *httprouter.Router) {
	authn := middleware.Authenticate(h.authn)
	managers := middleware.RequireRoles(model.BookingManagerRoles...)

	router.POST("/api/v1/promo-codes/validate", middleware.Route(h.Validate, middleware.ResolveTenant(h.tenants, h.log)))

	router.GET("/api/v1/promo-codes", middleware.Route(h.List, authn, managers))
	router.POST("/api/v1/promo-codes", middleware.Route(h.Create, authn, managers))
	router.GET("/api/v1/promo-codes/id/:id", middleware.Route(h.GetByID, authn, managers))
	router.PATCH("/api/v1/promo-codes/id/:id", middleware.Route(h.Update, authn, managers))
	router.DELETE("/api/v1/promo-codes/id/:id", middleware.Route(h.Delete, authn, managers))
}

func (h *PromoCodeHandler) fail(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (h *PromoCodeHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := httputil.ExtractPage(r)
	if err != nil {
		h.fail(w, "List", err)
		return
	}
	active, err := httputil.QueryBool(r, "active")
	if err != nil {
		h.fail(w, "List", err)
		return
	}

	codes, total, err := h.service.List(r.Context(), principal(r), httputil.QueryString(r, "search"), active, page.Page, page.Limit)
	if err != nil {
		h.fail(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, codes, httputil.NewPagination(page.Page, page.Limit, total)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *PromoCodeHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, err := h.service.GetByID(r.Context(), principal(r), ps.ByName("id"))
	if err != nil {
		h.fail(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, p); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PromoCodeHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.PromoCodeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Create", err)
		return
	}

	p, err := h.service.Create(r.Context(), principal(r), &req)
	if err != nil {
		h.fail(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, "Promo code created", p); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *PromoCodeHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req service.UpdatePromoCodeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Update", err)
		return
	}

	p, err := h.service.Update(r.Context(), principal(r), ps.ByName("id"), &req)
	if err != nil {
		h.fail(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Promo code updated", p); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PromoCodeHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), principal(r), ps.ByName("id")); err != nil {
		h.fail(w, "Delete", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Promo code deleted", nil); err != nil {
		h.log.Error("failed to write success response", "handler", "Delete", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PromoCodeHandler) Validate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.ValidateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Validate", err)
		return
	}

	evaluation, err := h.service.Validate(r.Context(), &req, middleware.TenantIDFrom(r.Context()))
	if err != nil {
		h.fail(w, "Validate", err)
		return
	}

	if err := httputil.WriteSuccess(w, evaluation); err != nil {
		h.log.Error("failed to write success response", "handler", "Validate", "operation", "WriteSuccess", "error", err)
	}
}

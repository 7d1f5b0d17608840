package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tourhub/internal/tenants/service"
	"tourhub/pkg/auth"
	apperrors "tourhub/pkg/errors"
	httputil "tourhub/pkg/http"
	"tourhub/pkg/logger"
	"tourhub/pkg/middleware"
	"tourhub/pkg/model"
)

type TenantHandler struct {
	service service.TenantService
	authn   middleware.Authenticator
	log     *logger.Logger
}

func NewTenantHandler(service service.TenantService, authn middleware.Authenticator, log *logger.Logger) *TenantHandler {
	return &TenantHandler{
		service: service,
		authn:   authn,
		log:     log,
	}
}

func (h *TenantHandler) RegisterRoutes(router *httprouter.Router) {
	authn := middleware.Authenticate(h.authn)
	superAdmin := middleware.RequireRoles(model.RoleSuperAdmin)
	admins := middleware.RequireRoles(model.AdminRoles...)

	router.GET("/api/v1/tenants/current", middleware.Route(h.Current,
		middleware.ResolveTenant(h.service, h.log), middleware.RequireTenant()))

	router.GET("/api/v1/tenants", middleware.Route(h.List, authn, admins))
	router.POST("/api/v1/tenants", middleware.Route(h.Create, authn, superAdmin))
	router.GET("/api/v1/tenants/id/:id", middleware.Route(h.GetByID, authn, admins))
	router.PATCH("/api/v1/tenants/id/:id", middleware.Route(h.Update, authn, admins))
	router.DELETE("/api/v1/tenants/id/:id", middleware.Route(h.Delete, authn, superAdmin))
}

func (h *TenantHandler) fail(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *TenantHandler) Current(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	t, _ := middleware.TenantFrom(r.Context())
	if err := httputil.WriteSuccess(w, t); err != nil {
		h.log.Error("failed to write success response", "handler", "Current", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.fail(w, "List", apperrors.Unauthorized("Authentication required"))
		return
	}
	page, err := httputil.ExtractPage(r)
	if err != nil {
		h.fail(w, "List", err)
		return
	}

	tenants, total, err := h.service.List(r.Context(), actor,
		httputil.QueryString(r, "search"),
		model.TenantStatus(httputil.QueryString(r, "status")),
		page.Page, page.Limit,
	)
	if err != nil {
		h.fail(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, tenants, httputil.NewPagination(page.Page, page.Limit, total)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *TenantHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.fail(w, "GetByID", apperrors.Unauthorized("Authentication required"))
		return
	}

	t, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.fail(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, t); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.CreateTenantRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Create", err)
		return
	}

	t, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.fail(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, "Tenant created", t); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.fail(w, "Update", apperrors.Unauthorized("Authentication required"))
		return
	}
	var req service.UpdateTenantRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Update", err)
		return
	}

	t, err := h.service.Update(r.Context(), actor, ps.ByName("id"), &req)
	if err != nil {
		h.fail(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Tenant updated", t); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.fail(w, "Delete", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Tenant deleted", nil); err != nil {
		h.log.Error("failed to write success response", "handler", "Delete", "operation", "WriteSuccess", "error", err)
	}
}

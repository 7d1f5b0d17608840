package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tourhub/internal/attractions/service"
	"tourhub/pkg/auth"
	httputil "tourhub/pkg/http"
	"tourhub/pkg/logger"
	"tourhub/pkg/middleware"
	"tourhub/pkg/model"
)

type AttractionHandler struct {
	service service.AttractionService
	authn   middleware.Authenticator
	tenants middleware.TenantResolver
	log     *logger.Logger
}

func NewAttractionHandler(
	service service.AttractionService,
	authn middleware.Authenticator,
	tenants middleware.TenantResolver,
	log *logger.Logger,
) *AttractionHandler {
	return &AttractionHandler{
		service: service,
		authn:   authn,
		tenants: tenants,
		log:     log,
	}
}

func (h *AttractionHandler) RegisterRoutes(router *httprouter.Router) {
	optional := middleware.OptionalAuth(h.authn)
	tenant := middleware.ResolveTenant(h.tenants, h.log)
	authn := middleware.Authenticate(h.authn)
	editors := middleware.RequireRoles(model.CatalogEditorRoles...)

	router.GET("/api/v1/attractions", middleware.Route(h.List, optional, tenant))
	router.GET("/api/v1/attractions/:ref", middleware.Route(h.Get, optional, tenant))
	router.GET("/api/v1/attractions/:ref/availability", middleware.Route(h.Availability, tenant))
	router.POST("/api/v1/attractions", middleware.Route(h.Create, authn, editors))
	router.PATCH("/api/v1/attractions/:ref", middleware.Route(h.Update, authn, editors))
	router.DELETE("/api/v1/attractions/:ref", middleware.Route(h.Delete, authn, editors))
}

func (h *AttractionHandler) fail(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

// principal returns nil for anonymous callers.
func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func listQuery(r *http.Request) (service.ListQuery, error) {
	page, err := httputil.ExtractPage(r)
	if err != nil {
		return service.ListQuery{}, err
	}
	minPrice, err := httputil.QueryFloat(r, "minPrice")
	if err != nil {
		return service.ListQuery{}, err
	}
	maxPrice, err := httputil.QueryFloat(r, "maxPrice")
	if err != nil {
		return service.ListQuery{}, err
	}
	featured, err := httputil.QueryBool(r, "featured")
	if err != nil {
		return service.ListQuery{}, err
	}

	return service.ListQuery{
		Destination: httputil.QueryString(r, "destination"),
		Category:    httputil.QueryString(r, "category"),
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
		Search:      httputil.QueryString(r, "search"),
		Featured:    featured,
		Badge:       httputil.QueryString(r, "badge"),
		Status:      model.AttractionStatus(httputil.QueryString(r, "status")),
		Sort:        httputil.QueryString(r, "sort"),
		Tenant:      middleware.TenantIDFrom(r.Context()),
		Page:        page.Page,
		Limit:       page.Limit,
	}, nil
}

func (h *AttractionHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q, err := listQuery(r)
	if err != nil {
		h.fail(w, "List", err)
		return
	}

	attractions, total, err := h.service.List(r.Context(), principal(r), q)
	if err != nil {
		h.fail(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, attractions, httputil.NewPagination(q.Page, q.Limit, total)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *AttractionHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := h.service.Get(r.Context(), principal(r), ps.ByName("ref"), middleware.TenantIDFrom(r.Context()))
	if err != nil {
		h.fail(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, a); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AttractionHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	from, err := httputil.QueryDate(r, "from")
	if err != nil {
		h.fail(w, "Availability", err)
		return
	}
	days, err := httputil.QueryInt(r, "days", service.DefaultAvailabilityDays)
	if err != nil {
		h.fail(w, "Availability", err)
		return
	}

	availability, err := h.service.Availability(r.Context(), ps.ByName("ref"), middleware.TenantIDFrom(r.Context()), from, days)
	if err != nil {
		h.fail(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AttractionHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.AttractionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Create", err)
		return
	}

	a, err := h.service.Create(r.Context(), principal(r), &req)
	if err != nil {
		h.fail(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, "Attraction created", a); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *AttractionHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req service.UpdateAttractionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Update", err)
		return
	}

	a, err := h.service.Update(r.Context(), principal(r), ps.ByName("ref"), &req)
	if err != nil {
		h.fail(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Attraction updated", a); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AttractionHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Archive(r.Context(), principal(r), ps.ByName("ref")); err != nil {
		h.fail(w, "Delete", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Attraction archived", nil); err != nil {
		h.log.Error("failed to write success response", "handler", "Delete", "operation", "WriteSuccess", "error", err)
	}
}

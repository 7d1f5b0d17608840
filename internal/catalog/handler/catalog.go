package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tourhub/internal/catalog/repository"
	"tourhub/internal/catalog/service"
	"tourhub/pkg/auth"
	httputil "tourhub/pkg/http"
	"tourhub/pkg/logger"
	"tourhub/pkg/middleware"
	"tourhub/pkg/model"
)

// CatalogHandler serves categories and destinations.
type CatalogHandler struct {
	categories   service.CategoryService
	destinations service.DestinationService
	authn        middleware.Authenticator
	log          *logger.Logger
}

func NewCatalogHandler(
	categories service.CategoryService,
	destinations service.DestinationService,
	authn middleware.Authenticator,
	log *logger.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		categories:   categories,
		destinations: destinations,
		authn:        authn,
		log:          log,
	}
}

func (h *CatalogHandler) RegisterRoutes(router *httprouter.Router) {
	optional := middleware.OptionalAuth(h.authn)
	editors := []middleware.RouteMiddleware{
		middleware.Authenticate(h.authn),
		middleware.RequireRoles(model.CatalogEditorRoles...),
	}

	router.GET("/api/v1/categories", middleware.Route(h.ListCategories, optional))
	router.GET("/api/v1/categories/:ref", middleware.Route(h.GetCategory, optional))
	router.POST("/api/v1/categories", middleware.Route(h.CreateCategory, editors...))
	router.PATCH("/api/v1/categories/:ref", middleware.Route(h.UpdateCategory, editors...))
	router.DELETE("/api/v1/categories/:ref", middleware.Route(h.DeleteCategory, editors...))

	router.GET("/api/v1/destinations", middleware.Route(h.ListDestinations, optional))
	router.GET("/api/v1/destinations/:ref", middleware.Route(h.GetDestination, optional))
	router.POST("/api/v1/destinations", middleware.Route(h.CreateDestination, editors...))
	router.PATCH("/api/v1/destinations/:ref", middleware.Route(h.UpdateDestination, editors...))
	router.DELETE("/api/v1/destinations/:ref", middleware.Route(h.DeleteDestination, editors...))
}

func (h *CatalogHandler) fail(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *CatalogHandler) ok(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

// activeOnly hides inactive entries from everyone but staff asking for them.
func activeOnly(r *http.Request) bool {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok || !p.IsStaff() {
		return true
	}
	return httputil.QueryString(r, "includeInactive") != "true"
}

func listFilter(r *http.Request) (repository.ListFilter, error) {
	featured, err := httputil.QueryBool(r, "featured")
	if err != nil {
		return repository.ListFilter{}, err
	}
	return repository.ListFilter{
		ActiveOnly: activeOnly(r),
		Search:     httputil.QueryString(r, "search"),
		Featured:   featured,
		Country:    httputil.QueryString(r, "country"),
	}, nil
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := httputil.ExtractPage(r)
	if err != nil {
		h.fail(w, "ListCategories", err)
		return
	}
	f, err := listFilter(r)
	if err != nil {
		h.fail(w, "ListCategories", err)
		return
	}
	f.Featured, f.Country = nil, ""

	items, total, err := h.categories.List(r.Context(), f, page.Page, page.Limit)
	if err != nil {
		h.fail(w, "ListCategories", err)
		return
	}
	if err := httputil.WritePaginated(w, items, httputil.NewPagination(page.Page, page.Limit, total)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListCategories", "operation", "WritePaginated", "error", err)
	}
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	c, err := h.categories.Get(r.Context(), ps.ByName("ref"), activeOnly(r))
	if err != nil {
		h.fail(w, "GetCategory", err)
		return
	}
	h.ok(w, "GetCategory", c)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.CategoryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "CreateCategory", err)
		return
	}
	c, err := h.categories.Create(r.Context(), &req)
	if err != nil {
		h.fail(w, "CreateCategory", err)
		return
	}
	if err := httputil.WriteCreated(w, "Category created", c); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateCategory", "operation", "WriteCreated", "error", err)
	}
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req service.CategoryUpdate
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "UpdateCategory", err)
		return
	}
	c, err := h.categories.Update(r.Context(), ps.ByName("ref"), &req)
	if err != nil {
		h.fail(w, "UpdateCategory", err)
		return
	}
	h.ok(w, "UpdateCategory", c)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.categories.Delete(r.Context(), ps.ByName("ref")); err != nil {
		h.fail(w, "DeleteCategory", err)
		return
	}
	if err := httputil.WriteSuccessMessage(w, "Category deleted", nil); err != nil {
		h.log.Error("failed to write success response", "handler", "DeleteCategory", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CatalogHandler) ListDestinations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := httputil.ExtractPage(r)
	if err != nil {
		h.fail(w, "ListDestinations", err)
		return
	}
	f, err := listFilter(r)
	if err != nil {
		h.fail(w, "ListDestinations", err)
		return
	}

	items, total, err := h.destinations.List(r.Context(), f, page.Page, page.Limit)
	if err != nil {
		h.fail(w, "ListDestinations", err)
		return
	}
	if err := httputil.WritePaginated(w, items, httputil.NewPagination(page.Page, page.Limit, total)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListDestinations", "operation", "WritePaginated", "error", err)
	}
}

func (h *CatalogHandler) GetDestination(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, err := h.destinations.Get(r.Context(), ps.ByName("ref"), activeOnly(r))
	if err != nil {
		h.fail(w, "GetDestination", err)
		return
	}
	h.ok(w, "GetDestination", d)
}

func (h *CatalogHandler) CreateDestination(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.DestinationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "CreateDestination", err)
		return
	}
	d, err := h.destinations.Create(r.Context(), &req)
	if err != nil {
		h.fail(w, "CreateDestination", err)
		return
	}
	if err := httputil.WriteCreated(w, "Destination created", d); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateDestination", "operation", "WriteCreated", "error", err)
	}
}

func (h *CatalogHandler) UpdateDestination(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req service.DestinationUpdate
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "UpdateDestination", err)
		return
	}
	d, err := h.destinations.Update(r.Context(), ps.ByName("ref"), &req)
	if err != nil {
		h.fail(w, "UpdateDestination", err)
		return
	}
	h.ok(w, "UpdateDestination", d)
}

func (h *CatalogHandler) DeleteDestination(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.destinations.Delete(r.Context(), ps.ByName("ref")); err != nil {
		h.fail(w, "DeleteDestination", err)
		return
	}
	if err := httputil.WriteSuccessMessage(w, "Destination deleted", nil); err != nil {
		h.log.Error("failed to write success response", "handler", "DeleteDestination", "operation", "WriteSuccess", "error", err)
	}
}

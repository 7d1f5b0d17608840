package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tourhub/internal/users/service"
	"tourhub/pkg/auth"
	apperrors "tourhub/pkg/errors"
	httputil "tourhub/pkg/http"
	"tourhub/pkg/logger"
	"tourhub/pkg/middleware"
	"tourhub/pkg/model"
)

type UserHandler struct {
	service service.UserService
	authn   middleware.Authenticator
	log     *logger.Logger
}

func NewUserHandler(service service.UserService, authn middleware.Authenticator, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		authn:   authn,
		log:     log,
	}
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	admin := []middleware.RouteMiddleware{
		middleware.Authenticate(h.authn),
		middleware.RequireRoles(model.AdminRoles...),
	}
	self := middleware.Authenticate(h.authn)

	router.GET("/api/v1/users", middleware.Route(h.List, admin...))
	router.POST("/api/v1/users", middleware.Route(h.Create, admin...))
	router.GET("/api/v1/users/id/:id", middleware.Route(h.GetByID, admin...))
	router.PATCH("/api/v1/users/id/:id", middleware.Route(h.Update, admin...))
	router.DELETE("/api/v1/users/id/:id", middleware.Route(h.Delete, admin...))

	router.GET("/api/v1/users/me/wishlist", middleware.Route(h.Wishlist, self))
	router.POST("/api/v1/users/me/wishlist/:attractionId", middleware.Route(h.AddToWishlist, self))
	router.DELETE("/api/v1/users/me/wishlist/:attractionId", middleware.Route(h.RemoveFromWishlist, self))
}

func (h *UserHandler) fail(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func principal(r *http.Request) (*auth.Principal, error) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	return p, nil
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := principal(r)
	if err != nil {
		h.fail(w, "List", err)
		return
	}
	page, err := httputil.ExtractPage(r)
	if err != nil {
		h.fail(w, "List", err)
		return
	}

	users, total, err := h.service.List(r.Context(), actor, service.ListQuery{
		Role:   model.Role(httputil.QueryString(r, "role")),
		Status: model.UserStatus(httputil.QueryString(r, "status")),
		Search: httputil.QueryString(r, "search"),
		Tenant: httputil.QueryString(r, "tenant"),
		Sort:   httputil.QueryString(r, "sort"),
		Page:   page.Page,
		Limit:  page.Limit,
	})
	if err != nil {
		h.fail(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, users, httputil.NewPagination(page.Page, page.Limit, total)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := principal(r)
	if err != nil {
		h.fail(w, "GetByID", err)
		return
	}

	u, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.fail(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, u); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := principal(r)
	if err != nil {
		h.fail(w, "Create", err)
		return
	}
	var req service.CreateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Create", err)
		return
	}

	u, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		h.fail(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, "User created", u); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := principal(r)
	if err != nil {
		h.fail(w, "Update", err)
		return
	}
	var req service.UpdateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Update", err)
		return
	}

	u, err := h.service.Update(r.Context(), actor, ps.ByName("id"), &req)
	if err != nil {
		h.fail(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "User updated", u); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := principal(r)
	if err != nil {
		h.fail(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), actor, ps.ByName("id")); err != nil {
		h.fail(w, "Delete", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "User deactivated", nil); err != nil {
		h.log.Error("failed to write success response", "handler", "Delete", "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) Wishlist(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := principal(r)
	if err != nil {
		h.fail(w, "Wishlist", err)
		return
	}

	items, err := h.service.Wishlist(r.Context(), actor.UserID)
	if err != nil {
		h.fail(w, "Wishlist", err)
		return
	}

	if err := httputil.WriteSuccess(w, items); err != nil {
		h.log.Error("failed to write success response", "handler", "Wishlist", "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) AddToWishlist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := principal(r)
	if err != nil {
		h.fail(w, "AddToWishlist", err)
		return
	}

	if err := h.service.AddToWishlist(r.Context(), actor.UserID, ps.ByName("attractionId")); err != nil {
		h.fail(w, "AddToWishlist", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Added to wishlist", nil); err != nil {
		h.log.Error("failed to write success response", "handler", "AddToWishlist", "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := principal(r)
	if err != nil {
		h.fail(w, "RemoveFromWishlist", err)
		return
	}

	if err := h.service.RemoveFromWishlist(r.Context(), actor.UserID, ps.ByName("attractionId")); err != nil {
		h.fail(w, "RemoveFromWishlist", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Removed from wishlist", nil); err != nil {
		h.log.Error("failed to write success response", "handler", "RemoveFromWishlist", "operation", "WriteSuccess", "error", err)
	}
}

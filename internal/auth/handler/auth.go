package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"tourhub/internal/auth/service"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	apperrors "tourhub/pkg/errors"
	httputil "tourhub/pkg/http"
	"tourhub/pkg/logger"
	"tourhub/pkg/middleware"
	"tourhub/pkg/model"
)

const refreshPath = "/api/v1/auth/refresh"

type AuthHandler struct {
	service service.AuthService
	tenants middleware.TenantResolver
	cfg     *config.Config
	log     *logger.Logger
}

func NewAuthHandler(service service.AuthService, tenants middleware.TenantResolver, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		service: service,
		tenants: tenants,
		cfg:     cfg,
		log:     cfg.Log,
	}
}

type sessionResponse struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    time.Time   `json:"expiresAt"`
}

func (h *AuthHandler) RegisterRoutes(router *httprouter.Router) {
	authn := middleware.Authenticate(h.service)

	router.POST("/api/v1/auth/register", middleware.Route(h.Register, middleware.ResolveTenant(h.tenants, h.log)))
	router.POST("/api/v1/auth/login", h.Login)
	router.POST(refreshPath, h.Refresh)
	router.POST("/api/v1/auth/logout", middleware.Route(h.Logout, middleware.OptionalAuth(h.service)))
	router.POST("/api/v1/auth/forgot-password", h.ForgotPassword)
	router.POST("/api/v1/auth/reset-password", h.ResetPassword)

	router.GET("/api/v1/auth/me", middleware.Route(h.Me, authn))
	router.PATCH("/api/v1/auth/me", middleware.Route(h.UpdateMe, authn))
	router.PUT("/api/v1/auth/me/password", middleware.Route(h.ChangePassword, authn))
}

func (h *AuthHandler) fail(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AuthHandler) cookie(name, value, path string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   h.cfg.CookieDomain,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure || h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	} else {
		c.Expires = expires
	}
	return c
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, s *service.Session) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, s.AccessToken.Token, "/", s.AccessToken.ExpiresAt))
	http.SetCookie(w, h.cookie(middleware.RefreshTokenCookie, s.RefreshToken.Token, refreshPath, s.RefreshToken.ExpiresAt))
}

func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, "", "/", time.Time{}))
	http.SetCookie(w, h.cookie(middleware.RefreshTokenCookie, "", refreshPath, time.Time{}))
}

func toSessionResponse(s *service.Session) sessionResponse {
	return sessionResponse{
		User:         s.User,
		AccessToken:  s.AccessToken.Token,
		RefreshToken: s.RefreshToken.Token,
		ExpiresAt:    s.AccessToken.ExpiresAt,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Register", err)
		return
	}

	session, err := h.service.Register(r.Context(), &req, middleware.TenantIDFrom(r.Context()))
	if err != nil {
		h.fail(w, "Register", err)
		return
	}

	h.setSessionCookies(w, session)
	if err := httputil.WriteCreated(w, "Registration successful", toSessionResponse(session)); err != nil {
		h.log.Error("failed to write created response", "handler", "Register", "operation", "WriteCreated", "error", err)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "Login", err)
		return
	}

	session, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.fail(w, "Login", err)
		return
	}

	h.setSessionCookies(w, session)
	if err := httputil.WriteSuccessMessage(w, "Login successful", toSessionResponse(session)); err != nil {
		h.log.Error("failed to write success response", "handler", "Login", "operation", "WriteSuccess", "error", err)
	}
}

// Refresh takes the refresh token from its cookie, falling back to the body
// for clients that do not keep cookies.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	token := ""
	if c, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req service.RefreshRequest
		if err := httputil.DecodeOptionalJSON(r, &req); err != nil {
			h.fail(w, "Refresh", err)
			return
		}
		token = req.RefreshToken
	}

	session, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		h.clearSessionCookies(w)
		h.fail(w, "Refresh", err)
		return
	}

	h.setSessionCookies(w, session)
	if err := httputil.WriteSuccess(w, toSessionResponse(session)); err != nil {
		h.log.Error("failed to write success response", "handler", "Refresh", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		if err := h.service.Logout(r.Context(), p.UserID); err != nil {
			h.fail(w, "Logout", err)
			return
		}
	}

	h.clearSessionCookies(w)
	if err := httputil.WriteSuccessMessage(w, "Logged out", nil); err != nil {
		h.log.Error("failed to write success response", "handler", "Logout", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.fail(w, "Me", apperrors.Unauthorized("Authentication required"))
		return
	}

	u, err := h.service.Me(r.Context(), p.UserID)
	if err != nil {
		h.fail(w, "Me", err)
		return
	}

	if err := httputil.WriteSuccess(w, u); err != nil {
		h.log.Error("failed to write success response", "handler", "Me", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.fail(w, "UpdateMe", apperrors.Unauthorized("Authentication required"))
		return
	}
	var req service.UpdateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "UpdateMe", err)
		return
	}

	u, err := h.service.UpdateMe(r.Context(), p.UserID, &req)
	if err != nil {
		h.fail(w, "UpdateMe", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Profile updated", u); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateMe", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.fail(w, "ChangePassword", apperrors.Unauthorized("Authentication required"))
		return
	}
	var req service.ChangePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "ChangePassword", err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), p.UserID, &req); err != nil {
		h.fail(w, "ChangePassword", err)
		return
	}

	h.clearSessionCookies(w)
	if err := httputil.WriteSuccessMessage(w, "Password changed, please log in again", nil); err != nil {
		h.log.Error("failed to write success response", "handler", "ChangePassword", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.ForgotPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "ForgotPassword", err)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), &req); err != nil {
		h.fail(w, "ForgotPassword", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "If that email is registered, a reset link has been sent", nil); err != nil {
		h.log.Error("failed to write success response", "handler", "ForgotPassword", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.ResetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, "ResetPassword", err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), &req); err != nil {
		h.fail(w, "ResetPassword", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, "Password has been reset", nil); err != nil {
		h.log.Error("failed to write success response", "handler", "ResetPassword", "operation", "WriteSuccess", "error", err)
	}
}

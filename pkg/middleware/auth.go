package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"tourhub/pkg/auth"
	apperrors "tourhub/pkg/errors"
	httputil "tourhub/pkg/http"
	"tourhub/pkg/model"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Authenticator turns a bearer token into the caller identity, rejecting
// tokens of unknown or inactive users.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// BearerToken extracts the access token from the Authorization header,
// falling back to the accessToken cookie.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate rejects requests without a valid access token.
func Authenticate(a Authenticator) RouteMiddleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			token := BearerToken(r)
			if token == "" {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
				return
			}

			principal, err := a.Authenticate(r.Context(), token)
			if err != nil {
				_ = httputil.WriteError(w, err)
				return
			}

			next(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)), ps)
		}
	}
}

// OptionalAuth attaches the caller identity when a valid token is present
// and otherwise lets the request through anonymously.
func OptionalAuth(a Authenticator) RouteMiddleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			if token := BearerToken(r); token != "" {
				if principal, err := a.Authenticate(r.Context(), token); err == nil {
					r = r.WithContext(auth.WithPrincipal(r.Context(), principal))
				}
			}
			next(w, r, ps)
		}
	}
}

// RequireRoles must run after Authenticate.
func RequireRoles(roles ...model.Role) RouteMiddleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			principal, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
				return
			}
			if !principal.HasRole(roles...) {
				_ = httputil.WriteError(w, apperrors.Forbidden("You do not have permission to perform this action"))
				return
			}
			next(w, r, ps)
		}
	}
}

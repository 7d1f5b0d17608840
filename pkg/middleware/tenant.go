package middleware

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "tourhub/pkg/errors"
	httputil "tourhub/pkg/http"
	"tourhub/pkg/logger"
	"tourhub/pkg/model"
)

const (
	HeaderTenantID   = "X-Tenant-ID"
	QueryParamTenant = "tenant"
)

type tenantKey struct{}

// TenantHint carries the request attributes a tenant can be resolved from,
// in priority order.
type TenantHint struct {
	Header string
	Query  string
	Host   string
}

func (h TenantHint) Empty() bool {
	return h.Header == "" && h.Query == "" && h.Host == ""
}

type TenantResolver interface {
	ResolveTenant(ctx context.Context, hint TenantHint) (*model.Tenant, error)
}

func TenantHintFrom(r *http.Request) TenantHint {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return TenantHint{
		Header: r.Header.Get(HeaderTenantID),
		Query:  r.URL.Query().Get(QueryParamTenant),
		Host:   host,
	}
}

// ResolveTenant attaches the storefront tenant when one can be resolved.
// Requests that match no active tenant continue untenanted.
func ResolveTenant(resolver TenantResolver, log *logger.Logger) RouteMiddleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			hint := TenantHintFrom(r)
			if !hint.Empty() {
				tenant, err := resolver.ResolveTenant(r.Context(), hint)
				if err != nil {
					log.Warn("tenant resolution failed",
						"request_id", RequestIDFrom(r.Context()),
						"error", err,
					)
				} else if tenant != nil {
					r = r.WithContext(WithTenant(r.Context(), tenant))
				}
			}
			next(w, r, ps)
		}
	}
}

// RequireTenant must run after ResolveTenant.
func RequireTenant() RouteMiddleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			if _, ok := TenantFrom(r.Context()); !ok {
				_ = httputil.WriteError(w, apperrors.NotFound("Tenant"))
				return
			}
			next(w, r, ps)
		}
	}
}

func WithTenant(ctx context.Context, t *model.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

func TenantFrom(ctx context.Context) (*model.Tenant, bool) {
	t, ok := ctx.Value(tenantKey{}).(*model.Tenant)
	return t, ok && t != nil
}

// TenantIDFrom returns the resolved tenant id or nil.
func TenantIDFrom(ctx context.Context) *primitive.ObjectID {
	if t, ok := TenantFrom(ctx); ok {
		id := t.ID
		return &id
	}
	return nil
}

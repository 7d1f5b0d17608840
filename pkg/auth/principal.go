package auth

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourhub/pkg/model"
)

type principalKey struct{}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID  primitive.ObjectID
	Email   string
	Role    model.Role
	Tenants []primitive.ObjectID
}

func (p *Principal) IsStaff() bool {
	return p != nil && p.Role.IsStaff()
}

func (p *Principal) HasRole(roles ...model.Role) bool {
	return p != nil && p.Role.In(roles...)
}

// CanManageTenant reports whether the caller administers the tenant.
// Super admins manage every tenant; other staff only their assigned ones.
func (p *Principal) CanManageTenant(tenant primitive.ObjectID) bool {
	if p == nil {
		return false
	}
	if p.Role == model.RoleSuperAdmin {
		return true
	}
	for _, t := range p.Tenants {
		if t == tenant {
			return true
		}
	}
	return false
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

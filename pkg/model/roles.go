package model

type Role string

const (
	RoleSuperAdmin Role = "super-admin"
	RoleBrandAdmin Role = "brand-admin"
	RoleManager    Role = "manager"
	RoleEditor     Role = "editor"
	RoleViewer     Role = "viewer"
	RoleCustomer   Role = "customer"
	RoleGuest      Role = "guest"
)

var AllRoles = []Role{
	RoleSuperAdmin, RoleBrandAdmin, RoleManager, RoleEditor, RoleViewer, RoleCustomer, RoleGuest,
}

// Role groups used for route gating.
var (
	AdminRoles          = []Role{RoleSuperAdmin, RoleBrandAdmin}
	CatalogEditorRoles  = []Role{RoleSuperAdmin, RoleBrandAdmin, RoleManager, RoleEditor}
	BookingManagerRoles = []Role{RoleSuperAdmin, RoleBrandAdmin, RoleManager}
	StaffRoles          = []Role{RoleSuperAdmin, RoleBrandAdmin, RoleManager, RoleEditor, RoleViewer}
)

func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role belongs to back-office users rather than
// shoppers.
func (r Role) IsStaff() bool {
	return r.In(StaffRoles...)
}

func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusPending   UserStatus = "pending"
)

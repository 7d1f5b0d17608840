package service

import (
	"tourhub/pkg/model"
)

type ListQuery struct {
	Role   model.Role
	Status model.UserStatus
	Search string
	Tenant string
	Sort   string
	Page   int
	Limit  int
}

// CreateUserRequest is the admin invite payload. Password is optional; an
// invited user without one stays pending until a password reset.
type CreateUserRequest struct {
	Name     string           `json:"name" validate:"required,min=2,max=100"`
	Email    string           `json:"email" validate:"required,email,max=254"`
	Password string           `json:"password,omitempty" validate:"omitempty,min=8,max_bytes=72"`
	Phone    string           `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role     model.Role       `json:"role" validate:"required"`
	Status   model.UserStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive suspended pending"`
	Tenants  []string         `json:"tenants,omitempty" validate:"omitempty,dive,mongodb"`
}

type UpdateUserRequest struct {
	Name    *string           `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone   *string           `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role    *model.Role       `json:"role,omitempty"`
	Status  *model.UserStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive suspended pending"`
	Tenants []string          `json:"tenants,omitempty" validate:"omitempty,dive,mongodb"`
}

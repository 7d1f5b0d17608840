package service

import (
	"tourhub/pkg/auth"
	"tourhub/pkg/model"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max_bytes=72"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UpdateProfileRequest struct {
	Name        *string                `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone       *string                `json:"phone,omitempty" validate:"omitempty,max=32"`
	Avatar      *string                `json:"avatar,omitempty" validate:"omitempty,url"`
	Preferences *model.UserPreferences `json:"preferences,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max_bytes=72"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max_bytes=72"`
}

// Session is the outcome of a successful register, login or refresh.
type Session struct {
	User         *model.User
	AccessToken  auth.IssuedToken
	RefreshToken auth.IssuedToken
}

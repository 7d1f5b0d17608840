package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name         string               `json:"name" bson:"name"`
	Email        string               `json:"email" bson:"email"`
	PasswordHash string               `json:"-" bson:"password"`
	Phone        string               `json:"phone,omitempty" bson:"phone,omitempty"`
	Avatar       string               `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Role         Role                 `json:"role" bson:"role"`
	Status       UserStatus           `json:"status" bson:"status"`
	Tenants      []primitive.ObjectID `json:"tenants" bson:"tenants"`
	Wishlist     []primitive.ObjectID `json:"wishlist" bson:"wishlist"`
	Preferences  UserPreferences      `json:"preferences" bson:"preferences"`
	Stats        UserStats            `json:"stats" bson:"stats"`

	RefreshTokenHash       string     `json:"-" bson:"refreshTokenHash,omitempty"`
	PasswordResetTokenHash string     `json:"-" bson:"passwordResetToken,omitempty"`
	PasswordResetExpires   *time.Time `json:"-" bson:"passwordResetExpires,omitempty"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" bson:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
}

type UserPreferences struct {
	Language   string `json:"language,omitempty" bson:"language,omitempty" validate:"omitempty,min=2,max=5"`
	Currency   string `json:"currency,omitempty" bson:"currency,omitempty" validate:"omitempty,iso4217"`
	Newsletter bool   `json:"newsletter" bson:"newsletter"`
}

type UserStats struct {
	TotalBookings int     `json:"totalBookings" bson:"totalBookings"`
	TotalSpent    float64 `json:"totalSpent" bson:"totalSpent"`
}

// HasTenant reports whether the user is assigned to the tenant.
func (u *User) HasTenant(id primitive.ObjectID) bool {
	for _, t := range u.Tenants {
		if t == id {
			return true
		}
	}
	return false
}

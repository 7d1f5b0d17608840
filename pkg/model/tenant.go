package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusInactive TenantStatus = "inactive"
)

type Tenant struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	Slug            string             `json:"slug" bson:"slug"`
	Domains         []string           `json:"domains" bson:"domains"`
	Branding        TenantBranding     `json:"branding" bson:"branding"`
	DefaultCurrency string             `json:"defaultCurrency" bson:"defaultCurrency"`
	DefaultLanguage string             `json:"defaultLanguage" bson:"defaultLanguage"`
	Features        TenantFeatures     `json:"features" bson:"features"`
	ContactEmail    string             `json:"contactEmail,omitempty" bson:"contactEmail,omitempty"`
	Status          TenantStatus       `json:"status" bson:"status"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type TenantBranding struct {
	LogoURL        string `json:"logoUrl,omitempty" bson:"logoUrl,omitempty" validate:"omitempty,url"`
	PrimaryColor   string `json:"primaryColor,omitempty" bson:"primaryColor,omitempty" validate:"omitempty,hexcolor"`
	SecondaryColor string `json:"secondaryColor,omitempty" bson:"secondaryColor,omitempty" validate:"omitempty,hexcolor"`
	FontFamily     string `json:"fontFamily,omitempty" bson:"fontFamily,omitempty" validate:"omitempty,max=100"`
}

type TenantFeatures struct {
	Wishlist      bool `json:"wishlist" bson:"wishlist"`
	Reviews       bool `json:"reviews" bson:"reviews"`
	PromoCodes    bool `json:"promoCodes" bson:"promoCodes"`
	GuestCheckout bool `json:"guestCheckout" bson:"guestCheckout"`
}

func DefaultTenantFeatures() TenantFeatures {
	return TenantFeatures{Wishlist: true, Reviews: true, PromoCodes: true, GuestCheckout: true}
}

func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

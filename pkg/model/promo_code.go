package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PromoType string

const (
	PromoTypePercentage PromoType = "percentage"
	PromoTypeFixed      PromoType = "fixed"
)

type PromoCode struct {
	ID             primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Code           string               `json:"code" bson:"code"`
	Description    string               `json:"description,omitempty" bson:"description,omitempty"`
	Type           PromoType            `json:"type" bson:"type"`
	Value          float64              `json:"value" bson:"value"`
	MinOrderAmount float64              `json:"minOrderAmount" bson:"minOrderAmount"`
	MaxDiscount    *float64             `json:"maxDiscount,omitempty" bson:"maxDiscount,omitempty"`
	UsageLimit     *int                 `json:"usageLimit,omitempty" bson:"usageLimit,omitempty"`
	UsedCount      int                  `json:"usedCount" bson:"usedCount"`
	ValidFrom      *time.Time           `json:"validFrom,omitempty" bson:"validFrom,omitempty"`
	ValidUntil     *time.Time           `json:"validUntil,omitempty" bson:"validUntil,omitempty"`
	Tenants        []primitive.ObjectID `json:"tenants" bson:"tenants"`
	IsActive       bool                 `json:"isActive" bson:"isActive"`
	CreatedAt      time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt" bson:"updatedAt"`
}

package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AttractionStatus string

const (
	AttractionStatusActive   AttractionStatus = "active"
	AttractionStatusDraft    AttractionStatus = "draft"
	AttractionStatusArchived AttractionStatus = "archived"
)

type AvailabilityType string

const (
	AvailabilityDaily     AvailabilityType = "daily"
	AvailabilityWeekly    AvailabilityType = "weekly"
	AvailabilityOnRequest AvailabilityType = "on-request"
)

// StandardOptionID names the implicit option of an attraction priced only by
// its base price.
const StandardOptionID = "standard"

type Attraction struct {
	ID               primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Title            string               `json:"title" bson:"title"`
	Slug             string               `json:"slug" bson:"slug"`
	ShortDescription string               `json:"shortDescription,omitempty" bson:"shortDescription,omitempty"`
	Description      string               `json:"description" bson:"description"`
	Highlights       []string             `json:"highlights,omitempty" bson:"highlights,omitempty"`
	Included         []string             `json:"included,omitempty" bson:"included,omitempty"`
	Excluded         []string             `json:"excluded,omitempty" bson:"excluded,omitempty"`
	Images           []Image              `json:"images" bson:"images"`
	Destination      primitive.ObjectID   `json:"destination" bson:"destination"`
	Category         primitive.ObjectID   `json:"category" bson:"category"`
	Pricing          Pricing              `json:"pricing" bson:"pricing"`
	Duration         Duration             `json:"duration" bson:"duration"`
	Availability     AvailabilityPolicy   `json:"availability" bson:"availability"`
	SEO              SEO                  `json:"seo" bson:"seo"`
	Badges           []string             `json:"badges" bson:"badges"`
	Tenants          []primitive.ObjectID `json:"tenants" bson:"tenants"`
	Status           AttractionStatus     `json:"status" bson:"status"`
	Featured         bool                 `json:"featured" bson:"featured"`
	Rating           Rating               `json:"rating" bson:"rating"`
	Stats            AttractionStats      `json:"stats" bson:"stats"`
	CreatedBy        *primitive.ObjectID  `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt        time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt" bson:"updatedAt"`
}

type Image struct {
	URL     string `json:"url" bson:"url" validate:"required,url"`
	Alt     string `json:"alt,omitempty" bson:"alt,omitempty" validate:"omitempty,max=200"`
	IsCover bool   `json:"isCover" bson:"isCover"`
}

type Pricing struct {
	BasePrice float64         `json:"basePrice" bson:"basePrice" validate:"gte=0"`
	Currency  string          `json:"currency" bson:"currency" validate:"required,iso4217"`
	Options   []PricingOption `json:"options" bson:"options" validate:"omitempty,max=20,dive"`
}

type PricingOption struct {
	ID          string  `json:"id" bson:"id" validate:"required,max=50"`
	Name        string  `json:"name" bson:"name" validate:"required,max=100"`
	Description string  `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=500"`
	Price       float64 `json:"price" bson:"price" validate:"gte=0"`
	MinQuantity int     `json:"minQuantity" bson:"minQuantity" validate:"gte=0"`
	MaxQuantity int     `json:"maxQuantity" bson:"maxQuantity" validate:"gte=0"`
}

type Duration struct {
	Value int    `json:"value" bson:"value" validate:"gte=0"`
	Unit  string `json:"unit" bson:"unit" validate:"omitempty,oneof=minutes hours days"`
}

type AvailabilityPolicy struct {
	Type               AvailabilityType `json:"type" bson:"type" validate:"omitempty,oneof=daily weekly on-request"`
	DaysOfWeek         []int            `json:"daysOfWeek,omitempty" bson:"daysOfWeek,omitempty" validate:"omitempty,max=7,dive,min=0,max=6"`
	CapacityPerSlot    int              `json:"capacityPerSlot" bson:"capacityPerSlot" validate:"gte=0"`
	AdvanceBookingDays int              `json:"advanceBookingDays" bson:"advanceBookingDays" validate:"gte=0,lte=730"`
	CutoffHours        int              `json:"cutoffHours" bson:"cutoffHours" validate:"gte=0,lte=720"`
	TimeSlots          []string         `json:"timeSlots,omitempty" bson:"timeSlots,omitempty" validate:"omitempty,max=48,dive,time_slot"`
}

type SEO struct {
	MetaTitle       string   `json:"metaTitle,omitempty" bson:"metaTitle,omitempty" validate:"omitempty,max=70"`
	MetaDescription string   `json:"metaDescription,omitempty" bson:"metaDescription,omitempty" validate:"omitempty,max=160"`
	Keywords        []string `json:"keywords,omitempty" bson:"keywords,omitempty" validate:"omitempty,max=20"`
}

type Rating struct {
	Average float64 `json:"average" bson:"average"`
	Count   int     `json:"count" bson:"count"`
}

type AttractionStats struct {
	BookingCount int `json:"bookingCount" bson:"bookingCount"`
	ViewCount    int `json:"viewCount" bson:"viewCount"`
}

// Option returns the pricing option with the given id. Attractions without
// options expose a single "standard" option at the base price.
func (a *Attraction) Option(id string) (PricingOption, bool) {
	if len(a.Pricing.Options) == 0 {
		if id == StandardOptionID {
			return PricingOption{ID: StandardOptionID, Name: "Standard", Price: a.Pricing.BasePrice}, true
		}
		return PricingOption{}, false
	}
	for _, opt := range a.Pricing.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return PricingOption{}, false
}

// AvailableToTenant reports whether the attraction is sold by the tenant.
// Attractions with no tenant list are shared by every storefront.
func (a *Attraction) AvailableToTenant(tenant *primitive.ObjectID) bool {
	if tenant == nil || len(a.Tenants) == 0 {
		return true
	}
	for _, t := range a.Tenants {
		if t == *tenant {
			return true
		}
	}
	return false
}

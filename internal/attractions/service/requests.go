package service

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourhub/pkg/model"
)

// ListQuery carries the public listing filters. Destination and Category
// accept an id or a slug.
type ListQuery struct {
	Destination string
	Category    string
	MinPrice    *float64
	MaxPrice    *float64
	Search      string
	Featured    *bool
	Badge       string
	Status      model.AttractionStatus
	Sort        string
	Tenant      *primitive.ObjectID
	Page        int
	Limit       int
}

type AttractionRequest struct {
	Title            string                   `json:"title" validate:"required,min=3,max=200"`
	Slug             string                   `json:"slug,omitempty" validate:"omitempty,slug,max=200"`
	ShortDescription string                   `json:"shortDescription,omitempty" validate:"omitempty,max=300"`
	Description      string                   `json:"description" validate:"required,max=10000"`
	Highlights       []string                 `json:"highlights,omitempty" validate:"omitempty,max=20,dive,max=200"`
	Included         []string                 `json:"included,omitempty" validate:"omitempty,max=30,dive,max=200"`
	Excluded         []string                 `json:"excluded,omitempty" validate:"omitempty,max=30,dive,max=200"`
	Images           []model.Image            `json:"images,omitempty" validate:"omitempty,max=30,dive"`
	Destination      string                   `json:"destination" validate:"required"`
	Category         string                   `json:"category" validate:"required"`
	Pricing          model.Pricing            `json:"pricing"`
	Duration         model.Duration           `json:"duration"`
	Availability     model.AvailabilityPolicy `json:"availability"`
	SEO              model.SEO                `json:"seo"`
	Badges           []string                 `json:"badges,omitempty" validate:"omitempty,max=10,dive,max=50"`
	Tenants          []string                 `json:"tenants,omitempty" validate:"omitempty,dive,mongodb"`
	Status           model.AttractionStatus   `json:"status,omitempty" validate:"omitempty,oneof=active draft archived"`
	Featured         bool                     `json:"featured"`
}

// UpdateAttractionRequest replaces nested objects wholesale when present.
type UpdateAttractionRequest struct {
	Title            *string                   `json:"title,omitempty" validate:"omitempty,min=3,max=200"`
	Slug             *string                   `json:"slug,omitempty" validate:"omitempty,slug,max=200"`
	ShortDescription *string                   `json:"shortDescription,omitempty" validate:"omitempty,max=300"`
	Description      *string                   `json:"description,omitempty" validate:"omitempty,max=10000"`
	Highlights       []string                  `json:"highlights,omitempty" validate:"omitempty,max=20,dive,max=200"`
	Included         []string                  `json:"included,omitempty" validate:"omitempty,max=30,dive,max=200"`
	Excluded         []string                  `json:"excluded,omitempty" validate:"omitempty,max=30,dive,max=200"`
	Images           []model.Image             `json:"images,omitempty" validate:"omitempty,max=30,dive"`
	Destination      *string                   `json:"destination,omitempty"`
	Category         *string                   `json:"category,omitempty"`
	Pricing          *model.Pricing            `json:"pricing,omitempty"`
	Duration         *model.Duration           `json:"duration,omitempty"`
	Availability     *model.AvailabilityPolicy `json:"availability,omitempty"`
	SEO              *model.SEO                `json:"seo,omitempty"`
	Badges           []string                  `json:"badges,omitempty" validate:"omitempty,max=10,dive,max=50"`
	Tenants          []string                  `json:"tenants,omitempty" validate:"omitempty,dive,mongodb"`
	Status           *model.AttractionStatus   `json:"status,omitempty" validate:"omitempty,oneof=active draft archived"`
	Featured         *bool                     `json:"featured,omitempty"`
}

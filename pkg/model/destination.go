package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Destination struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Slug        string             `json:"slug" bson:"slug"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Country     string             `json:"country" bson:"country"`
	City        string             `json:"city,omitempty" bson:"city,omitempty"`
	Image       string             `json:"image,omitempty" bson:"image,omitempty"`
	Coordinates *Coordinates       `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	Featured    bool               `json:"featured" bson:"featured"`
	SortOrder   int                `json:"sortOrder" bson:"sortOrder"`
	IsActive    bool               `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat" validate:"latitude"`
	Lng float64 `json:"lng" bson:"lng" validate:"longitude"`
}

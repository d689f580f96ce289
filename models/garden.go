package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Garden struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID primitive.ObjectID `json:"userId" bson:"userId"`

	Name        string `json:"name" bson:"name"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Bed struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID   primitive.ObjectID `json:"userId" bson:"userId"`
	GardenID primitive.ObjectID `json:"gardenId" bson:"gardenId"`

	Name       string `json:"name" bson:"name"`
	GardenName string `json:"gardenName" bson:"gardenName"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Planting links a crop from the plant catalog to a bed. Crop metadata
// needed for rule evaluation is denormalized onto the planting so the
// engine reads one collection per user.
type Planting struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID   primitive.ObjectID `json:"userId" bson:"userId"`
	GardenID primitive.ObjectID `json:"gardenId" bson:"gardenId"`
	BedID    primitive.ObjectID `json:"bedId" bson:"bedId"`
	PlantID  primitive.ObjectID `json:"plantId" bson:"plantId"`

	// Crop metadata (from the plant catalog at planting time)
	CommonName     string `json:"commonName" bson:"commonName"`
	Category       string `json:"category,omitempty" bson:"category,omitempty"`
	DaysToMaturity int    `json:"daysToMaturity,omitempty" bson:"daysToMaturity,omitempty"`

	// Display context for digests
	BedName    string `json:"bedName" bson:"bedName"`
	GardenName string `json:"gardenName" bson:"gardenName"`

	StartDate time.Time  `json:"startDate" bson:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
	IsActive  bool       `json:"isActive" bson:"isActive"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Plant is a catalog entry. The catalog itself is maintained elsewhere;
// the engine only reads display names for focused plants.
type Plant struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CommonName     string             `json:"commonName" bson:"commonName"`
	BotanicalName  string             `json:"botanicalName,omitempty" bson:"botanicalName,omitempty"`
	Category       string             `json:"category,omitempty" bson:"category,omitempty"`
	DaysToMaturity int                `json:"daysToMaturity,omitempty" bson:"daysToMaturity,omitempty"`
}

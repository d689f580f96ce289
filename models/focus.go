package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FocusItem is a user's pinned priority reference. Read-only input to
// rule evaluation; managed by the UI.
type FocusItem struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID primitive.ObjectID `json:"userId" bson:"userId"`

	Kind     FocusKind          `json:"kind" bson:"kind"`
	TargetID primitive.ObjectID `json:"targetId" bson:"targetId"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

type FocusKind string

const (
	FocusPlant    FocusKind = "plant"
	FocusBed      FocusKind = "bed"
	FocusPlanting FocusKind = "planting"
	FocusTask     FocusKind = "task"
)

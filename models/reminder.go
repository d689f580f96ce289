package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Reminder struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID primitive.ObjectID `json:"userId" bson:"userId"`

	Title   string `json:"title" bson:"title"`
	Type    string `json:"type" bson:"type"` // free-text category, e.g. "watering"
	Details string `json:"details,omitempty" bson:"details,omitempty"`

	DueAt  time.Time  `json:"dueAt" bson:"dueAt"`
	SentAt *time.Time `json:"sentAt,omitempty" bson:"sentAt,omitempty"`

	// Optional link into the garden
	PlantingID *primitive.ObjectID `json:"plantingId,omitempty" bson:"plantingId,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// OverdueHours reports how long past due the reminder is at ref.
// Negative when the reminder is still in the future.
func (r *Reminder) OverdueHours(ref time.Time) float64 {
	return ref.Sub(r.DueAt).Hours()
}

// Handled reports whether the reminder was already delivered after it
// came due, so escalation should skip it.
func (r *Reminder) Handled() bool {
	return r.SentAt != nil && r.SentAt.After(r.DueAt)
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is an emitted notification row. Created only by the
// action dispatcher; readAt/clearedAt are set by the UI, never here.
type Notification struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID primitive.ObjectID `json:"userId" bson:"userId"`

	// Originating rule. Nil for ad hoc notifications.
	RuleID *primitive.ObjectID `json:"ruleId,omitempty" bson:"ruleId,omitempty"`

	Title    string   `json:"title" bson:"title"`
	Body     string   `json:"body" bson:"body"`
	Severity Severity `json:"severity" bson:"severity"`
	Channel  Channel  `json:"channel" bson:"channel"`

	// DueAt is the evaluation instant that produced the notification
	// and the timestamp the throttle dedup query keys on.
	DueAt time.Time `json:"dueAt" bson:"dueAt"`

	ReadAt    *time.Time `json:"readAt,omitempty" bson:"readAt,omitempty"`
	ClearedAt *time.Time `json:"clearedAt,omitempty" bson:"clearedAt,omitempty"`

	// Free-form context, e.g. which plantings triggered it.
	Meta map[string]interface{} `json:"meta,omitempty" bson:"meta,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Request DTOs

type CreateRuleRequest struct {
	Name         string                 `json:"name" validate:"required,max=120"`
	Type         string                 `json:"type" validate:"required,oneof=time weather soil phenology garden"`
	Schedule     string                 `json:"schedule,omitempty" validate:"omitempty,recurrence"`
	Params       map[string]interface{} `json:"params" validate:"required"`
	ThrottleSecs int                    `json:"throttleSecs,omitempty" validate:"omitempty,min=0"`
}

type UpdateRuleRequest struct {
	Schedule     *string                `json:"schedule,omitempty" validate:"omitempty,recurrence"`
	Params       map[string]interface{} `json:"params,omitempty"`
	ThrottleSecs *int                   `json:"throttleSecs,omitempty" validate:"omitempty,min=0"`
	IsEnabled    *bool                  `json:"isEnabled,omitempty"`
}

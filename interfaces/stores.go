package interfaces

import (
	"context"
	"time"

	"github.com/natek434/gardenit/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store contracts consumed by the evaluation services. The Mongo
// repositories implement them; tests use in-memory fakes.

type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListNotifiable(ctx context.Context) ([]models.User, error)
}

type RuleStore interface {
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationRule, error)
	ListEnabledByUser(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationRule, error)
	// GetByID returns (nil, nil) when the ID is malformed or unknown.
	GetByID(ctx context.Context, id string) (*models.NotificationRule, error)
	// GetByName returns (nil, nil) when no rule with that name exists.
	GetByName(ctx context.Context, userID primitive.ObjectID, name string) (*models.NotificationRule, error)
	Create(ctx context.Context, rule *models.NotificationRule) error
	Update(ctx context.Context, rule *models.NotificationRule) error
	SetEnabled(ctx context.Context, userID primitive.ObjectID, id string, enabled bool) error
	Delete(ctx context.Context, userID primitive.ObjectID, id string) error
}

type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	// FindRecentByRule returns the newest notification for (user, rule)
	// with dueAt >= since, or nil when none exists. This is the sole
	// throttle dedup query.
	FindRecentByRule(ctx context.Context, userID, ruleID primitive.ObjectID, since time.Time) (*models.Notification, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, page, pageSize int, unreadOnly bool) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, userID primitive.ObjectID, id string) error
	MarkCleared(ctx context.Context, userID primitive.ObjectID, id string) error
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type ReminderStore interface {
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Reminder, error)
	// Reschedule pushes a reminder's dueAt forward and overwrites its
	// details annotation.
	Reschedule(ctx context.Context, id primitive.ObjectID, dueAt time.Time, details string) error
}

type PlantingStore interface {
	ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Planting, error)
}

type FocusStore interface {
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.FocusItem, error)
}

type PlantStore interface {
	GetNamesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}

type BedStore interface {
	GetBedByID(ctx context.Context, id primitive.ObjectID) (*models.Bed, error)
}

package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/natek434/gardenit/interfaces"
	"github.com/natek434/gardenit/models"
)

// NotificationService is the read side of the notification feed.
type NotificationService struct {
	notifications interfaces.NotificationStore
}

func NewNotificationService(notifications interfaces.NotificationStore) *NotificationService {
	return &NotificationService{notifications: notifications}
}

func (ns *NotificationService) List(ctx context.Context, userID primitive.ObjectID, page, pageSize int, unreadOnly bool) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return ns.notifications.ListByUser(ctx, userID, page, pageSize, unreadOnly)
}

func (ns *NotificationService) MarkRead(ctx context.Context, userID primitive.ObjectID, id string) error {
	return ns.notifications.MarkRead(ctx, userID, id)
}

// MarkCleared removes the notification from the feed without deleting
// it, so throttle dedup still sees it.
func (ns *NotificationService) MarkCleared(ctx context.Context, userID primitive.ObjectID, id string) error {
	return ns.notifications.MarkCleared(ctx, userID, id)
}

func (ns *NotificationService) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return ns.notifications.CountUnread(ctx, userID)
}

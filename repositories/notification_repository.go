package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/natek434/gardenit/models"
)

type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

func (nr *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	notification.CreatedAt = time.Now()

	result, err := nr.collection.InsertOne(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		notification.ID = oid
	}
	return nil
}

// FindRecentByRule returns the newest notification for (user, rule)
// whose dueAt is at or after since, or nil when there is none. This is
// the sole throttle dedup query.
func (nr *NotificationRepository) FindRecentByRule(ctx context.Context, userID, ruleID primitive.ObjectID, since time.Time) (*models.Notification, error) {
	filter := bson.M{
		"userId": userID,
		"ruleId": ruleID,
		"dueAt":  bson.M{"$gte": since},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "dueAt", Value: -1}})

	var notification models.Notification
	err := nr.collection.FindOne(ctx, filter, opts).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query recent notifications: %w", err)
	}

	return &notification, nil
}

func (nr *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid notification ID: %w", err)
	}

	var notification models.Notification
	err = nr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("notification not found")
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return &notification, nil
}

func (nr *NotificationRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, page, pageSize int, unreadOnly bool) ([]models.Notification, int64, error) {
	filter := bson.M{"userId": userID, "clearedAt": nil}
	if unreadOnly {
		filter["readAt"] = nil
	}

	total, err := nr.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	skip := (page - 1) * pageSize
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize))

	cursor, err := nr.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkRead and MarkCleared serve the UI; the engine never mutates a
// notification after creation.
func (nr *NotificationRepository) MarkRead(ctx context.Context, userID primitive.ObjectID, id string) error {
	return nr.setTimestamp(ctx, userID, id, "readAt")
}

func (nr *NotificationRepository) MarkCleared(ctx context.Context, userID primitive.ObjectID, id string) error {
	return nr.setTimestamp(ctx, userID, id, "clearedAt")
}

func (nr *NotificationRepository) setTimestamp(ctx context.Context, userID primitive.ObjectID, id, field string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid notification ID: %w", err)
	}

	result, err := nr.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "userId": userID},
		bson.M{"$set": bson.M{field: time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("notification not found")
	}

	return nil
}

func (nr *NotificationRepository) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	count, err := nr.collection.CountDocuments(ctx, bson.M{
		"userId":    userID,
		"readAt":    nil,
		"clearedAt": nil,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

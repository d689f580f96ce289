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

type ReminderRepository struct {
	collection *mongo.Collection
}

func NewReminderRepository(db *mongo.Database) *ReminderRepository {
	return &ReminderRepository{
		collection: db.Collection("reminders"),
	}
}

func (rr *ReminderRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Reminder, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "dueAt", Value: 1}})

	cursor, err := rr.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find reminders: %w", err)
	}
	defer cursor.Close(ctx)

	var reminders []models.Reminder
	if err = cursor.All(ctx, &reminders); err != nil {
		return nil, fmt.Errorf("failed to decode reminders: %w", err)
	}

	return reminders, nil
}

// Reschedule pushes a reminder's dueAt forward and overwrites its
// details with the suppression note.
func (rr *ReminderRepository) Reschedule(ctx context.Context, id primitive.ObjectID, dueAt time.Time, details string) error {
	result, err := rr.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"dueAt":     dueAt,
			"details":   details,
			"updatedAt": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to reschedule reminder: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("reminder not found")
	}

	return nil
}

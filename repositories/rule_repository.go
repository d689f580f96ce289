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

type RuleRepository struct {
	collection *mongo.Collection
}

func NewRuleRepository(db *mongo.Database) *RuleRepository {
	return &RuleRepository{
		collection: db.Collection("notification_rules"),
	}
}

func (rr *RuleRepository) Create(ctx context.Context, rule *models.NotificationRule) error {
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()
	if rule.ThrottleSecs <= 0 {
		rule.ThrottleSecs = models.DefaultThrottleSecs
	}

	result, err := rr.collection.InsertOne(ctx, rule)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("rule %q already exists: %w", rule.Name, err)
		}
		return fmt.Errorf("failed to create rule: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		rule.ID = oid
	}
	return nil
}

// GetByID returns (nil, nil) when the ID is not a valid ObjectID or no
// rule exists, so callers can map a miss to a not-found response.
func (rr *RuleRepository) GetByID(ctx context.Context, id string) (*models.NotificationRule, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var rule models.NotificationRule
	err = rr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&rule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return &rule, nil
}

func (rr *RuleRepository) GetByName(ctx context.Context, userID primitive.ObjectID, name string) (*models.NotificationRule, error) {
	var rule models.NotificationRule
	err := rr.collection.FindOne(ctx, bson.M{"userId": userID, "name": name}).Decode(&rule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return &rule, nil
}

func (rr *RuleRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationRule, error) {
	return rr.list(ctx, bson.M{"userId": userID})
}

func (rr *RuleRepository) ListEnabledByUser(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationRule, error) {
	return rr.list(ctx, bson.M{"userId": userID, "isEnabled": true})
}

func (rr *RuleRepository) list(ctx context.Context, filter bson.M) ([]models.NotificationRule, error) {
	// Stable listing order so rules evaluate deterministically per sweep.
	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := rr.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []models.NotificationRule
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}

	return rules, nil
}

func (rr *RuleRepository) Update(ctx context.Context, rule *models.NotificationRule) error {
	rule.UpdatedAt = time.Now()

	filter := bson.M{"_id": rule.ID, "userId": rule.UserID}
	update := bson.M{"$set": bson.M{
		"schedule":     rule.Schedule,
		"params":       rule.Params,
		"throttleSecs": rule.ThrottleSecs,
		"isEnabled":    rule.IsEnabled,
		"updatedAt":    rule.UpdatedAt,
	}}

	result, err := rr.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}

func (rr *RuleRepository) SetEnabled(ctx context.Context, userID primitive.ObjectID, id string, enabled bool) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid rule ID: %w", err)
	}

	result, err := rr.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "userId": userID},
		bson.M{"$set": bson.M{"isEnabled": enabled, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}

// Delete removes the rule. Notifications it emitted are retained; they
// keep their ruleId for history.
func (rr *RuleRepository) Delete(ctx context.Context, userID primitive.ObjectID, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid rule ID: %w", err)
	}

	result, err := rr.collection.DeleteOne(ctx, bson.M{"_id": objectID, "userId": userID})
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}

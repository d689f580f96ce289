package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/natek434/gardenit/models"
)

type FocusRepository struct {
	collection *mongo.Collection
}

func NewFocusRepository(db *mongo.Database) *FocusRepository {
	return &FocusRepository{
		collection: db.Collection("focus_items"),
	}
}

func (fr *FocusRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.FocusItem, error) {
	cursor, err := fr.collection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to find focus items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.FocusItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode focus items: %w", err)
	}

	return items, nil
}

package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/natek434/gardenit/models"
)

type PlantingRepository struct {
	collection *mongo.Collection
}

func NewPlantingRepository(db *mongo.Database) *PlantingRepository {
	return &PlantingRepository{
		collection: db.Collection("plantings"),
	}
}

func (pr *PlantingRepository) ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Planting, error) {
	cursor, err := pr.collection.Find(ctx, bson.M{"userId": userID, "isActive": true})
	if err != nil {
		return nil, fmt.Errorf("failed to find plantings: %w", err)
	}
	defer cursor.Close(ctx)

	var plantings []models.Planting
	if err = cursor.All(ctx, &plantings); err != nil {
		return nil, fmt.Errorf("failed to decode plantings: %w", err)
	}

	return plantings, nil
}

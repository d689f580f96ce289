package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/natek434/gardenit/models"
)

// GardenRepository reads garden and bed records. The engine only needs
// lookups; garden CRUD lives with the surrounding application.
type GardenRepository struct {
	gardenCollection *mongo.Collection
	bedCollection    *mongo.Collection
}

func NewGardenRepository(db *mongo.Database) *GardenRepository {
	return &GardenRepository{
		gardenCollection: db.Collection("gardens"),
		bedCollection:    db.Collection("beds"),
	}
}

func (gr *GardenRepository) GetBedByID(ctx context.Context, id primitive.ObjectID) (*models.Bed, error) {
	var bed models.Bed
	err := gr.bedCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&bed)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("bed not found")
		}
		return nil, fmt.Errorf("failed to get bed: %w", err)
	}

	return &bed, nil
}

func (gr *GardenRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Garden, error) {
	cursor, err := gr.gardenCollection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to find gardens: %w", err)
	}
	defer cursor.Close(ctx)

	var gardens []models.Garden
	if err = cursor.All(ctx, &gardens); err != nil {
		return nil, fmt.Errorf("failed to decode gardens: %w", err)
	}

	return gardens, nil
}

package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/natek434/gardenit/models"
)

// PlantRepository reads the plant catalog. The catalog is maintained by
// the surrounding application; the engine only resolves display names.
type PlantRepository struct {
	collection *mongo.Collection
}

func NewPlantRepository(db *mongo.Database) *PlantRepository {
	return &PlantRepository{
		collection: db.Collection("plants"),
	}
}

func (pr *PlantRepository) GetNamesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	cursor, err := pr.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find plants: %w", err)
	}
	defer cursor.Close(ctx)

	var plants []models.Plant
	if err = cursor.All(ctx, &plants); err != nil {
		return nil, fmt.Errorf("failed to decode plants: %w", err)
	}

	for _, plant := range plants {
		names[plant.ID] = plant.CommonName
	}

	return names, nil
}

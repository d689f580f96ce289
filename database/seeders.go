package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/natek434/gardenit/models"
)

// Seeder represents a database seeder
type Seeder struct {
	Name        string
	Description string
	Seed        func(*mongo.Database) error
}

var seeders = []Seeder{
	{
		Name:        "demo_gardener",
		Description: "Create a demo user with a garden, plantings and reminders",
		Seed:        seedDemoGardener,
	},
}

// RunSeeders executes all database seeders (development only)
func RunSeeders(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seedersCol := db.Collection("seeders")
	count, err := seedersCol.CountDocuments(ctx, bson.M{})
	if err == nil && count > 0 {
		logrus.Info("🌱 Seeders already run, skipping...")
		return nil
	}

	logrus.Info("🌱 Running database seeders...")

	for _, seeder := range seeders {
		logrus.Infof("🔄 Running seeder: %s", seeder.Name)

		if err := seeder.Seed(db); err != nil {
			return fmt.Errorf("seeder %s failed: %w", seeder.Name, err)
		}

		_, err := seedersCol.InsertOne(ctx, bson.M{
			"name":   seeder.Name,
			"ranAt":  time.Now(),
			"status": "completed",
		})
		if err != nil {
			return fmt.Errorf("failed to record seeder %s: %w", seeder.Name, err)
		}
	}

	logrus.Info("✅ Seeders completed")
	return nil
}

func seedDemoGardener(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()

	user := models.User{
		ID:        primitive.NewObjectID(),
		Email:     "demo@gardenit.app",
		FirstName: "Demo",
		LastName:  "Gardener",
		Location: &models.GeoPoint{
			Latitude:  52.52,
			Longitude: 13.405,
		},
		Timezone:  "Europe/Berlin",
		Units:     "metric",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := db.Collection("users").InsertOne(ctx, user); err != nil {
		return err
	}

	garden := models.Garden{
		ID:        primitive.NewObjectID(),
		UserID:    user.ID,
		Name:      "Backyard",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := db.Collection("gardens").InsertOne(ctx, garden); err != nil {
		return err
	}

	bed := models.Bed{
		ID:         primitive.NewObjectID(),
		UserID:     user.ID,
		GardenID:   garden.ID,
		Name:       "South Bed",
		GardenName: garden.Name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := db.Collection("beds").InsertOne(ctx, bed); err != nil {
		return err
	}

	plantings := []interface{}{
		models.Planting{
			ID:             primitive.NewObjectID(),
			UserID:         user.ID,
			GardenID:       garden.ID,
			BedID:          bed.ID,
			PlantID:        primitive.NewObjectID(),
			CommonName:     "Dwarf Beans",
			Category:       "legume",
			DaysToMaturity: 70,
			BedName:        bed.Name,
			GardenName:     garden.Name,
			StartDate:      now.AddDate(0, 0, -56),
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		models.Planting{
			ID:             primitive.NewObjectID(),
			UserID:         user.ID,
			GardenID:       garden.ID,
			BedID:          bed.ID,
			PlantID:        primitive.NewObjectID(),
			CommonName:     "Butternut Squash",
			Category:       "cucurbit",
			DaysToMaturity: 110,
			BedName:        bed.Name,
			GardenName:     garden.Name,
			StartDate:      now.AddDate(0, 0, -20),
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
	if _, err := db.Collection("plantings").InsertMany(ctx, plantings); err != nil {
		return err
	}

	reminder := models.Reminder{
		ID:        primitive.NewObjectID(),
		UserID:    user.ID,
		Title:     "Water the south bed",
		Type:      "watering",
		DueAt:     now.Add(10 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := db.Collection("reminders").InsertOne(ctx, reminder); err != nil {
		return err
	}

	focus := models.FocusItem{
		ID:        primitive.NewObjectID(),
		UserID:    user.ID,
		Kind:      models.FocusTask,
		TargetID:  reminder.ID,
		CreatedAt: now,
	}
	_, err := db.Collection("focus_items").InsertOne(ctx, focus)
	return err
}

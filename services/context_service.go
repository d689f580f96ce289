package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/natek434/gardenit/interfaces"
	"github.com/natek434/gardenit/models"
)

// UserContext is everything one user's rule evaluations need, built
// once per sweep and shared across all rules for that user.
type UserContext struct {
	User    models.User
	Weather *models.WeatherSnapshot // nil when the user has no location or the fetch failed

	FocusItems []models.FocusItem
	Reminders  []models.Reminder
	Plantings  []models.Planting

	// PlantNames resolves focus items of kind plant to display names.
	PlantNames map[primitive.ObjectID]string
}

// ContextService assembles UserContexts. Pure read aggregation; the
// forecaster is injected so tests substitute a fake without touching
// global state.
type ContextService struct {
	forecaster interfaces.Forecaster
	focusStore interfaces.FocusStore
	reminders  interfaces.ReminderStore
	plantings  interfaces.PlantingStore
	plants     interfaces.PlantStore
}

func NewContextService(
	forecaster interfaces.Forecaster,
	focusStore interfaces.FocusStore,
	reminders interfaces.ReminderStore,
	plantings interfaces.PlantingStore,
	plants interfaces.PlantStore,
) *ContextService {
	return &ContextService{
		forecaster: forecaster,
		focusStore: focusStore,
		reminders:  reminders,
		plantings:  plantings,
		plants:     plants,
	}
}

// Build assembles the context for one user. A weather fetch failure is
// logged and degrades to no weather context; it never fails the build.
func (cs *ContextService) Build(ctx context.Context, user models.User) (*UserContext, error) {
	uctx := &UserContext{
		User:       user,
		PlantNames: make(map[primitive.ObjectID]string),
	}

	if user.Location != nil {
		snapshot, err := cs.forecaster.FetchSnapshot(ctx, user.Location.Latitude, user.Location.Longitude)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"userId": user.ID.Hex(),
			}).Warnf("Weather fetch failed, continuing without weather context: %v", err)
		} else {
			uctx.Weather = snapshot
		}
	}

	focusItems, err := cs.focusStore.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	uctx.FocusItems = focusItems

	reminders, err := cs.reminders.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	uctx.Reminders = reminders

	plantings, err := cs.plantings.ListActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	uctx.Plantings = plantings

	var plantIDs []primitive.ObjectID
	for _, item := range focusItems {
		if item.Kind == models.FocusPlant {
			plantIDs = append(plantIDs, item.TargetID)
		}
	}
	if len(plantIDs) > 0 {
		names, err := cs.plants.GetNamesByIDs(ctx, plantIDs)
		if err != nil {
			return nil, err
		}
		uctx.PlantNames = names
	}

	return uctx, nil
}

// Location resolves the user's local timezone for schedule matching.
// The weather snapshot's timezone wins because it reflects where the
// garden actually is; the profile timezone is the fallback, then UTC.
func (uc *UserContext) Location() *time.Location {
	if uc.Weather != nil && uc.Weather.Timezone != "" {
		if loc, err := time.LoadLocation(uc.Weather.Timezone); err == nil {
			return loc
		}
	}
	if uc.User.Timezone != "" {
		if loc, err := time.LoadLocation(uc.User.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// ReminderByID finds a reminder in the prefetched context.
func (uc *UserContext) ReminderByID(id primitive.ObjectID) *models.Reminder {
	for i := range uc.Reminders {
		if uc.Reminders[i].ID == id {
			return &uc.Reminders[i]
		}
	}
	return nil
}

// PlantingByID finds a planting in the prefetched context.
func (uc *UserContext) PlantingByID(id primitive.ObjectID) *models.Planting {
	for i := range uc.Plantings {
		if uc.Plantings[i].ID == id {
			return &uc.Plantings[i]
		}
	}
	return nil
}

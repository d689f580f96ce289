package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/natek434/gardenit/models"
)

// In-memory fakes for the store and transport contracts. Kept minimal:
// each test seeds exactly the state it needs.

type fakeNotificationStore struct {
	created []*models.Notification
}

func (f *fakeNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	stored := *n
	stored.ID = primitive.NewObjectID()
	n.ID = stored.ID
	f.created = append(f.created, &stored)
	return nil
}

func (f *fakeNotificationStore) FindRecentByRule(ctx context.Context, userID, ruleID primitive.ObjectID, since time.Time) (*models.Notification, error) {
	for i := len(f.created) - 1; i >= 0; i-- {
		n := f.created[i]
		if n.UserID == userID && n.RuleID != nil && *n.RuleID == ruleID && !n.DueAt.Before(since) {
			return n, nil
		}
	}
	return nil, nil
}

func (f *fakeNotificationStore) ListByUser(ctx context.Context, userID primitive.ObjectID, page, pageSize int, unreadOnly bool) ([]models.Notification, int64, error) {
	var out []models.Notification
	for _, n := range f.created {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotificationStore) MarkRead(ctx context.Context, userID primitive.ObjectID, id string) error {
	return nil
}

func (f *fakeNotificationStore) MarkCleared(ctx context.Context, userID primitive.ObjectID, id string) error {
	return nil
}

func (f *fakeNotificationStore) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return int64(len(f.created)), nil
}

type fakeReminderStore struct {
	reminders    []models.Reminder
	rescheduled  map[primitive.ObjectID]time.Time
	rescheduleFn func(id primitive.ObjectID) error
}

func (f *fakeReminderStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Reminder, error) {
	return f.reminders, nil
}

func (f *fakeReminderStore) Reschedule(ctx context.Context, id primitive.ObjectID, dueAt time.Time, details string) error {
	if f.rescheduleFn != nil {
		if err := f.rescheduleFn(id); err != nil {
			return err
		}
	}
	if f.rescheduled == nil {
		f.rescheduled = make(map[primitive.ObjectID]time.Time)
	}
	f.rescheduled[id] = dueAt
	return nil
}

type fakeRuleStore struct {
	rules []*models.NotificationRule
}

func (f *fakeRuleStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationRule, error) {
	var out []models.NotificationRule
	for _, r := range f.rules {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRuleStore) ListEnabledByUser(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationRule, error) {
	var out []models.NotificationRule
	for _, r := range f.rules {
		if r.UserID == userID && r.IsEnabled {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRuleStore) GetByID(ctx context.Context, id string) (*models.NotificationRule, error) {
	for _, r := range f.rules {
		if r.ID.Hex() == id {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRuleStore) GetByName(ctx context.Context, userID primitive.ObjectID, name string) (*models.NotificationRule, error) {
	for _, r := range f.rules {
		if r.UserID == userID && r.Name == name {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRuleStore) Create(ctx context.Context, rule *models.NotificationRule) error {
	rule.ID = primitive.NewObjectID()
	stored := *rule
	f.rules = append(f.rules, &stored)
	return nil
}

func (f *fakeRuleStore) Update(ctx context.Context, rule *models.NotificationRule) error {
	for i, r := range f.rules {
		if r.ID == rule.ID {
			stored := *rule
			f.rules[i] = &stored
			return nil
		}
	}
	return fmt.Errorf("rule %s not found", rule.ID.Hex())
}

func (f *fakeRuleStore) SetEnabled(ctx context.Context, userID primitive.ObjectID, id string, enabled bool) error {
	for _, r := range f.rules {
		if r.ID.Hex() == id && r.UserID == userID {
			r.IsEnabled = enabled
			return nil
		}
	}
	return fmt.Errorf("rule %s not found", id)
}

func (f *fakeRuleStore) Delete(ctx context.Context, userID primitive.ObjectID, id string) error {
	for i, r := range f.rules {
		if r.ID.Hex() == id && r.UserID == userID {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("rule %s not found", id)
}

type fakeBedStore struct {
	beds map[primitive.ObjectID]*models.Bed
}

func (f *fakeBedStore) GetBedByID(ctx context.Context, id primitive.ObjectID) (*models.Bed, error) {
	if bed, ok := f.beds[id]; ok {
		return bed, nil
	}
	return nil, fmt.Errorf("bed %s not found", id.Hex())
}

type fakeFocusStore struct{ items []models.FocusItem }

func (f *fakeFocusStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.FocusItem, error) {
	return f.items, nil
}

type fakePlantingStore struct{ plantings []models.Planting }

func (f *fakePlantingStore) ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Planting, error) {
	return f.plantings, nil
}

type fakePlantStore struct{ names map[primitive.ObjectID]string }

func (f *fakePlantStore) GetNamesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	return f.names, nil
}

type fakeForecaster struct {
	snapshot *models.WeatherSnapshot
	err      error
	calls    int
}

func (f *fakeForecaster) FetchSnapshot(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	f.calls++
	return f.snapshot, f.err
}

type deliveredMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	delivered []deliveredMail
	err       error
}

func (f *fakeMailer) Deliver(ctx context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, deliveredMail{To: to, Subject: subject, Body: body})
	return nil
}

func testUser() models.User {
	return models.User{
		ID:        primitive.NewObjectID(),
		Email:     "gardener@example.com",
		FirstName: "Alex",
		Location:  &models.GeoPoint{Latitude: 52.52, Longitude: 13.405},
		Timezone:  "Europe/Berlin",
		IsActive:  true,
	}
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/natek434/gardenit/models"
)

type evaluationFixture struct {
	service       *EvaluationService
	ruleStore     *fakeRuleStore
	notifications *fakeNotificationStore
	reminders     *fakeReminderStore
	mailer        *fakeMailer
}

func newEvaluationFixture(forecaster *fakeForecaster, plantings []models.Planting, reminders []models.Reminder, focus []models.FocusItem) *evaluationFixture {
	ruleStore := &fakeRuleStore{}
	notifications := &fakeNotificationStore{}
	reminderStore := &fakeReminderStore{reminders: reminders}
	mailer := &fakeMailer{}

	contextService := NewContextService(
		forecaster,
		&fakeFocusStore{items: focus},
		reminderStore,
		&fakePlantingStore{plantings: plantings},
		&fakePlantStore{},
	)
	actionService := NewActionService(notifications, reminderStore, &fakeBedStore{}, mailer)
	ruleService := NewRuleService(ruleStore)

	return &evaluationFixture{
		service:       NewEvaluationService(ruleStore, contextService, actionService, ruleService),
		ruleStore:     ruleStore,
		notifications: notifications,
		reminders:     reminderStore,
		mailer:        mailer,
	}
}

func weatherRule(user models.User, name string, params models.WeatherParams) *models.NotificationRule {
	return &models.NotificationRule{
		ID:        primitive.NewObjectID(),
		UserID:    user.ID,
		Name:      name,
		Type:      models.RuleWeather,
		Params:    params.Document(),
		IsEnabled: true,
	}
}

func buildContext(t *testing.T, fx *evaluationFixture, user models.User) *UserContext {
	t.Helper()
	uctx, err := fx.service.context.Build(context.Background(), user)
	require.NoError(t, err)
	return uctx
}

func TestRainRuleFiresNotifyAndSuppress(t *testing.T) {
	user := testUser()
	ref := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

	watering := models.Reminder{ID: primitive.NewObjectID(), Title: "Water the beans", Type: "watering", DueAt: ref.Add(10 * time.Hour)}
	forecaster := &fakeForecaster{snapshot: &models.WeatherSnapshot{
		PrecipProbNext24h: floatPtr(0.8),
	}}
	fx := newEvaluationFixture(forecaster, nil, []models.Reminder{watering}, nil)

	rule := weatherRule(user, "weather.rain", models.WeatherParams{
		PrecipProbNext24hGte: floatPtr(0.6),
		Actions: []models.Action{
			models.NotifyAction{Title: "Rain expected", Severity: models.SeverityWarning, Channel: models.ChannelInApp},
			models.SuppressTasksAction{TaskType: "watering", DueWithinHours: 18},
		},
	})

	err := fx.service.EvaluateRule(context.Background(), ref, rule, buildContext(t, fx, user))
	require.NoError(t, err)

	require.Len(t, fx.notifications.created, 1)
	assert.Equal(t, "Rain expected", fx.notifications.created[0].Title)
	assert.Equal(t, "rain", fx.notifications.created[0].Meta["trigger"])
	assert.Contains(t, fx.reminders.rescheduled, watering.ID)
}

func TestRainRuleBelowThreshold(t *testing.T) {
	user := testUser()
	forecaster := &fakeForecaster{snapshot: &models.WeatherSnapshot{
		PrecipProbNext24h: floatPtr(0.4),
	}}
	fx := newEvaluationFixture(forecaster, nil, nil, nil)

	rule := weatherRule(user, "weather.rain", models.WeatherParams{
		PrecipProbNext24hGte: floatPtr(0.6),
		Actions:              []models.Action{models.NotifyAction{Title: "Rain expected"}},
	})

	err := fx.service.EvaluateRule(context.Background(), time.Now(), rule, buildContext(t, fx, user))
	require.NoError(t, err)
	assert.Empty(t, fx.notifications.created)
}

func TestFrostRuleIsConjunctive(t *testing.T) {
	user := testUser()
	params := models.WeatherParams{
		FrostProbGte: floatPtr(0.3),
		MinTempLte:   floatPtr(0),
		Actions:      []models.Action{models.NotifyAction{Title: "Frost warning", Severity: models.SeverityCritical, Channel: models.ChannelPush}},
	}

	// High frost probability but the minimum stays above zero: no fire.
	forecaster := &fakeForecaster{snapshot: &models.WeatherSnapshot{
		FrostProbability: floatPtr(0.5),
		MinTempNext24h:   floatPtr(1),
	}}
	fx := newEvaluationFixture(forecaster, nil, nil, nil)

	rule := weatherRule(user, "weather.frost", params)
	err := fx.service.EvaluateRule(context.Background(), time.Now(), rule, buildContext(t, fx, user))
	require.NoError(t, err)
	assert.Empty(t, fx.notifications.created)

	// Both conditions met: fire.
	forecaster.snapshot.MinTempNext24h = floatPtr(-1)
	err = fx.service.EvaluateRule(context.Background(), time.Now(), rule, buildContext(t, fx, user))
	require.NoError(t, err)
	require.Len(t, fx.notifications.created, 1)
	assert.Equal(t, "frost", fx.notifications.created[0].Meta["trigger"])
}

func TestFrostRuleAbsentBoundIsSatisfied(t *testing.T) {
	user := testUser()
	forecaster := &fakeForecaster{snapshot: &models.WeatherSnapshot{
		FrostProbability: floatPtr(0.5),
	}}
	fx := newEvaluationFixture(forecaster, nil, nil, nil)

	// Only the probability bound is configured: the missing minTemp
	// bound must not block firing.
	rule := weatherRule(user, "weather.frost", models.WeatherParams{
		FrostProbGte: floatPtr(0.3),
		Actions:      []models.Action{models.NotifyAction{Title: "Frost warning", Severity: models.SeverityCritical, Channel: models.ChannelPush}},
	})
	err := fx.service.EvaluateRule(context.Background(), time.Now(), rule, buildContext(t, fx, user))
	require.NoError(t, err)
	require.Len(t, fx.notifications.created, 1)
	assert.Equal(t, "frost", fx.notifications.created[0].Meta["trigger"])

	// And the other way round: only a temperature bound.
	forecaster.snapshot = &models.WeatherSnapshot{MinTempNext24h: floatPtr(-2)}
	rule = weatherRule(user, "weather.frost", models.WeatherParams{
		MinTempLte: floatPtr(0),
		Actions:    []models.Action{models.NotifyAction{Title: "Frost warning", Severity: models.SeverityCritical, Channel: models.ChannelPush}},
	})
	err = fx.service.EvaluateRule(context.Background(), time.Now(), rule, buildContext(t, fx, user))
	require.NoError(t, err)
	require.Len(t, fx.notifications.created, 2)
}

func TestRainOnlyRuleDoesNotTripFrostBranch(t *testing.T) {
	user := testUser()
	// No frost bounds on the rule at all: even a frosty snapshot must
	// not fire through the frost branch.
	forecaster := &fakeForecaster{snapshot: &models.WeatherSnapshot{
		PrecipProbNext24h: floatPtr(0.1),
		FrostProbability:  floatPtr(0.9),
		MinTempNext24h:    floatPtr(-5),
	}}
	fx := newEvaluationFixture(forecaster, nil, nil, nil)

	rule := weatherRule(user, "weather.rain", models.WeatherParams{
		PrecipProbNext24hGte: floatPtr(0.6),
		Actions:              []models.Action{models.NotifyAction{Title: "Rain expected"}},
	})
	err := fx.service.EvaluateRule(context.Background(), time.Now(), rule, buildContext(t, fx, user))
	require.NoError(t, err)
	assert.Empty(t, fx.notifications.created)
}

func TestWeatherRuleSkipsWithoutSnapshot(t *testing.T) {
	user := testUser()
	user.Location = nil // no coordinate, context builds without weather

	fx := newEvaluationFixture(&fakeForecaster{}, nil, nil, nil)
	rule := weatherRule(user, "weather.rain", models.WeatherParams{
		PrecipProbNext24hGte: floatPtr(0.6),
		Actions:              []models.Action{models.NotifyAction{Title: "Rain expected"}},
	})

	err := fx.service.EvaluateRule(context.Background(), time.Now(), rule, buildContext(t, fx, user))
	require.NoError(t, err)
	assert.Empty(t, fx.notifications.created)
}

func TestSoilRuleMatchesSpeciesSubstring(t *testing.T) {
	user := testUser()
	planting := models.Planting{ID: primitive.NewObjectID(), CommonName: "Dwarf Beans", BedName: "South Bed", IsActive: true}

	forecaster := &fakeForecaster{snapshot: &models.WeatherSnapshot{SoilTemp10cm: floatPtr(14)}}
	fx := newEvaluationFixture(forecaster, []models.Planting{planting}, nil, nil)

	rule := &models.NotificationRule{
		ID:     primitive.NewObjectID(),
		UserID: user.ID,
		Name:   "soil.sowing",
		Type:   models.RuleSoil,
		Params: models.SoilParams{
			SoilTemp10cmGte: 12,
			Species:         []string{"beans", "corn"},
			Actions:         []models.Action{models.NotifyAction{Title: "Soil is warm enough to sow", Body: "Ready:"}},
		}.Document(),
		IsEnabled: true,
	}

	err := fx.service.EvaluateRule(context.Background(), time.Now(), rule, buildContext(t, fx, user))
	require.NoError(t, err)

	require.Len(t, fx.notifications.created, 1)
	assert.Contains(t, fx.notifications.created[0].Body, "Dwarf Beans")
}

func TestSoilRuleNoMatchingCrops(t *testing.T) {
	user := testUser()
	planting := models.Planting{ID: primitive.NewObjectID(), CommonName: "Tomato", IsActive: true}

	forecaster := &fakeForecaster{snapshot: &models.WeatherSnapshot{SoilTemp10cm: floatPtr(14)}}
	fx := newEvaluationFixture(forecaster, []models.Planting{planting}, nil, nil)

	rule := &models.NotificationRule{
		ID:     primitive.NewObjectID(),
		UserID: user.ID,
		Name:   "soil.sowing",
		Type:   models.RuleSoil,
		Params: models.SoilParams{
			SoilTemp10cmGte: 12,
			Species:         []string{"beans"},
			Actions:         []models.Action{models.NotifyAction{Title: "Soil is warm enough to sow"}},
		}.Document(),
		IsEnabled: true,
	}

	// Threshold met, but the user grows nothing on the list.
	err := fx.service.EvaluateRule(context.Background(), time.Now(), rule, buildContext(t, fx, user))
	require.NoError(t, err)
	assert.Empty(t, fx.notifications.created)
}

func TestPhenologyRuleBoundaryInclusive(t *testing.T) {
	user := testUser()
	ref := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

	// 56 of 70 days elapsed is exactly 0.8.
	atBoundary := models.Planting{
		ID: primitive.NewObjectID(), CommonName: "Dwarf Beans", BedName: "South Bed",
		DaysToMaturity: 70, StartDate: ref.AddDate(0, 0, -56), IsActive: true,
	}
	early := models.Planting{
		ID: primitive.NewObjectID(), CommonName: "Butternut Squash", BedName: "North Bed",
		DaysToMaturity: 100, StartDate: ref.AddDate(0, 0, -30), IsActive: true,
	}

	fx := newEvaluationFixture(&fakeForecaster{}, []models.Planting{atBoundary, early}, nil, nil)

	rule := &models.NotificationRule{
		ID:     primitive.NewObjectID(),
		UserID: user.ID,
		Name:   "crop.maturity",
		Type:   models.RulePhenology,
		Params: models.PhenologyParams{
			MaturityPctGte: 0.8,
			Actions:        []models.Action{models.NotifyAction{Title: "Crops approaching harvest", Body: "Check:"}},
		}.Document(),
		IsEnabled: true,
	}

	err := fx.service.EvaluateRule(context.Background(), ref, rule, buildContext(t, fx, user))
	require.NoError(t, err)

	require.Len(t, fx.notifications.created, 1)
	body := fx.notifications.created[0].Body
	assert.Contains(t, body, "Dwarf Beans")
	assert.NotContains(t, body, "Butternut Squash")
}

func TestGardenRuleFocusOnly(t *testing.T) {
	user := testUser()
	ref := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

	focusedOverdue := models.Reminder{ID: primitive.NewObjectID(), Title: "Repot the chili", Type: "repotting", DueAt: ref.Add(-50 * time.Hour)}
	unfocusedOverdue := models.Reminder{ID: primitive.NewObjectID(), Title: "Clean the shed", Type: "chore", DueAt: ref.Add(-60 * time.Hour)}
	handled := models.Reminder{ID: primitive.NewObjectID(), Title: "Mow the lawn", Type: "chore", DueAt: ref.Add(-72 * time.Hour)}
	sentAt := ref.Add(-71 * time.Hour)
	handled.SentAt = &sentAt

	focus := []models.FocusItem{
		{Kind: models.FocusTask, TargetID: focusedOverdue.ID},
		{Kind: models.FocusTask, TargetID: handled.ID},
	}
	fx := newEvaluationFixture(&fakeForecaster{}, nil, []models.Reminder{focusedOverdue, unfocusedOverdue, handled}, focus)

	rule := &models.NotificationRule{
		ID:     primitive.NewObjectID(),
		UserID: user.ID,
		Name:   "tasks.overdue",
		Type:   models.RuleGarden,
		Params: models.GardenParams{
			OverdueTaskHoursGte: 48,
			FocusOnly:           true,
			Actions:             []models.Action{models.EscalateAction{Title: "Focus tasks are falling behind", Body: "Overdue:", Channel: models.ChannelEmail}},
		}.Document(),
		IsEnabled: true,
	}

	err := fx.service.EvaluateRule(context.Background(), ref, rule, buildContext(t, fx, user))
	require.NoError(t, err)

	require.Len(t, fx.notifications.created, 1)
	notification := fx.notifications.created[0]
	assert.Equal(t, models.SeverityCritical, notification.Severity)
	assert.Equal(t, true, notification.Meta["escalated"])
	assert.Contains(t, notification.Body, "Repot the chili")
	assert.NotContains(t, notification.Body, "Clean the shed")
	assert.NotContains(t, notification.Body, "Mow the lawn")
}

func TestTimeRuleMatchesInUserTimezone(t *testing.T) {
	user := testUser() // Europe/Berlin

	// 06:00 UTC on 2026-03-02 is 07:00 in Berlin (CET).
	ref := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

	fx := newEvaluationFixture(&fakeForecaster{}, nil, nil, nil)

	rule := &models.NotificationRule{
		ID:       primitive.NewObjectID(),
		UserID:   user.ID,
		Name:     "weekly.check",
		Type:     models.RuleTime,
		Schedule: "FREQ=DAILY;BYHOUR=7;BYMINUTE=0",
		Params: models.TimeParams{
			Actions: []models.Action{models.NotifyAction{Title: "Good morning"}},
		}.Document(),
		IsEnabled: true,
	}

	err := fx.service.EvaluateRule(context.Background(), ref, rule, buildContext(t, fx, user))
	require.NoError(t, err)
	require.Len(t, fx.notifications.created, 1)

	// At 07:00 UTC (08:00 Berlin) the same rule stays quiet.
	fx2 := newEvaluationFixture(&fakeForecaster{}, nil, nil, nil)
	rule2 := *rule
	err = fx2.service.EvaluateRule(context.Background(), time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC), &rule2, buildContext(t, fx2, user))
	require.NoError(t, err)
	assert.Empty(t, fx2.notifications.created)
}

func TestEvaluateUserProvisionsAndRuns(t *testing.T) {
	user := testUser()
	ref := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	forecaster := &fakeForecaster{snapshot: &models.WeatherSnapshot{
		PrecipProbNext24h: floatPtr(0.9),
	}}
	fx := newEvaluationFixture(forecaster, nil, nil, nil)

	err := fx.service.EvaluateUser(context.Background(), ref, user)
	require.NoError(t, err)

	// All built-ins provisioned on first contact.
	rules, err := fx.ruleStore.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, rules, 9)

	// The rain built-in fired against the wet snapshot.
	var titles []string
	for _, n := range fx.notifications.created {
		titles = append(titles, n.Title)
	}
	assert.Contains(t, titles, "Rain expected")
}

func TestEvaluateRuleBadParams(t *testing.T) {
	user := testUser()
	fx := newEvaluationFixture(&fakeForecaster{}, nil, nil, nil)

	rule := &models.NotificationRule{
		ID:        primitive.NewObjectID(),
		UserID:    user.ID,
		Name:      "broken",
		Type:      models.RuleWeather,
		Params:    map[string]interface{}{"actions": []interface{}{map[string]interface{}{"do": "bogus"}}},
		IsEnabled: true,
	}

	err := fx.service.EvaluateRule(context.Background(), time.Now(), rule, buildContext(t, fx, user))
	assert.Error(t, err)
}

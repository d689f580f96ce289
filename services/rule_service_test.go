package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/natek434/gardenit/models"
	"github.com/natek434/gardenit/utils"
)

func TestEnsureBuiltinRulesProvisionsAll(t *testing.T) {
	store := &fakeRuleStore{}
	rs := NewRuleService(store)
	userID := primitive.NewObjectID()

	require.NoError(t, rs.EnsureBuiltinRules(context.Background(), userID))

	rules, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, rules, 9)

	byName := make(map[string]models.NotificationRule)
	for _, r := range rules {
		byName[r.Name] = r
		assert.True(t, r.IsBuiltin)
		assert.True(t, r.IsEnabled)

		// Every stock rule must decode through the same path the
		// evaluators use.
		_, err := r.DecodeParams()
		assert.NoError(t, err, "rule %s", r.Name)
	}

	assert.Equal(t, "FREQ=DAILY;BYHOUR=7;BYMINUTE=0", byName["morning.digest"].Schedule)
	assert.Equal(t, models.RuleWeather, byName["weather.frost"].Type)
	assert.Equal(t, 43200, byName["weather.frost"].ThrottleSecs)
	assert.Equal(t, models.RuleGarden, byName["tasks.overdue"].Type)
}

func TestEnsureBuiltinRulesIsIdempotent(t *testing.T) {
	store := &fakeRuleStore{}
	rs := NewRuleService(store)
	userID := primitive.NewObjectID()

	require.NoError(t, rs.EnsureBuiltinRules(context.Background(), userID))
	require.NoError(t, rs.EnsureBuiltinRules(context.Background(), userID))

	rules, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, rules, 9)
}

func TestEnsureBuiltinRulesKeepsUserEdits(t *testing.T) {
	store := &fakeRuleStore{}
	rs := NewRuleService(store)
	userID := primitive.NewObjectID()

	require.NoError(t, rs.EnsureBuiltinRules(context.Background(), userID))

	// User opts out of frost warnings.
	frost, err := store.GetByName(context.Background(), userID, "weather.frost")
	require.NoError(t, err)
	require.NoError(t, store.SetEnabled(context.Background(), userID, frost.ID.Hex(), false))

	require.NoError(t, rs.EnsureBuiltinRules(context.Background(), userID))

	frost, err = store.GetByName(context.Background(), userID, "weather.frost")
	require.NoError(t, err)
	assert.False(t, frost.IsEnabled, "provisioning must not re-enable a disabled rule")

	rules, _ := store.ListByUser(context.Background(), userID)
	assert.Len(t, rules, 9)
}

func TestGetRuleMissIsNotFound(t *testing.T) {
	store := &fakeRuleStore{}
	rs := NewRuleService(store)
	userID := primitive.NewObjectID()

	// Unknown and malformed IDs both map to a not-found service error,
	// never a plain 500.
	for _, id := range []string{primitive.NewObjectID().Hex(), "not-a-hex-id"} {
		_, err := rs.GetRule(context.Background(), userID, id)
		require.Error(t, err)
		svcErr, ok := utils.GetServiceError(err)
		require.True(t, ok, "id %q", id)
		assert.Equal(t, utils.ErrCodeNotFound, svcErr.Code)
	}
}

func TestGetRuleHidesOtherUsersRules(t *testing.T) {
	store := &fakeRuleStore{}
	rs := NewRuleService(store)
	owner := primitive.NewObjectID()

	require.NoError(t, rs.EnsureBuiltinRules(context.Background(), owner))
	frost, err := store.GetByName(context.Background(), owner, "weather.frost")
	require.NoError(t, err)

	_, err = rs.GetRule(context.Background(), primitive.NewObjectID(), frost.ID.Hex())
	require.Error(t, err)
	svcErr, ok := utils.GetServiceError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ErrCodeNotFound, svcErr.Code)
}

func TestCreateRuleValidatesParams(t *testing.T) {
	rs := NewRuleService(&fakeRuleStore{})
	userID := primitive.NewObjectID()

	_, err := rs.CreateRule(context.Background(), userID, &models.CreateRuleRequest{
		Name:   "my.rule",
		Type:   "weather",
		Params: map[string]interface{}{"actions": []interface{}{}},
	})
	assert.Error(t, err)

	_, err = rs.CreateRule(context.Background(), userID, &models.CreateRuleRequest{
		Name:   "my.timer",
		Type:   "time",
		Params: map[string]interface{}{"actions": []interface{}{map[string]interface{}{"do": "notify", "title": "Hi"}}},
	})
	assert.Error(t, err, "time rules without a schedule are rejected")
}

func TestCreateRuleStoresNormalizedParams(t *testing.T) {
	store := &fakeRuleStore{}
	rs := NewRuleService(store)
	userID := primitive.NewObjectID()

	rule, err := rs.CreateRule(context.Background(), userID, &models.CreateRuleRequest{
		Name:     "evening.check",
		Type:     "time",
		Schedule: "FREQ=DAILY;BYHOUR=18",
		Params: map[string]interface{}{
			"actions": []interface{}{map[string]interface{}{"do": "notify", "title": "Evening rounds"}},
		},
		ThrottleSecs: 3600,
	})
	require.NoError(t, err)

	assert.True(t, rule.IsEnabled)
	assert.False(t, rule.IsBuiltin)

	params, err := rule.DecodeParams()
	require.NoError(t, err)
	timeParams := params.(models.TimeParams)
	require.Len(t, timeParams.Actions, 1)
	notify := timeParams.Actions[0].(models.NotifyAction)
	assert.Equal(t, models.SeverityInfo, notify.Severity)
}

func TestUpdateRuleValidatesAgainstExistingType(t *testing.T) {
	store := &fakeRuleStore{}
	rs := NewRuleService(store)
	userID := primitive.NewObjectID()

	rule, err := rs.CreateRule(context.Background(), userID, &models.CreateRuleRequest{
		Name: "my.weather",
		Type: "weather",
		Params: map[string]interface{}{
			"precipProbNext24hGte": 0.5,
			"actions":              []interface{}{map[string]interface{}{"do": "notify", "title": "Rain"}},
		},
	})
	require.NoError(t, err)

	// Soil-shaped params do not fit a weather rule.
	_, err = rs.UpdateRule(context.Background(), userID, rule.ID.Hex(), &models.UpdateRuleRequest{
		Params: map[string]interface{}{
			"soilTemp10cmGte": 12,
			"actions":         []interface{}{map[string]interface{}{"do": "notify", "title": "Rain"}},
		},
	})
	assert.Error(t, err)

	enabled := false
	updated, err := rs.UpdateRule(context.Background(), userID, rule.ID.Hex(), &models.UpdateRuleRequest{
		IsEnabled: &enabled,
	})
	require.NoError(t, err)
	assert.False(t, updated.IsEnabled)
}

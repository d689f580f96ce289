package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/natek434/gardenit/interfaces"
	"github.com/natek434/gardenit/models"
	"github.com/natek434/gardenit/utils"
)

// RuleService owns the rule lifecycle: CRUD for the API surface and
// idempotent provisioning of the built-in catalog before each
// evaluation sweep.
type RuleService struct {
	rules interfaces.RuleStore
}

func NewRuleService(rules interfaces.RuleStore) *RuleService {
	return &RuleService{rules: rules}
}

type builtinRule struct {
	Name         string
	Type         models.RuleType
	Schedule     string
	Params       models.RuleParams
	ThrottleSecs int
}

func floatPtr(v float64) *float64 { return &v }

// builtinCatalog is the stock rule set every notifiable user gets.
// Provisioning only ever inserts missing names; users may disable or
// retune individual rules and their edits survive every sweep.
func builtinCatalog() []builtinRule {
	return []builtinRule{
		{
			Name:     "morning.digest",
			Type:     models.RuleTime,
			Schedule: "FREQ=DAILY;BYHOUR=7;BYMINUTE=0",
			Params: models.TimeParams{
				Actions: []models.Action{models.DigestAction{}},
			},
			ThrottleSecs: 21600,
		},
		{
			Name:     "weekly.planning",
			Type:     models.RuleTime,
			Schedule: "FREQ=WEEKLY;BYDAY=SU;BYHOUR=16",
			Params: models.TimeParams{
				Actions: []models.Action{models.NotifyAction{
					Title:    "Plan your garden week",
					Body:     "Take a few minutes to review beds, sowing dates and upcoming tasks.",
					Severity: models.SeverityInfo,
					Channel:  models.ChannelInApp,
				}},
			},
			ThrottleSecs: 86400,
		},
		{
			Name: "weather.rain",
			Type: models.RuleWeather,
			Params: models.WeatherParams{
				PrecipProbNext24hGte: floatPtr(0.6),
				Actions: []models.Action{
					models.NotifyAction{
						Title:    "Rain expected",
						Body:     "Heavy rain is likely in the next 24 hours. Watering tasks have been pushed back.",
						Severity: models.SeverityInfo,
						Channel:  models.ChannelInApp,
					},
					models.SuppressTasksAction{TaskType: "watering", DueWithinHours: 18},
				},
			},
			ThrottleSecs: 21600,
		},
		{
			Name: "weather.frost",
			Type: models.RuleWeather,
			Params: models.WeatherParams{
				FrostProbGte: floatPtr(0.3),
				MinTempLte:   floatPtr(0),
				Actions: []models.Action{models.NotifyAction{
					Title:    "Frost warning",
					Body:     "Temperatures may drop below freezing tonight. Cover or move frost-sensitive plants.",
					Severity: models.SeverityCritical,
					Channel:  models.ChannelPush,
				}},
			},
			ThrottleSecs: 43200,
		},
		{
			Name: "weather.heat",
			Type: models.RuleWeather,
			Params: models.WeatherParams{
				MaxTempTomorrowGte: floatPtr(32),
				Actions: []models.Action{models.NotifyAction{
					Title:    "Heat warning",
					Body:     "Tomorrow will be very hot. Water early and shade tender crops.",
					Severity: models.SeverityWarning,
					Channel:  models.ChannelInApp,
				}},
			},
			ThrottleSecs: 43200,
		},
		{
			Name: "weather.wind",
			Type: models.RuleWeather,
			Params: models.WeatherParams{
				GustsNext24hGte: floatPtr(60),
				Actions: []models.Action{models.NotifyAction{
					Title:    "Strong wind expected",
					Body:     "Gusts above 60 km/h are forecast. Secure covers, stakes and cold frames.",
					Severity: models.SeverityWarning,
					Channel:  models.ChannelInApp,
				}},
			},
			ThrottleSecs: 21600,
		},
		{
			Name: "soil.sowing",
			Type: models.RuleSoil,
			Params: models.SoilParams{
				SoilTemp10cmGte: 12,
				Species:         []string{"beans", "squash", "cucumber", "corn"},
				Actions: []models.Action{models.NotifyAction{
					Title:    "Soil is warm enough to sow",
					Body:     "The soil has reached sowing temperature for:",
					Severity: models.SeverityInfo,
					Channel:  models.ChannelEmail,
				}},
			},
			ThrottleSecs: 172800,
		},
		{
			Name: "crop.maturity",
			Type: models.RulePhenology,
			Params: models.PhenologyParams{
				MaturityPctGte: 0.8,
				Actions: []models.Action{models.NotifyAction{
					Title:    "Crops approaching harvest",
					Body:     "These plantings are close to maturity, start checking them:",
					Severity: models.SeverityInfo,
					Channel:  models.ChannelInApp,
				}},
			},
			ThrottleSecs: 86400,
		},
		{
			Name: "tasks.overdue",
			Type: models.RuleGarden,
			Params: models.GardenParams{
				OverdueTaskHoursGte: 48,
				FocusOnly:           true,
				Actions: []models.Action{models.EscalateAction{
					Title:   "Focus tasks are falling behind",
					Body:    "These tasks have been overdue for more than two days:",
					Channel: models.ChannelEmail,
				}},
			},
			ThrottleSecs: 86400,
		},
	}
}

// EnsureBuiltinRules inserts any missing built-in rule for the user.
// Existing rules are never touched, so a user who disabled
// weather.frost stays opted out. Concurrent sweeps racing on the same
// user are resolved by the unique (userId, name) index.
func (rs *RuleService) EnsureBuiltinRules(ctx context.Context, userID primitive.ObjectID) error {
	for _, builtin := range builtinCatalog() {
		existing, err := rs.rules.GetByName(ctx, userID, builtin.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		rule := &models.NotificationRule{
			UserID:       userID,
			Name:         builtin.Name,
			Type:         builtin.Type,
			Schedule:     builtin.Schedule,
			Params:       builtin.Params.Document(),
			ThrottleSecs: builtin.ThrottleSecs,
			IsEnabled:    true,
			IsBuiltin:    true,
		}
		if err := rs.rules.Create(ctx, rule); err != nil {
			return err
		}
		logrus.Debugf("Provisioned built-in rule %s for user %s", builtin.Name, userID.Hex())
	}
	return nil
}

// ListRules returns all of the user's rules, built-in and custom.
func (rs *RuleService) ListRules(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationRule, error) {
	return rs.rules.ListByUser(ctx, userID)
}

func (rs *RuleService) GetRule(ctx context.Context, userID primitive.ObjectID, id string) (*models.NotificationRule, error) {
	rule, err := rs.rules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil || rule.UserID != userID {
		return nil, utils.NewNotFoundError("rule")
	}
	return rule, nil
}

// CreateRule validates and stores a custom rule. Params are decoded
// through the same closed param types the engine evaluates with, so a
// rule that stores successfully is a rule that can fire.
func (rs *RuleService) CreateRule(ctx context.Context, userID primitive.ObjectID, req *models.CreateRuleRequest) (*models.NotificationRule, error) {
	ruleType := models.RuleType(req.Type)
	params, err := models.DecodeRuleParams(ruleType, req.Params)
	if err != nil {
		return nil, utils.NewBadRequestError(err.Error())
	}
	if ruleType == models.RuleTime && req.Schedule == "" {
		return nil, utils.NewBadRequestError("time rules require a schedule")
	}

	rule := &models.NotificationRule{
		UserID:       userID,
		Name:         req.Name,
		Type:         ruleType,
		Schedule:     req.Schedule,
		Params:       params.Document(),
		ThrottleSecs: req.ThrottleSecs,
		IsEnabled:    true,
	}
	if err := rs.rules.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule applies a partial update. The rule type is immutable;
// changing families means creating a new rule.
func (rs *RuleService) UpdateRule(ctx context.Context, userID primitive.ObjectID, id string, req *models.UpdateRuleRequest) (*models.NotificationRule, error) {
	rule, err := rs.GetRule(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Schedule != nil {
		rule.Schedule = *req.Schedule
	}
	if req.Params != nil {
		params, err := models.DecodeRuleParams(rule.Type, req.Params)
		if err != nil {
			return nil, utils.NewBadRequestError(err.Error())
		}
		rule.Params = params.Document()
	}
	if req.ThrottleSecs != nil {
		rule.ThrottleSecs = *req.ThrottleSecs
	}
	if req.IsEnabled != nil {
		rule.IsEnabled = *req.IsEnabled
	}

	if err := rs.rules.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (rs *RuleService) SetRuleEnabled(ctx context.Context, userID primitive.ObjectID, id string, enabled bool) error {
	return rs.rules.SetEnabled(ctx, userID, id, enabled)
}

// DeleteRule removes a rule. Notifications it produced are retained.
// Built-in rules can be deleted but will be re-provisioned on the next
// sweep; disabling is the supported opt-out.
func (rs *RuleService) DeleteRule(ctx context.Context, userID primitive.ObjectID, id string) error {
	return rs.rules.Delete(ctx, userID, id)
}

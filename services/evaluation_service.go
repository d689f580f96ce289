package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/natek434/gardenit/interfaces"
	"github.com/natek434/gardenit/models"
	"github.com/natek434/gardenit/utils"
)

// EvaluationService runs a user's enabled rules against their current
// context. Each rule is evaluated independently; a panic or error in
// one rule never stops the others.
type EvaluationService struct {
	rules       interfaces.RuleStore
	context     *ContextService
	actions     *ActionService
	ruleService *RuleService
}

func NewEvaluationService(
	rules interfaces.RuleStore,
	contextService *ContextService,
	actions *ActionService,
	ruleService *RuleService,
) *EvaluationService {
	return &EvaluationService{
		rules:       rules,
		context:     contextService,
		actions:     actions,
		ruleService: ruleService,
	}
}

// EvaluateUser provisions the built-in rules for the user, builds the
// evaluation context once, then runs every enabled rule against it.
func (es *EvaluationService) EvaluateUser(ctx context.Context, ref time.Time, user models.User) error {
	if err := es.ruleService.EnsureBuiltinRules(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to provision rules for user %s: %w", user.ID.Hex(), err)
	}

	uctx, err := es.context.Build(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to build context for user %s: %w", user.ID.Hex(), err)
	}

	rules, err := es.rules.ListEnabledByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to list rules for user %s: %w", user.ID.Hex(), err)
	}

	for i := range rules {
		rule := &rules[i]
		es.evaluateGuarded(ctx, ref, rule, uctx)
	}
	return nil
}

func (es *EvaluationService) evaluateGuarded(ctx context.Context, ref time.Time, rule *models.NotificationRule, uctx *UserContext) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Rule %s panicked for user %s: %v", rule.Name, uctx.User.ID.Hex(), r)
		}
	}()

	if err := es.EvaluateRule(ctx, ref, rule, uctx); err != nil {
		logrus.WithFields(logrus.Fields{
			"rule":    rule.Name,
			"user_id": uctx.User.ID.Hex(),
		}).Errorf("Rule evaluation failed: %v", err)
	}
}

// EvaluateRule decodes the rule's params and dispatches to the
// family-specific evaluator.
func (es *EvaluationService) EvaluateRule(ctx context.Context, ref time.Time, rule *models.NotificationRule, uctx *UserContext) error {
	params, err := rule.DecodeParams()
	if err != nil {
		return utils.NewRuleEvaluationError(rule.Name, err)
	}

	switch p := params.(type) {
	case models.TimeParams:
		return es.evaluateTimeRule(ctx, ref, rule, p, uctx)
	case models.WeatherParams:
		return es.evaluateWeatherRule(ctx, ref, rule, p, uctx)
	case models.SoilParams:
		return es.evaluateSoilRule(ctx, ref, rule, p, uctx)
	case models.PhenologyParams:
		return es.evaluatePhenologyRule(ctx, ref, rule, p, uctx)
	case models.GardenParams:
		return es.evaluateGardenRule(ctx, ref, rule, p, uctx)
	default:
		return utils.NewRuleEvaluationError(rule.Name, fmt.Errorf("unsupported rule type %q", rule.Type))
	}
}

// evaluateTimeRule fires when the rule's schedule matches the current
// instant in the user's local timezone. The weather snapshot's
// timezone wins over the profile timezone because it reflects where
// the garden actually is.
func (es *EvaluationService) evaluateTimeRule(ctx context.Context, ref time.Time, rule *models.NotificationRule, params models.TimeParams, uctx *UserContext) error {
	local := ref.In(uctx.Location())
	if !utils.MatchesSchedule(rule.Schedule, local) {
		return nil
	}
	return es.dispatch(ctx, ref, rule, params.Actions, uctx, nil)
}

// evaluateWeatherRule checks the configured thresholds against the
// snapshot in a fixed order and fires on the first one that trips.
// A threshold whose reading is missing from the snapshot is skipped.
func (es *EvaluationService) evaluateWeatherRule(ctx context.Context, ref time.Time, rule *models.NotificationRule, params models.WeatherParams, uctx *UserContext) error {
	w := uctx.Weather
	if w == nil {
		logrus.Debugf("Rule %s skipped for user %s: no weather snapshot", rule.Name, uctx.User.ID.Hex())
		return nil
	}

	fired := ""
	switch {
	case gte(w.PrecipProbNext24h, params.PrecipProbNext24hGte):
		fired = "rain"
	case frostTrips(w, params):
		fired = "frost"
	case gte(w.MaxTempTomorrow, params.MaxTempTomorrowGte):
		fired = "heat"
	case gte(w.GustsNext24h, params.GustsNext24hGte):
		fired = "wind"
	}
	if fired == "" {
		return nil
	}

	meta := map[string]interface{}{"trigger": fired}
	return es.dispatch(ctx, ref, rule, params.Actions, uctx, meta)
}

// evaluateSoilRule fires when the 10 cm soil temperature reaches the
// threshold and the user actually grows one of the listed species.
// Species match on a case-insensitive substring of the crop name, so
// "beans" covers "Dwarf Beans".
func (es *EvaluationService) evaluateSoilRule(ctx context.Context, ref time.Time, rule *models.NotificationRule, params models.SoilParams, uctx *UserContext) error {
	w := uctx.Weather
	if w == nil || w.SoilTemp10cm == nil || *w.SoilTemp10cm < params.SoilTemp10cmGte {
		return nil
	}

	var matched []string
	for _, p := range uctx.Plantings {
		for _, species := range params.Species {
			if strings.Contains(strings.ToLower(p.CommonName), strings.ToLower(species)) {
				matched = append(matched, p.CommonName)
				break
			}
		}
	}
	if len(matched) == 0 {
		return nil
	}

	meta := map[string]interface{}{
		"soilTemp": *w.SoilTemp10cm,
		"crops":    matched,
	}
	return es.dispatchWithSuffix(ctx, ref, rule, params.Actions, uctx, meta, strings.Join(matched, ", "))
}

// evaluatePhenologyRule fires for plantings whose elapsed share of
// days-to-maturity has reached the threshold. The boundary is
// inclusive.
func (es *EvaluationService) evaluatePhenologyRule(ctx context.Context, ref time.Time, rule *models.NotificationRule, params models.PhenologyParams, uctx *UserContext) error {
	var matured []string
	for _, p := range uctx.Plantings {
		if p.DaysToMaturity <= 0 {
			continue
		}
		elapsed := ref.Sub(p.StartDate).Hours() / 24
		if elapsed/float64(p.DaysToMaturity) >= params.MaturityPctGte {
			matured = append(matured, fmt.Sprintf("%s (%s)", p.CommonName, p.BedName))
		}
	}
	if len(matured) == 0 {
		return nil
	}

	meta := map[string]interface{}{"plantings": matured}
	return es.dispatchWithSuffix(ctx, ref, rule, params.Actions, uctx, meta, strings.Join(matured, ", "))
}

// evaluateGardenRule fires when reminders have been overdue and
// unhandled for at least the threshold. With focusOnly set, only
// reminders pinned as focus tasks count.
func (es *EvaluationService) evaluateGardenRule(ctx context.Context, ref time.Time, rule *models.NotificationRule, params models.GardenParams, uctx *UserContext) error {
	focused := make(map[string]bool)
	if params.FocusOnly {
		for _, item := range uctx.FocusItems {
			if item.Kind == models.FocusTask {
				focused[item.TargetID.Hex()] = true
			}
		}
	}

	var overdue []string
	for _, r := range uctx.Reminders {
		if r.Handled() {
			continue
		}
		if r.OverdueHours(ref) < params.OverdueTaskHoursGte {
			continue
		}
		if params.FocusOnly && !focused[r.ID.Hex()] {
			continue
		}
		overdue = append(overdue, r.Title)
	}
	if len(overdue) == 0 {
		return nil
	}

	meta := map[string]interface{}{"tasks": overdue}
	return es.dispatchWithSuffix(ctx, ref, rule, params.Actions, uctx, meta, strings.Join(overdue, ", "))
}

// dispatch executes a rule's action list in order. Action failures
// are returned after the remaining actions have run, so a broken
// mail transport never blocks a task suppression queued behind it.
func (es *EvaluationService) dispatch(ctx context.Context, ref time.Time, rule *models.NotificationRule, actions []models.Action, uctx *UserContext, meta map[string]interface{}) error {
	return es.dispatchWithSuffix(ctx, ref, rule, actions, uctx, meta, "")
}

func (es *EvaluationService) dispatchWithSuffix(ctx context.Context, ref time.Time, rule *models.NotificationRule, actions []models.Action, uctx *UserContext, meta map[string]interface{}, suffix string) error {
	var firstErr error
	for _, action := range actions {
		var err error
		switch a := action.(type) {
		case models.NotifyAction:
			if suffix != "" {
				a.Body = strings.TrimSpace(a.Body) + " " + suffix
			}
			_, err = es.actions.Notify(ctx, ref, uctx.User, rule, a, meta)
		case models.SuppressTasksAction:
			_, err = es.actions.SuppressTasks(ctx, ref, uctx, a)
		case models.DigestAction:
			_, err = es.actions.Digest(ctx, ref, uctx, rule)
		case models.EscalateAction:
			if suffix != "" {
				a.Body = strings.TrimSpace(a.Body) + " " + suffix
			}
			_, err = es.actions.Escalate(ctx, ref, uctx.User, rule, a, meta)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return utils.NewRuleEvaluationError(rule.Name, firstErr)
	}
	return nil
}

// frostTrips checks the two frost bounds conjunctively. An absent
// bound counts as satisfied, but at least one of the two must be
// configured or the branch stays inert for rules that only set other
// weather thresholds.
func frostTrips(w *models.WeatherSnapshot, params models.WeatherParams) bool {
	if params.FrostProbGte == nil && params.MinTempLte == nil {
		return false
	}
	if params.FrostProbGte != nil && !gte(w.FrostProbability, params.FrostProbGte) {
		return false
	}
	if params.MinTempLte != nil && !lte(w.MinTempNext24h, params.MinTempLte) {
		return false
	}
	return true
}

func gte(reading, threshold *float64) bool {
	return reading != nil && threshold != nil && *reading >= *threshold
}

func lte(reading, threshold *float64) bool {
	return reading != nil && threshold != nil && *reading <= *threshold
}

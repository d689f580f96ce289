package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RuleType string

const (
	RuleTime      RuleType = "time"
	RuleWeather   RuleType = "weather"
	RuleSoil      RuleType = "soil"
	RulePhenology RuleType = "phenology"
	RuleGarden    RuleType = "garden"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Channel string

const (
	ChannelInApp Channel = "inapp"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// DefaultThrottleSecs is the minimum window between two firings of the
// same rule for the same user unless the rule overrides it.
const DefaultThrottleSecs = 21600

// NotificationRule is a user's conditional notification rule. Params is
// kept as the raw stored document; DecodeParams validates and converts
// it into the typed variant for the rule type at the store boundary.
type NotificationRule struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID primitive.ObjectID `json:"userId" bson:"userId"`

	Name string   `json:"name" bson:"name"`
	Type RuleType `json:"type" bson:"type"`

	// Recurrence expression, required for time rules. A time rule with
	// no schedule never fires.
	Schedule string `json:"schedule,omitempty" bson:"schedule,omitempty"`

	Params       bson.M `json:"params" bson:"params"`
	ThrottleSecs int    `json:"throttleSecs" bson:"throttleSecs"`
	IsEnabled    bool   `json:"isEnabled" bson:"isEnabled"`
	IsBuiltin    bool   `json:"isBuiltin" bson:"isBuiltin"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (r *NotificationRule) Throttle() time.Duration {
	secs := r.ThrottleSecs
	if secs <= 0 {
		secs = DefaultThrottleSecs
	}
	return time.Duration(secs) * time.Second
}

// DecodeParams converts the stored params document into the typed
// variant for the rule's type.
func (r *NotificationRule) DecodeParams() (RuleParams, error) {
	return DecodeRuleParams(r.Type, r.Params)
}

// ========================
// Typed rule params
// ========================

// RuleParams is the closed set of per-type parameter shapes.
type RuleParams interface {
	RuleType() RuleType
	Document() bson.M
	ruleParams()
}

type TimeParams struct {
	Actions []Action
}

type WeatherParams struct {
	// Threshold checks, evaluated in fixed order: rain, frost, heat,
	// wind. The first matching check executes Actions and stops.
	PrecipProbNext24hGte *float64
	FrostProbGte         *float64
	MinTempLte           *float64
	MaxTempTomorrowGte   *float64
	GustsNext24hGte      *float64

	Actions []Action
}

type SoilParams struct {
	SoilTemp10cmGte float64
	Species         []string

	Actions []Action
}

type PhenologyParams struct {
	MaturityPctGte float64 // default 0.8

	Actions []Action
}

type GardenParams struct {
	OverdueTaskHoursGte float64 // default 48
	FocusOnly           bool

	Actions []Action
}

func (TimeParams) RuleType() RuleType      { return RuleTime }
func (WeatherParams) RuleType() RuleType   { return RuleWeather }
func (SoilParams) RuleType() RuleType      { return RuleSoil }
func (PhenologyParams) RuleType() RuleType { return RulePhenology }
func (GardenParams) RuleType() RuleType    { return RuleGarden }

func (TimeParams) ruleParams()      {}
func (WeatherParams) ruleParams()   {}
func (SoilParams) ruleParams()      {}
func (PhenologyParams) ruleParams() {}
func (GardenParams) ruleParams()    {}

func (p TimeParams) Document() bson.M {
	return bson.M{"actions": encodeActions(p.Actions)}
}

func (p WeatherParams) Document() bson.M {
	doc := bson.M{"actions": encodeActions(p.Actions)}
	if p.PrecipProbNext24hGte != nil {
		doc["precipProbNext24hGte"] = *p.PrecipProbNext24hGte
	}
	if p.FrostProbGte != nil {
		doc["frostProbGte"] = *p.FrostProbGte
	}
	if p.MinTempLte != nil {
		doc["minTempLte"] = *p.MinTempLte
	}
	if p.MaxTempTomorrowGte != nil {
		doc["maxTempTomorrowGte"] = *p.MaxTempTomorrowGte
	}
	if p.GustsNext24hGte != nil {
		doc["gustsNext24hGte"] = *p.GustsNext24hGte
	}
	return doc
}

func (p SoilParams) Document() bson.M {
	species := make([]interface{}, 0, len(p.Species))
	for _, s := range p.Species {
		species = append(species, s)
	}
	return bson.M{
		"soilTemp10cmGte": p.SoilTemp10cmGte,
		"species":         species,
		"actions":         encodeActions(p.Actions),
	}
}

func (p PhenologyParams) Document() bson.M {
	return bson.M{
		"maturityGDDPctGte": p.MaturityPctGte,
		"actions":           encodeActions(p.Actions),
	}
}

func (p GardenParams) Document() bson.M {
	return bson.M{
		"overdueTaskHoursGte": p.OverdueTaskHoursGte,
		"focusOnly":           p.FocusOnly,
		"actions":             encodeActions(p.Actions),
	}
}

// DecodeRuleParams validates a raw params document against the given
// rule type. Malformed documents are rejected here rather than deep
// inside an evaluator.
func DecodeRuleParams(ruleType RuleType, doc map[string]interface{}) (RuleParams, error) {
	if doc == nil {
		return nil, fmt.Errorf("params document is missing")
	}

	actions, err := decodeActions(doc["actions"])
	if err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("params.actions must contain at least one action")
	}

	switch ruleType {
	case RuleTime:
		return TimeParams{Actions: actions}, nil

	case RuleWeather:
		p := WeatherParams{Actions: actions}
		if p.PrecipProbNext24hGte, err = optionalNumber(doc, "precipProbNext24hGte"); err != nil {
			return nil, err
		}
		if p.FrostProbGte, err = optionalNumber(doc, "frostProbGte"); err != nil {
			return nil, err
		}
		if p.MinTempLte, err = optionalNumber(doc, "minTempLte"); err != nil {
			return nil, err
		}
		if p.MaxTempTomorrowGte, err = optionalNumber(doc, "maxTempTomorrowGte"); err != nil {
			return nil, err
		}
		if p.GustsNext24hGte, err = optionalNumber(doc, "gustsNext24hGte"); err != nil {
			return nil, err
		}
		if p.PrecipProbNext24hGte == nil && p.FrostProbGte == nil && p.MinTempLte == nil &&
			p.MaxTempTomorrowGte == nil && p.GustsNext24hGte == nil {
			return nil, fmt.Errorf("weather params need at least one threshold")
		}
		return p, nil

	case RuleSoil:
		threshold, err := optionalNumber(doc, "soilTemp10cmGte")
		if err != nil {
			return nil, err
		}
		if threshold == nil {
			return nil, fmt.Errorf("soil params require soilTemp10cmGte")
		}
		species, err := decodeStringList(doc["species"])
		if err != nil {
			return nil, fmt.Errorf("soil params species: %w", err)
		}
		if len(species) == 0 {
			return nil, fmt.Errorf("soil params require a species list")
		}
		return SoilParams{SoilTemp10cmGte: *threshold, Species: species, Actions: actions}, nil

	case RulePhenology:
		p := PhenologyParams{MaturityPctGte: 0.8, Actions: actions}
		if v, err := optionalNumber(doc, "maturityGDDPctGte"); err != nil {
			return nil, err
		} else if v != nil {
			p.MaturityPctGte = *v
		}
		return p, nil

	case RuleGarden:
		p := GardenParams{OverdueTaskHoursGte: 48, Actions: actions}
		if v, err := optionalNumber(doc, "overdueTaskHoursGte"); err != nil {
			return nil, err
		} else if v != nil {
			p.OverdueTaskHoursGte = *v
		}
		if raw, ok := doc["focusOnly"]; ok {
			b, ok := raw.(bool)
			if !ok {
				return nil, fmt.Errorf("focusOnly must be a boolean")
			}
			p.FocusOnly = b
		}
		return p, nil
	}

	return nil, fmt.Errorf("unknown rule type %q", ruleType)
}

// ========================
// Typed actions
// ========================

type ActionKind string

const (
	ActionNotify        ActionKind = "notify"
	ActionSuppressTasks ActionKind = "suppress_tasks"
	ActionDigest        ActionKind = "digest"
	ActionEscalate      ActionKind = "escalate"
)

// Action is the closed set of things a fired rule can do. Dispatch
// switches exhaustively on the concrete type; an unhandled kind is a
// programming error surfaced at decode time.
type Action interface {
	Kind() ActionKind
	action()
}

type NotifyAction struct {
	Title    string
	Body     string
	Severity Severity
	Channel  Channel
}

type SuppressTasksAction struct {
	TaskType       string
	DueWithinHours float64 // default 18
}

type DigestAction struct{}

type EscalateAction struct {
	Title   string
	Body    string
	Channel Channel
}

func (NotifyAction) Kind() ActionKind        { return ActionNotify }
func (SuppressTasksAction) Kind() ActionKind { return ActionSuppressTasks }
func (DigestAction) Kind() ActionKind        { return ActionDigest }
func (EscalateAction) Kind() ActionKind      { return ActionEscalate }

func (NotifyAction) action()        {}
func (SuppressTasksAction) action() {}
func (DigestAction) action()        {}
func (EscalateAction) action()      {}

func encodeActions(actions []Action) []interface{} {
	out := make([]interface{}, 0, len(actions))
	for _, a := range actions {
		switch act := a.(type) {
		case NotifyAction:
			out = append(out, bson.M{
				"do":       string(ActionNotify),
				"title":    act.Title,
				"body":     act.Body,
				"severity": string(act.Severity),
				"channel":  string(act.Channel),
			})
		case SuppressTasksAction:
			out = append(out, bson.M{
				"do": string(ActionSuppressTasks),
				"where": bson.M{
					"type":           act.TaskType,
					"dueWithinHours": act.DueWithinHours,
				},
			})
		case DigestAction:
			out = append(out, bson.M{"do": string(ActionDigest)})
		case EscalateAction:
			out = append(out, bson.M{
				"do":      string(ActionEscalate),
				"title":   act.Title,
				"body":    act.Body,
				"channel": string(act.Channel),
			})
		}
	}
	return out
}

func decodeActions(raw interface{}) ([]Action, error) {
	if raw == nil {
		return nil, nil
	}

	list, err := asList(raw)
	if err != nil {
		return nil, fmt.Errorf("params.actions: %w", err)
	}

	actions := make([]Action, 0, len(list))
	for i, item := range list {
		doc, err := asDocument(item)
		if err != nil {
			return nil, fmt.Errorf("params.actions[%d]: %w", i, err)
		}

		tag, _ := doc["do"].(string)
		switch ActionKind(strings.ToLower(tag)) {
		case ActionNotify:
			act, err := decodeNotifyAction(doc)
			if err != nil {
				return nil, fmt.Errorf("params.actions[%d]: %w", i, err)
			}
			actions = append(actions, act)

		case ActionSuppressTasks:
			act, err := decodeSuppressAction(doc)
			if err != nil {
				return nil, fmt.Errorf("params.actions[%d]: %w", i, err)
			}
			actions = append(actions, act)

		case ActionDigest:
			actions = append(actions, DigestAction{})

		case ActionEscalate:
			act, err := decodeEscalateAction(doc)
			if err != nil {
				return nil, fmt.Errorf("params.actions[%d]: %w", i, err)
			}
			actions = append(actions, act)

		default:
			return nil, fmt.Errorf("params.actions[%d]: unknown action kind %q", i, tag)
		}
	}
	return actions, nil
}

func decodeNotifyAction(doc map[string]interface{}) (NotifyAction, error) {
	act := NotifyAction{
		Severity: SeverityInfo,
		Channel:  ChannelInApp,
	}

	act.Title, _ = doc["title"].(string)
	act.Body, _ = doc["body"].(string)
	if act.Title == "" {
		return act, fmt.Errorf("notify action requires a title")
	}

	if raw, ok := doc["severity"].(string); ok && raw != "" {
		sev := Severity(strings.ToLower(raw))
		switch sev {
		case SeverityInfo, SeverityWarning, SeverityCritical:
			act.Severity = sev
		default:
			return act, fmt.Errorf("unknown severity %q", raw)
		}
	}

	if raw, ok := doc["channel"].(string); ok && raw != "" {
		ch := Channel(strings.ToLower(raw))
		switch ch {
		case ChannelInApp, ChannelEmail, ChannelPush:
			act.Channel = ch
		default:
			return act, fmt.Errorf("unknown channel %q", raw)
		}
	}

	return act, nil
}

func decodeSuppressAction(doc map[string]interface{}) (SuppressTasksAction, error) {
	act := SuppressTasksAction{DueWithinHours: 18}

	where, err := asDocument(doc["where"])
	if err != nil {
		return act, fmt.Errorf("suppress_tasks requires a where clause: %w", err)
	}

	act.TaskType, _ = where["type"].(string)
	if act.TaskType == "" {
		return act, fmt.Errorf("suppress_tasks where clause requires a task type")
	}

	if v, err := optionalNumber(where, "dueWithinHours"); err != nil {
		return act, err
	} else if v != nil {
		act.DueWithinHours = *v
	}

	return act, nil
}

func decodeEscalateAction(doc map[string]interface{}) (EscalateAction, error) {
	act := EscalateAction{Channel: ChannelInApp}

	act.Title, _ = doc["title"].(string)
	act.Body, _ = doc["body"].(string)
	if act.Title == "" {
		return act, fmt.Errorf("escalate action requires a title")
	}

	if raw, ok := doc["channel"].(string); ok && raw != "" {
		ch := Channel(strings.ToLower(raw))
		switch ch {
		case ChannelInApp, ChannelEmail, ChannelPush:
			act.Channel = ch
		default:
			return act, fmt.Errorf("unknown channel %q", raw)
		}
	}

	return act, nil
}

// ========================
// Decode helpers
// ========================

// optionalNumber reads a numeric field that BSON may have stored as
// int32, int64 or float64 (and JSON as float64).
func optionalNumber(doc map[string]interface{}, key string) (*float64, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return nil, nil
	}

	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	default:
		return nil, fmt.Errorf("%s must be a number, got %T", key, raw)
	}
	return &v, nil
}

func asList(raw interface{}) ([]interface{}, error) {
	switch list := raw.(type) {
	case []interface{}:
		return list, nil
	case bson.A:
		return []interface{}(list), nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}
}

func asDocument(raw interface{}) (map[string]interface{}, error) {
	switch doc := raw.(type) {
	case map[string]interface{}:
		return doc, nil
	case bson.M:
		return map[string]interface{}(doc), nil
	case bson.D:
		return doc.Map(), nil
	default:
		return nil, fmt.Errorf("expected a document, got %T", raw)
	}
}

func decodeStringList(raw interface{}) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	list, err := asList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}

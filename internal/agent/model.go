package agent

import (
	"time"

	"github.com/krishimitra/krishimitra/internal/farm"
	"github.com/krishimitra/krishimitra/internal/memory"
	"github.com/krishimitra/krishimitra/internal/providers"
)

// OpKind is one of the four CRUD operation kinds an action can request.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpRead   OpKind = "read"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Entity names a resource an action operates on. Weather, soil, market,
// disease and recommendation are read-only.
type Entity string

const (
	EntityProfile        Entity = "profile"
	EntityCrop           Entity = "crop"
	EntityTask           Entity = "task"
	EntityNotification   Entity = "notification"
	EntityHealth         Entity = "health"
	EntityWeather        Entity = "weather"
	EntitySoil           Entity = "soil"
	EntityMarket         Entity = "market"
	EntityDisease        Entity = "disease"
	EntityRecommendation Entity = "recommendation"
)

// Intent labels produced by the fast-path classifier and canned decisions.
const (
	IntentGreeting        = "greeting"
	IntentHelp            = "help"
	IntentRepair          = "repair"
	IntentWeatherCheck    = "weather_check"
	IntentMarketPrices    = "market_prices"
	IntentSystemError     = "system_error"
	IntentRequestLocation = "request_location"
)

// Action is one requested operation: consumed exactly once by the
// executor, never mutated, echoed back in the actions_taken audit list.
type Action struct {
	Type   OpKind         `json:"type"`
	Entity Entity         `json:"entity"`
	Params map[string]any `json:"params,omitempty"`
}

// Name returns the composite operation name, e.g. "create_task".
func (a Action) Name() string {
	return string(a.Type) + "_" + string(a.Entity)
}

// Decision is the structured output of the decision engine: what to say,
// what the user wants, and which actions to run. Speech is always a
// single line; Actions is never nil.
type Decision struct {
	Speech  string   `json:"speech"`
	Intent  string   `json:"intent"`
	Actions []Action `json:"actions"`
}

// ActionOutcome records one executed action for the response audit list.
type ActionOutcome struct {
	Action  Action `json:"action"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Suggestion is a proactive hint derived from context. Informational
// only, never auto-executed.
type Suggestion struct {
	Text     string  `json:"text"`
	Priority string  `json:"priority"` // high, medium, low
	Action   *Action `json:"action,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// Response is the outward contract of a turn. A failed turn carries
// empty speech: callers must treat empty speech as a hard failure no
// matter what Success says.
type Response struct {
	Success      bool             `json:"success"`
	Speech       string           `json:"speech"`
	Suggestions  []Suggestion     `json:"suggestions"`
	ActionsTaken []ActionOutcome  `json:"actions_taken"`
	UIUpdates    map[string]bool  `json:"ui_updates"`
	Error        string           `json:"error,omitempty"`
	Timings      map[string]int64 `json:"timings"`
}

// TurnContext is the ephemeral per-turn view of everything known about
// the user, rebuilt on every call from memory, the caller payload, and
// derived fields. Never persisted.
type TurnContext struct {
	UserID    string
	Timestamp time.Time
	Language  string

	Lat      float64
	Lon      float64
	Location string
	City     string
	District string
	State    string

	ActiveCrop string

	History     []memory.ConversationEntry
	Preferences map[string]string
	Working     map[string]any
	Profile     *farm.Profile
	Recalled    []memory.RecalledTurn

	// Filled opportunistically during the turn (weather tool, overdue
	// task lookup) and consumed by the suggestion generator.
	Weather      *providers.WeatherSnapshot
	OverdueTasks []farm.Task
}

// HasLocation reports whether any location alias is present: a place
// name, a coordinate pair, or location fields on the profile snapshot.
func (tc *TurnContext) HasLocation() bool {
	if tc.Location != "" || tc.City != "" || tc.District != "" || tc.State != "" {
		return true
	}
	if tc.Lat != 0 && tc.Lon != 0 {
		return true
	}
	if p := tc.Profile; p != nil {
		if p.Village != "" || p.District != "" || p.State != "" {
			return true
		}
		if p.Lat != 0 && p.Lon != 0 {
			return true
		}
	}
	return false
}

package agent

import (
	"fmt"
	"strings"
)

// Gate blocks intents whose required context field is missing, replacing
// the whole decision with a clarification request. Requirements come
// from configuration; an empty table disables gating entirely.
type Gate struct {
	required map[string]string
}

// NewGate builds a gate from an intent -> required-field table.
func NewGate(required map[string]string) *Gate {
	table := make(map[string]string, len(required))
	for intent, field := range required {
		table[intent] = field
	}
	return &Gate{required: table}
}

// Check returns the decision unchanged when its intent has no
// requirement or the requirement is satisfied. Otherwise the decision is
// replaced outright: pending actions are discarded, not deferred.
func (g *Gate) Check(dec Decision, tc *TurnContext) Decision {
	field, gated := g.required[dec.Intent]
	if !gated || hasField(tc, field) {
		return dec
	}
	return clarificationFor(field)
}

func hasField(tc *TurnContext, field string) bool {
	switch field {
	case "location":
		return tc.HasLocation()
	case "active_crop":
		return tc.ActiveCrop != ""
	default:
		v, ok := tc.Working[field]
		return ok && v != nil && v != ""
	}
}

func clarificationFor(field string) Decision {
	switch field {
	case "location":
		return Decision{
			Speech:  "Which village or district are you in? I need your location for that.",
			Intent:  IntentRequestLocation,
			Actions: []Action{},
		}
	case "active_crop":
		return Decision{
			Speech:  "Which crop is this about?",
			Intent:  "request_crop",
			Actions: []Action{},
		}
	default:
		return Decision{
			Speech:  fmt.Sprintf("I need to know your %s first. Could you share it?", strings.ReplaceAll(field, "_", " ")),
			Intent:  "request_" + field,
			Actions: []Action{},
		}
	}
}

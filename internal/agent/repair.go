package agent

import (
	"encoding/json"
	"strings"
)

// rawDecision uses pointer fields so a missing key is distinguishable
// from a present-but-empty one.
type rawDecision struct {
	Speech  *string      `json:"speech"`
	Intent  *string      `json:"intent"`
	Actions *[]rawAction `json:"actions"`
}

type rawAction struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Params map[string]any `json:"params"`
}

// ParseDecision parses model output into a Decision, applying a small
// recovery grammar first: markdown fences are stripped, literal newlines
// inside the speech value are collapsed to spaces, and missing closing
// braces are appended once. Repair is strictly additive; content is
// never invented. Anything still unparseable, or parseable but missing
// any of speech/intent/actions, becomes the fixed system_error decision.
func ParseDecision(raw string) Decision {
	cleaned := stripFences(raw)
	cleaned = collapseSpeechNewlines(cleaned)

	var parsed rawDecision
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		repaired, ok := closeBraces(cleaned)
		if !ok {
			return systemErrorDecision()
		}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			return systemErrorDecision()
		}
	}

	if parsed.Speech == nil || parsed.Intent == nil || parsed.Actions == nil {
		return systemErrorDecision()
	}

	dec := Decision{
		Speech:  singleLine(*parsed.Speech),
		Intent:  strings.TrimSpace(*parsed.Intent),
		Actions: make([]Action, 0, len(*parsed.Actions)),
	}
	for _, ra := range *parsed.Actions {
		dec.Actions = append(dec.Actions, Action{
			Type:   OpKind(strings.ToLower(strings.TrimSpace(ra.Type))),
			Entity: Entity(strings.ToLower(strings.TrimSpace(ra.Entity))),
			Params: ra.Params,
		})
	}
	return dec
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// collapseSpeechNewlines replaces literal newlines inside the "speech"
// string value with spaces. Models occasionally emit multi-line speech,
// which is invalid JSON for a quoted string.
func collapseSpeechNewlines(s string) string {
	key := strings.Index(s, `"speech"`)
	if key < 0 {
		return s
	}
	rest := key + len(`"speech"`)
	colon := strings.Index(s[rest:], ":")
	if colon < 0 {
		return s
	}

	i := rest + colon + 1
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	if i >= len(s) || s[i] != '"' {
		return s
	}

	b := []byte(s)
	for j := i + 1; j < len(b); j++ {
		switch b[j] {
		case '\\':
			j++
		case '\n', '\r':
			b[j] = ' '
		case '"':
			return string(b)
		}
	}
	return string(b)
}

// closeBraces appends missing closing braces when the input has more
// opening than closing ones. The opposite imbalance is not repairable
// without dropping content, so it is left alone and ok is false.
func closeBraces(s string) (string, bool) {
	opens := strings.Count(s, "{")
	closes := strings.Count(s, "}")
	if opens <= closes {
		return s, false
	}
	return s + strings.Repeat("}", opens-closes), true
}

// singleLine collapses all whitespace runs, including newlines, into
// single spaces. Decision speech must be speakable as one line.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package agent

import (
	"regexp"
	"strings"
)

// patternGroup is one named fast-path intent with its trigger patterns.
type patternGroup struct {
	intent   string
	patterns []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		out[i] = regexp.MustCompile(expr)
	}
	return out
}

// Ordered: the first group with any matching pattern wins. Input is
// lower-cased before matching, so patterns are written in lower case.
var fastPatterns = []patternGroup{
	{
		intent: IntentGreeting,
		patterns: compile(
			`^(hi|hii+|hello|hey|namaste|namaskar|namaskaram)\b`,
			`^good (morning|afternoon|evening)\b`,
		),
	},
	{
		intent: IntentHelp,
		patterns: compile(
			`\bwhat can you do\b`,
			`\bhow (can|do) you help\b`,
			`^help\b`,
		),
	},
	{
		intent: IntentRepair,
		patterns: compile(
			`\b(repeat|say (that|it) again)\b`,
			`\bwhat did you (just )?say\b`,
			`\b(pardon|come again)\b`,
		),
	},
	{
		intent: IntentWeatherCheck,
		patterns: compile(
			`\bweather\b`,
			`\brain(ing|fall)?\b`,
			`\bforecast\b`,
			`\btemperature\b`,
			`\bbarish\b`,
		),
	},
	{
		intent: IntentMarketPrices,
		patterns: compile(
			`\b(price|prices|rate|rates)\b`,
			`\bmandi\b`,
			`\bbhav\b`,
			`\bmarket\b`,
		),
	},
}

// DetectFastIntent maps raw text to a fast-path intent label without
// touching the LLM. First matching group wins; ok is false when nothing
// matches and the decision engine must fall through to the LLM.
func DetectFastIntent(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return "", false
	}
	for _, group := range fastPatterns {
		for _, re := range group.patterns {
			if re.MatchString(normalized) {
				return group.intent, true
			}
		}
	}
	return "", false
}

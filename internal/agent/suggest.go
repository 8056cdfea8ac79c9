package agent

import "fmt"

// chitChatIntents are conversational intents that never warrant
// proactive suggestions.
var chitChatIntents = map[string]bool{
	IntentGreeting:    true,
	IntentHelp:        true,
	IntentRepair:      true,
	IntentSystemError: true,
}

// GenerateSuggestions derives proactive hints from fields already on the
// turn context. Each class is evaluated independently; no extra fetches
// happen here.
func GenerateSuggestions(tc *TurnContext, intent string, rainThreshold float64) []Suggestion {
	if chitChatIntents[intent] {
		return nil
	}

	var out []Suggestion

	if w := tc.Weather; w != nil && w.RainProbability >= rainThreshold {
		out = append(out, Suggestion{
			Text:     fmt.Sprintf("Rain is likely (%.0f%% chance). Consider postponing spraying and irrigation.", w.RainProbability),
			Priority: "medium",
			Reason:   "rain_probability",
		})
	}

	if n := len(tc.OverdueTasks); n > 0 {
		text := fmt.Sprintf("You have %d overdue tasks. Want to review them?", n)
		if n == 1 {
			text = fmt.Sprintf("Your task %q is overdue. Want to review it?", tc.OverdueTasks[0].Title)
		}
		out = append(out, Suggestion{
			Text:     text,
			Priority: "high",
			Reason:   "overdue_tasks",
			Action:   &Action{Type: OpRead, Entity: EntityTask, Params: map[string]any{"include_completed": false}},
		})
	}

	return out
}

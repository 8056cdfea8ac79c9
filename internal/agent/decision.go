package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/krishimitra/krishimitra/internal/llm"
	"github.com/krishimitra/krishimitra/internal/memory"
)

// historyWindow bounds how many recent turns are injected into the
// decision prompt.
const historyWindow = 6

// Engine produces a Decision for each turn, either from the fast-path
// intent table or by delegating to the LLM. The LLM call is the only
// point in the pipeline that fails loud: an error here propagates so the
// turn boundary can build the failure envelope instead of the engine
// inventing advice.
type Engine struct {
	llm         llm.Client
	directTools bool
}

// NewEngine creates a decision engine. directTools binds the
// weather_check and market_prices fast intents straight to their
// read-only tools, skipping the LLM for those turns.
func NewEngine(client llm.Client, directTools bool) *Engine {
	return &Engine{llm: client, directTools: directTools}
}

// Decide maps one user message to a Decision.
func (e *Engine) Decide(ctx context.Context, message string, tc *TurnContext) (Decision, error) {
	if intent, ok := DetectFastIntent(message); ok {
		switch intent {
		case IntentGreeting:
			return greetingDecision(), nil
		case IntentHelp:
			return helpDecision(), nil
		case IntentRepair:
			return repairDecision(tc.History), nil
		case IntentWeatherCheck:
			if e.directTools {
				return Decision{
					Speech:  "Let me check the weather for you.",
					Intent:  intent,
					Actions: []Action{{Type: OpRead, Entity: EntityWeather, Params: map[string]any{}}},
				}, nil
			}
		case IntentMarketPrices:
			if e.directTools {
				params := map[string]any{}
				if tc.ActiveCrop != "" {
					params["crop"] = tc.ActiveCrop
				}
				return Decision{
					Speech:  "Let me look up the latest mandi prices.",
					Intent:  intent,
					Actions: []Action{{Type: OpRead, Entity: EntityMarket, Params: params}},
				}, nil
			}
		}
		// weather_check and market_prices without direct tool bindings
		// stay classification hints and fall through to the LLM.
	}

	raw, err := e.llm.Generate(ctx, llm.RoleAgent, e.promptContext(tc), message)
	if err != nil {
		return Decision{}, fmt.Errorf("agent decision call: %w", err)
	}
	return applyAntiEcho(ParseDecision(raw), message), nil
}

// applyAntiEcho defends against degenerate models that parrot the input:
// if the speech equals the user's message the decision is downgraded to
// a generic clarification with no actions.
func applyAntiEcho(dec Decision, message string) Decision {
	if strings.EqualFold(strings.TrimSpace(dec.Speech), strings.TrimSpace(message)) {
		dec.Speech = "I'm listening. Could you tell me a bit more about what you need?"
		dec.Actions = []Action{}
	}
	return dec
}

// promptContext assembles the facts the agent prompt may use. Only what
// is actually known goes in, so the model cannot anchor on empty keys.
func (e *Engine) promptContext(tc *TurnContext) map[string]any {
	out := map[string]any{
		"language": tc.Language,
	}

	location := tc.Location
	if location == "" {
		location = tc.City
	}
	if location != "" {
		out["location"] = location
	}
	if tc.District != "" {
		out["district"] = tc.District
	}
	if tc.State != "" {
		out["state"] = tc.State
	}
	if tc.ActiveCrop != "" {
		out["active_crop"] = tc.ActiveCrop
	}
	if len(tc.Preferences) > 0 {
		out["preferences"] = tc.Preferences
	}
	if p := tc.Profile; p != nil && p.Name != "" {
		out["farmer_name"] = p.Name
	}

	if history := tailTurns(tc.History, historyWindow); len(history) > 0 {
		out["conversation_history"] = history
	}
	if len(tc.Recalled) > 0 {
		recalled := make([]map[string]any, 0, len(tc.Recalled))
		for _, t := range tc.Recalled {
			recalled = append(recalled, map[string]any{"role": t.Role, "content": t.Content})
		}
		out["related_past_turns"] = recalled
	}
	return out
}

func tailTurns(history []memory.ConversationEntry, n int) []map[string]string {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]map[string]string, 0, len(history))
	for _, e := range history {
		out = append(out, map[string]string{"role": e.Role, "content": e.Content})
	}
	return out
}

func greetingDecision() Decision {
	return Decision{
		Speech:  "Hello! How can I help you today?",
		Intent:  IntentGreeting,
		Actions: []Action{},
	}
}

func helpDecision() Decision {
	return Decision{
		Speech: "I can check weather and mandi prices, manage your crops and tasks, " +
			"diagnose crop diseases from symptoms, and suggest crops for your soil. What do you need?",
		Intent:  IntentHelp,
		Actions: []Action{},
	}
}

// repairDecision echoes the most recent assistant turn, newest first.
func repairDecision(history []memory.ConversationEntry) Decision {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "assistant" && history[i].Content != "" {
			return Decision{
				Speech:  "I said: " + history[i].Content,
				Intent:  IntentRepair,
				Actions: []Action{},
			}
		}
	}
	return Decision{
		Speech:  "I haven't said anything yet in this conversation.",
		Intent:  IntentRepair,
		Actions: []Action{},
	}
}

func systemErrorDecision() Decision {
	return Decision{
		Speech:  "Sorry, I had trouble understanding that. Could you say it differently?",
		Intent:  IntentSystemError,
		Actions: []Action{},
	}
}

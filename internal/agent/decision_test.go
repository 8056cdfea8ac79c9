package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/krishimitra/internal/llm"
	"github.com/krishimitra/krishimitra/internal/memory"
)

func TestEngine_GreetingSkipsLLM(t *testing.T) {
	client := &fakeLLM{}
	engine := NewEngine(client, false)

	dec, err := engine.Decide(context.Background(), "Hello", &TurnContext{})
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you today?", dec.Speech)
	assert.Equal(t, IntentGreeting, dec.Intent)
	assert.Empty(t, dec.Actions)
	assert.Zero(t, client.calls, "greeting must not reach the LLM")
}

func TestEngine_RepairEchoesLastAssistantTurn(t *testing.T) {
	engine := NewEngine(&fakeLLM{}, false)
	tc := &TurnContext{
		History: []memory.ConversationEntry{
			{Role: "user", Content: "weather?", Timestamp: time.Now()},
			{Role: "assistant", Content: "It will rain tomorrow", Timestamp: time.Now()},
			{Role: "user", Content: "what did you just say?", Timestamp: time.Now()},
		},
	}

	dec, err := engine.Decide(context.Background(), "What did you just say?", tc)
	require.NoError(t, err)
	assert.Equal(t, "I said: It will rain tomorrow", dec.Speech)
	assert.Equal(t, IntentRepair, dec.Intent)
	assert.Empty(t, dec.Actions)
}

func TestEngine_RepairWithoutHistory(t *testing.T) {
	engine := NewEngine(&fakeLLM{}, false)
	dec, err := engine.Decide(context.Background(), "repeat that", &TurnContext{})
	require.NoError(t, err)
	assert.Equal(t, "I haven't said anything yet in this conversation.", dec.Speech)
}

func TestEngine_LLMErrorPropagates(t *testing.T) {
	engine := NewEngine(&fakeLLM{err: errBoom}, false)
	_, err := engine.Decide(context.Background(), "my wheat looks sick", &TurnContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
}

func TestEngine_LLMDecisionParsed(t *testing.T) {
	client := &fakeLLM{byRole: map[llm.Role]string{
		llm.RoleAgent: `{"speech": "Adding that task.", "intent": "task_create", "actions": [{"type": "create", "entity": "task", "params": {"title": "spray urea"}}]}`,
	}}
	engine := NewEngine(client, false)

	dec, err := engine.Decide(context.Background(), "remind me to spray urea", &TurnContext{})
	require.NoError(t, err)
	assert.Equal(t, "task_create", dec.Intent)
	require.Len(t, dec.Actions, 1)
	assert.Equal(t, 1, client.calls)
}

func TestEngine_AntiEchoGuard(t *testing.T) {
	message := "my field has some issue"
	client := &fakeLLM{byRole: map[llm.Role]string{
		llm.RoleAgent: `{"speech": "My field has some issue", "intent": "general", "actions": [{"type": "read", "entity": "weather", "params": {}}]}`,
	}}
	engine := NewEngine(client, false)

	dec, err := engine.Decide(context.Background(), message, &TurnContext{})
	require.NoError(t, err)
	assert.NotEqual(t, message, dec.Speech)
	assert.NotEmpty(t, dec.Speech)
	assert.Empty(t, dec.Actions, "echoed decisions lose their actions")
}

func TestEngine_MalformedLLMOutputBecomesSystemError(t *testing.T) {
	client := &fakeLLM{byRole: map[llm.Role]string{llm.RoleAgent: "sure, planting wheat is a great idea"}}
	engine := NewEngine(client, false)

	dec, err := engine.Decide(context.Background(), "what should I plant", &TurnContext{})
	require.NoError(t, err)
	assert.Equal(t, IntentSystemError, dec.Intent)
	assert.Empty(t, dec.Actions)
}

func TestEngine_DirectToolBindings(t *testing.T) {
	client := &fakeLLM{}
	engine := NewEngine(client, true)

	dec, err := engine.Decide(context.Background(), "will it rain today?", &TurnContext{})
	require.NoError(t, err)
	assert.Equal(t, IntentWeatherCheck, dec.Intent)
	require.Len(t, dec.Actions, 1)
	assert.Equal(t, EntityWeather, dec.Actions[0].Entity)
	assert.Zero(t, client.calls)

	dec, err = engine.Decide(context.Background(), "mandi bhav?", &TurnContext{ActiveCrop: "cotton"})
	require.NoError(t, err)
	require.Len(t, dec.Actions, 1)
	assert.Equal(t, EntityMarket, dec.Actions[0].Entity)
	assert.Equal(t, "cotton", dec.Actions[0].Params["crop"])
	assert.Zero(t, client.calls)
}

// Without direct bindings the weather fast-match is only a hint and the
// turn still goes through the LLM.
func TestEngine_WeatherFallsThroughWithoutDirectTools(t *testing.T) {
	client := &fakeLLM{byRole: map[llm.Role]string{
		llm.RoleAgent: `{"speech": "Checking.", "intent": "weather_check", "actions": []}`,
	}}
	engine := NewEngine(client, false)

	_, err := engine.Decide(context.Background(), "weather please", &TurnContext{})
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)
}

func TestEngine_PromptContextOmitsUnknowns(t *testing.T) {
	engine := NewEngine(&fakeLLM{}, false)
	ctx := engine.promptContext(&TurnContext{Language: "en"})

	_, hasLocation := ctx["location"]
	assert.False(t, hasLocation)
	_, hasCrop := ctx["active_crop"]
	assert.False(t, hasCrop)

	ctx = engine.promptContext(&TurnContext{Language: "hi", State: "Maharashtra", ActiveCrop: "cotton"})
	assert.Equal(t, "Maharashtra", ctx["state"])
	assert.Equal(t, "cotton", ctx["active_crop"])
}

//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/krishimitra/internal/llm"
)

func TestAgentQuery_Greeting(t *testing.T) {
	env := SetupTestEnv(t)
	uid := fmt.Sprintf("agent-greet-%d", uniqueID())

	resp := DoRequest(t, env, "POST", "/api/v1/agent/query", map[string]any{
		"user_id": uid,
		"message": "namaste",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "Hello! How can I help you today?", data["speech"])

	// Both sides of the turn land in conversation history
	resp = DoRequest(t, env, "POST", "/api/v1/agent/query", map[string]any{
		"user_id": uid,
		"message": "what did you say?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, "I said: Hello! How can I help you today?", data["speech"])
}

func TestAgentQuery_ToolTurnCreatesTask(t *testing.T) {
	env := SetupTestEnv(t)
	uid := fmt.Sprintf("agent-task-%d", uniqueID())

	env.LLM.Script(llm.RoleAgent, `{"speech": "Noting that down.", "intent": "task_create", "actions": [{"type": "create", "entity": "task", "params": {"title": "spray urea"}}]}`)
	env.LLM.Script(llm.RoleSynthesizer, "Added the urea spraying task to your list.")

	resp := DoRequest(t, env, "POST", "/api/v1/agent/query", map[string]any{
		"user_id": uid,
		"message": "remind me to spray urea",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := ParseResponse(t, resp)["data"].(map[string]any)
	require.Equal(t, true, data["success"])
	assert.Equal(t, "Added the urea spraying task to your list.", data["speech"])
	assert.Equal(t, true, data["ui_updates"].(map[string]any)["refresh_tasks"])

	// The task is visible through the farm API
	resp = DoRequest(t, env, "GET", "/api/v1/farm/tasks?user_id="+uid, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tasks := ParseResponse(t, resp)["data"].([]any)
	require.Len(t, tasks, 1)
	assert.Equal(t, "spray urea", tasks[0].(map[string]any)["title"])
}

func TestAgentQuery_EmptyMessageRejected(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "POST", "/api/v1/agent/query", map[string]any{
		"user_id": "agent-empty",
		"message": "   ",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, false, data["success"])
	assert.Equal(t, "empty message", data["error"])
}

func TestAgentQuery_MissingFieldsRejected(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "POST", "/api/v1/agent/query", map[string]any{
		"message": "hello",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	ParseResponse(t, resp)
}

//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ConversationWriteThrough(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	uid := fmt.Sprintf("mem-conv-%d", uniqueID())

	require.NoError(t, env.Memory.AppendConversation(ctx, uid, "user", "what is the weather"))
	require.NoError(t, env.Memory.AppendConversation(ctx, uid, "assistant", "Clear skies today."))

	// Short-term buffer serves the history
	history := env.Memory.History(ctx, uid, 10)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "Clear skies today.", history[1].Content)

	// The same turns are persisted long-term
	var count int
	err := env.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE user_id = $1`, uid).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemory_HistoryRebuildsFromPostgres(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	uid := fmt.Sprintf("mem-rebuild-%d", uniqueID())

	require.NoError(t, env.Memory.AppendConversation(ctx, uid, "user", "hello"))
	require.NoError(t, env.Memory.AppendConversation(ctx, uid, "assistant", "Hello! How can I help you today?"))

	// Drop the in-process buffer; long-term history must repopulate it.
	require.NoError(t, env.Memory.ClearSession(ctx, uid))

	history := env.Memory.History(ctx, uid, 10)
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)
}

func TestMemory_WorkingContextRoundTrip(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	uid := fmt.Sprintf("mem-working-%d", uniqueID())

	require.NoError(t, env.Memory.MergeWorkingContext(ctx, uid, map[string]any{
		"active_crop": "cotton",
		"last_topic":  "irrigation",
	}))
	require.NoError(t, env.Memory.MergeWorkingContext(ctx, uid, map[string]any{
		"active_crop": "wheat",
	}))

	got := env.Memory.GetContext(ctx, uid)
	assert.Equal(t, "wheat", got.Working["active_crop"], "later merges win per key")
	assert.Equal(t, "irrigation", got.Working["last_topic"], "unrelated keys survive merges")
}

func TestMemory_ContextComposesProfileAndPreferences(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	uid := fmt.Sprintf("mem-compose-%d", uniqueID())

	resp := DoRequest(t, env, "PUT", "/api/v1/farm/profile?user_id="+uid, map[string]any{
		"name":     "Savita",
		"district": "Nashik",
		"state":    "Maharashtra",
	})
	require.Equal(t, 200, resp.StatusCode)
	ParseResponse(t, resp)

	require.NoError(t, env.Memory.SetPreference(ctx, uid, "language", "mr"))

	got := env.Memory.GetContext(ctx, uid)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "Nashik", got.Profile.District)
	assert.Equal(t, "mr", got.Preferences["language"])
}

func TestMemory_ClearSessionKeepsLongTerm(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	uid := fmt.Sprintf("mem-clear-%d", uniqueID())

	require.NoError(t, env.Memory.AppendConversation(ctx, uid, "user", "remember this"))
	require.NoError(t, env.Memory.MergeWorkingContext(ctx, uid, map[string]any{"active_crop": "rice"}))

	require.NoError(t, env.Memory.ClearSession(ctx, uid))

	got := env.Memory.GetContext(ctx, uid)
	assert.Empty(t, got.Working)

	var count int
	err := env.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE user_id = $1`, uid).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "clearing a session never touches long-term history")
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWorkingStore(t *testing.T, ttl time.Duration) (*WorkingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewWorkingStore(client, ttl), mr
}

func TestWorking_MergeAndGet(t *testing.T) {
	s, _ := setupWorkingStore(t, time.Hour)
	ctx := context.Background()

	err := s.Merge(ctx, "u1", map[string]any{"active_crop": "wheat", "step": float64(2)})
	require.NoError(t, err)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "wheat", got["active_crop"])
	assert.Equal(t, float64(2), got["step"])
}

func TestWorking_MergeOverwritesOnlyGivenFields(t *testing.T) {
	s, _ := setupWorkingStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, "u1", map[string]any{"a": "1", "b": "2"}))
	require.NoError(t, s.Merge(ctx, "u1", map[string]any{"b": "3"}))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "1", got["a"])
	assert.Equal(t, "3", got["b"])
}

func TestWorking_EmptyUpdatesNoop(t *testing.T) {
	s, _ := setupWorkingStore(t, time.Hour)
	require.NoError(t, s.Merge(context.Background(), "u1", nil))

	got, err := s.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWorking_TTLExpires(t *testing.T) {
	s, mr := setupWorkingStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, "u1", map[string]any{"a": "1"}))
	mr.FastForward(61 * time.Second)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWorking_Clear(t *testing.T) {
	s, _ := setupWorkingStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, "u1", map[string]any{"a": "1"}))
	require.NoError(t, s.Clear(ctx, "u1"))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWorking_UsersIsolated(t *testing.T) {
	s, _ := setupWorkingStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, "u1", map[string]any{"crop": "rice"}))
	require.NoError(t, s.Merge(ctx, "u2", map[string]any{"crop": "wheat"}))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "rice", got["crop"])
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/krishimitra/internal/farm"
)

// fakeRepo is an in-memory Repository standing in for postgres.
type fakeRepo struct {
	turns     map[string][]ConversationEntry
	prefs     map[string]map[string]string
	failAll   bool
	appendErr error
	appends   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		turns: map[string][]ConversationEntry{},
		prefs: map[string]map[string]string{},
	}
}

func (f *fakeRepo) AppendConversation(_ context.Context, userID string, entry ConversationEntry, _ []float32) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends++
	f.turns[userID] = append(f.turns[userID], entry)
	return nil
}

func (f *fakeRepo) RecentConversation(_ context.Context, userID string, limit int) ([]ConversationEntry, error) {
	if f.failAll {
		return nil, errors.New("db down")
	}
	entries := f.turns[userID]
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return append([]ConversationEntry(nil), entries...), nil
}

func (f *fakeRepo) SearchSimilar(_ context.Context, _ string, _ []float32, _ int, _ float64) ([]RecalledTurn, error) {
	return nil, nil
}

func (f *fakeRepo) SetPreference(_ context.Context, userID, key, value string) error {
	if f.failAll {
		return errors.New("db down")
	}
	if f.prefs[userID] == nil {
		f.prefs[userID] = map[string]string{}
	}
	f.prefs[userID][key] = value
	return nil
}

func (f *fakeRepo) Preferences(_ context.Context, userID string) (map[string]string, error) {
	if f.failAll {
		return nil, errors.New("db down")
	}
	return f.prefs[userID], nil
}

type fakeProfiles struct {
	profile *farm.Profile
	err     error
}

func (f *fakeProfiles) Get(_ context.Context, _ string) (*farm.Profile, error) {
	return f.profile, f.err
}

func setupStore(t *testing.T, repo Repository, profiles ProfileFetcher) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	short, err := NewShortTermCache(16, 20)
	require.NoError(t, err)
	working := NewWorkingStore(client, time.Hour)
	return NewStore(repo, short, working, profiles, nil, 3)
}

func TestStore_RoundTrip(t *testing.T) {
	repo := newFakeRepo()
	s := setupStore(t, repo, nil)
	ctx := context.Background()

	require.NoError(t, s.AppendConversation(ctx, "u1", "user", "X"))

	got := s.History(ctx, "u1", 1)
	require.Len(t, got, 1)
	assert.Equal(t, "X", got[0].Content)
	assert.Equal(t, "user", got[0].Role)
}

func TestStore_GetContextIdempotent(t *testing.T) {
	repo := newFakeRepo()
	s := setupStore(t, repo, nil)
	ctx := context.Background()

	require.NoError(t, s.AppendConversation(ctx, "u1", "user", "hello"))
	require.NoError(t, s.SetPreference(ctx, "u1", "language", "hi"))

	first := s.GetContext(ctx, "u1")
	second := s.GetContext(ctx, "u1")
	assert.Equal(t, first, second)
}

func TestStore_WriteThroughKeepsSuffixInvariant(t *testing.T) {
	repo := newFakeRepo()
	s := setupStore(t, repo, nil)
	ctx := context.Background()

	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, s.AppendConversation(ctx, "u1", "user", msg))
	}

	// Every append reached long-term storage.
	assert.Equal(t, 3, repo.appends)
	short := s.History(ctx, "u1", 0)
	long := repo.turns["u1"]
	require.Len(t, long, 3)
	assert.Equal(t, long[len(long)-len(short):], short)
}

func TestStore_LazyRebuildFromLongTerm(t *testing.T) {
	repo := newFakeRepo()
	repo.turns["u1"] = []ConversationEntry{
		{Role: "user", Content: "stored earlier", Timestamp: time.Now()},
	}
	s := setupStore(t, repo, nil)

	got := s.GetContext(context.Background(), "u1")
	require.Len(t, got.History, 1)
	assert.Equal(t, "stored earlier", got.History[0].Content)
}

func TestStore_GetContextDegradesPerTier(t *testing.T) {
	repo := newFakeRepo()
	repo.failAll = true
	s := setupStore(t, repo, &fakeProfiles{err: errors.New("profiles down")})

	got := s.GetContext(context.Background(), "u1")
	assert.Empty(t, got.History)
	assert.Empty(t, got.Preferences)
	assert.Empty(t, got.Working)
	assert.Nil(t, got.Profile)
}

func TestStore_GetContextIncludesProfile(t *testing.T) {
	repo := newFakeRepo()
	p := &farm.Profile{UserID: "u1", Name: "Ramesh", State: "Maharashtra"}
	s := setupStore(t, repo, &fakeProfiles{profile: p})

	got := s.GetContext(context.Background(), "u1")
	require.NotNil(t, got.Profile)
	assert.Equal(t, "Ramesh", got.Profile.Name)
}

func TestStore_AppendFailureSurfaces(t *testing.T) {
	repo := newFakeRepo()
	repo.appendErr = errors.New("insert failed")
	s := setupStore(t, repo, nil)

	err := s.AppendConversation(context.Background(), "u1", "user", "x")
	require.Error(t, err)
}

func TestStore_ClearSession(t *testing.T) {
	repo := newFakeRepo()
	s := setupStore(t, repo, nil)
	ctx := context.Background()

	require.NoError(t, s.AppendConversation(ctx, "u1", "user", "x"))
	require.NoError(t, s.MergeWorkingContext(ctx, "u1", map[string]any{"step": "1"}))
	require.NoError(t, s.ClearSession(ctx, "u1"))

	got := s.GetContext(ctx, "u1")
	// Short-term cleared but lazily rebuilt from long-term: history survives.
	assert.Len(t, got.History, 1)
	assert.Empty(t, got.Working)
}

func TestStore_SemanticRecallDisabledWithoutEmbedder(t *testing.T) {
	s := setupStore(t, newFakeRepo(), nil)
	assert.Nil(t, s.SemanticRecall(context.Background(), "u1", "wheat"))
}

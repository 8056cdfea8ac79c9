package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krishimitra/krishimitra/internal/farm"
	"github.com/krishimitra/krishimitra/internal/llm"
)

// recallThreshold is the minimum cosine similarity for a past turn to be
// injected into the prompt context.
const recallThreshold = 0.7

// ProfileFetcher is the narrow slice of the farm package the memory
// service needs.
type ProfileFetcher interface {
	Get(ctx context.Context, userID string) (*farm.Profile, error)
}

// Store composes the three memory tiers: in-process short-term buffers,
// redis working context, and postgres long-term history + preferences.
type Store struct {
	repo     Repository
	short    *ShortTermCache
	working  *WorkingStore
	profiles ProfileFetcher
	embedder llm.Embedder // nil disables semantic recall
	recall   int
}

// NewStore creates a memory store. embedder may be nil.
func NewStore(repo Repository, short *ShortTermCache, working *WorkingStore, profiles ProfileFetcher, embedder llm.Embedder, recallLimit int) *Store {
	return &Store{
		repo:     repo,
		short:    short,
		working:  working,
		profiles: profiles,
		embedder: embedder,
		recall:   recallLimit,
	}
}

// GetContext composes conversation history, preferences, working context,
// and a profile snapshot. A failing tier degrades to its empty value; the
// call itself never fails.
func (s *Store) GetContext(ctx context.Context, userID string) *Context {
	out := &Context{
		Preferences: map[string]string{},
		Working:     map[string]any{},
	}

	out.History = s.history(ctx, userID)

	if prefs, err := s.repo.Preferences(ctx, userID); err != nil {
		slog.Warn("memory: preferences unavailable", "error", err, "user_id", userID)
	} else if prefs != nil {
		out.Preferences = prefs
	}

	if working, err := s.working.Get(ctx, userID); err != nil {
		slog.Warn("memory: working context unavailable", "error", err, "user_id", userID)
	} else if working != nil {
		out.Working = working
	}

	if s.profiles != nil {
		if profile, err := s.profiles.Get(ctx, userID); err != nil {
			slog.Warn("memory: profile unavailable", "error", err, "user_id", userID)
		} else {
			out.Profile = profile
		}
	}

	return out
}

// history returns the short-term buffer, lazily rebuilding it from
// long-term storage on first access for a user.
func (s *Store) history(ctx context.Context, userID string) []ConversationEntry {
	if entries, ok := s.short.Recent(userID); ok {
		return entries
	}

	entries, err := s.repo.RecentConversation(ctx, userID, s.short.maxMsgs)
	if err != nil {
		slog.Warn("memory: conversation history unavailable", "error", err, "user_id", userID)
		return nil
	}
	s.short.Seed(userID, entries)
	entries, _ = s.short.Recent(userID)
	return entries
}

// AppendConversation records one turn write-through: the in-process buffer
// and the long-term store are updated together so short-term memory stays
// a suffix of persisted history. An embedding is attached best-effort.
func (s *Store) AppendConversation(ctx context.Context, userID, role, content string) error {
	entry := ConversationEntry{Role: role, Content: content, Timestamp: time.Now().UTC()}

	var embedding []float32
	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, content)
		if err != nil {
			slog.Warn("memory: embedding failed, storing without", "error", err, "user_id", userID)
		} else {
			embedding = vec
		}
	}

	// Make sure the buffer reflects persisted history before appending,
	// otherwise a later lazy rebuild would be skipped.
	s.history(ctx, userID)
	s.short.Append(userID, entry)

	if err := s.repo.AppendConversation(ctx, userID, entry, embedding); err != nil {
		return fmt.Errorf("persisting conversation turn: %w", err)
	}
	return nil
}

// History returns up to limit recent turns for a user, oldest first.
func (s *Store) History(ctx context.Context, userID string, limit int) []ConversationEntry {
	entries := s.history(ctx, userID)
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries
}

// SetPreference persists one preference key for a user.
func (s *Store) SetPreference(ctx context.Context, userID, key, value string) error {
	return s.repo.SetPreference(ctx, userID, key, value)
}

// Preferences returns all preferences for a user.
func (s *Store) Preferences(ctx context.Context, userID string) (map[string]string, error) {
	return s.repo.Preferences(ctx, userID)
}

// MergeWorkingContext merges fields into the user's working context.
func (s *Store) MergeWorkingContext(ctx context.Context, userID string, updates map[string]any) error {
	return s.working.Merge(ctx, userID, updates)
}

// SemanticRecall finds past turns similar to the query. Returns nil when
// no embedder is configured or anything fails — recall is best-effort.
func (s *Store) SemanticRecall(ctx context.Context, userID, query string) []RecalledTurn {
	if s.embedder == nil || s.recall <= 0 {
		return nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("memory: recall embedding failed", "error", err, "user_id", userID)
		return nil
	}

	turns, err := s.repo.SearchSimilar(ctx, userID, vec, s.recall, recallThreshold)
	if err != nil {
		slog.Warn("memory: recall search failed", "error", err, "user_id", userID)
		return nil
	}
	return turns
}

// ClearSession drops the user's short-term buffer and working context.
// Long-term history is untouched.
func (s *Store) ClearSession(ctx context.Context, userID string) error {
	s.short.Clear(userID)
	if err := s.working.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clearing working context: %w", err)
	}
	return nil
}

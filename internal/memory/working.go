package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WorkingStore keeps per-user working context (current task state) in a
// redis hash. Values are JSON-encoded; updates merge field-wise and are
// never cleared automatically — only the TTL retires idle sessions.
type WorkingStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWorkingStore(client *redis.Client, ttl time.Duration) *WorkingStore {
	return &WorkingStore{client: client, ttl: ttl}
}

func workingKey(userID string) string {
	return "working:" + userID
}

// Merge writes the given fields over the existing hash.
func (s *WorkingStore) Merge(ctx context.Context, userID string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	key := workingKey(userID)

	fields := make(map[string]string, len(updates))
	for k, v := range updates {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling working field %q: %w", k, err)
		}
		fields[k] = string(data)
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

// Get returns the full working context for a user, empty map if none.
func (s *WorkingStore) Get(ctx context.Context, userID string) (map[string]any, error) {
	vals, err := s.client.HGetAll(ctx, workingKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", workingKey(userID), err)
	}

	out := make(map[string]any, len(vals))
	for k, v := range vals {
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			out[k] = v // tolerate values written by older encoders
			continue
		}
		out[k] = decoded
	}
	return out, nil
}

// Clear deletes the user's working context hash.
func (s *WorkingStore) Clear(ctx context.Context, userID string) error {
	return s.client.Del(ctx, workingKey(userID)).Err()
}

package memory

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ShortTermCache holds each user's recent conversation in process memory.
// A bounded LRU caps the number of tracked users; each user's buffer is
// guarded by its own mutex so concurrent turns for different users never
// contend and concurrent turns for the same user serialize their appends.
type ShortTermCache struct {
	maxMsgs int
	users   *lru.Cache[string, *userBuffer]
}

type userBuffer struct {
	mu      sync.Mutex
	entries []ConversationEntry
}

// NewShortTermCache creates a cache tracking up to maxUsers users with
// maxMsgs messages each.
func NewShortTermCache(maxUsers, maxMsgs int) (*ShortTermCache, error) {
	users, err := lru.New[string, *userBuffer](maxUsers)
	if err != nil {
		return nil, err
	}
	return &ShortTermCache{maxMsgs: maxMsgs, users: users}, nil
}

// Recent returns a copy of the user's buffered entries. The second return
// reports whether a buffer exists at all — callers use false to trigger a
// lazy rebuild from long-term storage.
func (c *ShortTermCache) Recent(userID string) ([]ConversationEntry, bool) {
	buf, ok := c.users.Get(userID)
	if !ok {
		return nil, false
	}
	buf.mu.Lock()
	defer buf.mu.Unlock()
	out := make([]ConversationEntry, len(buf.entries))
	copy(out, buf.entries)
	return out, true
}

// Append adds an entry to the user's buffer, trimming to the configured
// bound. The buffer is created if absent.
func (c *ShortTermCache) Append(userID string, entry ConversationEntry) {
	buf := c.buffer(userID)
	buf.mu.Lock()
	defer buf.mu.Unlock()
	buf.entries = append(buf.entries, entry)
	if over := len(buf.entries) - c.maxMsgs; over > 0 {
		buf.entries = buf.entries[over:]
	}
}

// Seed installs entries for a user only when no buffer exists yet, so a
// rebuild from long-term storage never clobbers turns appended meanwhile.
func (c *ShortTermCache) Seed(userID string, entries []ConversationEntry) {
	if _, ok := c.users.Get(userID); ok {
		return
	}
	if over := len(entries) - c.maxMsgs; over > 0 {
		entries = entries[over:]
	}
	buf := &userBuffer{entries: append([]ConversationEntry(nil), entries...)}
	c.users.ContainsOrAdd(userID, buf)
}

// Clear drops the user's buffer.
func (c *ShortTermCache) Clear(userID string) {
	c.users.Remove(userID)
}

// Len reports how many users currently have buffers.
func (c *ShortTermCache) Len() int {
	return c.users.Len()
}

func (c *ShortTermCache) buffer(userID string) *userBuffer {
	if buf, ok := c.users.Get(userID); ok {
		return buf
	}
	buf := &userBuffer{}
	if existing, found, _ := c.users.PeekOrAdd(userID, buf); found {
		return existing
	}
	return buf
}

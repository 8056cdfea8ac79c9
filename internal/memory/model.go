package memory

import (
	"time"

	"github.com/krishimitra/krishimitra/internal/farm"
)

// ConversationEntry is a single message in a user's conversation history.
type ConversationEntry struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RecalledTurn is a past conversation turn returned from pgvector
// similarity search.
type RecalledTurn struct {
	Role       string  `json:"role"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Context is the composed memory view handed to the agent at the start of
// a turn. Any field may be empty when its backing tier was unavailable.
type Context struct {
	History     []ConversationEntry `json:"conversation_history"`
	Preferences map[string]string   `json:"preferences"`
	Working     map[string]any      `json:"working_context"`
	Profile     *farm.Profile       `json:"user_profile,omitempty"`
}

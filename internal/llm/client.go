package llm

import "context"

// Role selects the system prompt and output contract for a call.
type Role string

const (
	// RoleAgent produces the structured {speech, intent, actions} decision.
	RoleAgent Role = "agent"
	// RoleSynthesizer rewrites placeholder speech using real tool output.
	RoleSynthesizer Role = "synthesizer"
)

// Client is the sole non-deterministic dependency of the agent core.
// Generate returns raw model text; structural validation of the output
// is the caller's responsibility.
type Client interface {
	Generate(ctx context.Context, role Role, promptCtx map[string]any, userQuery string) (string, error)
}

// Embedder produces embeddings for semantic recall. Optional: the memory
// service treats a nil Embedder as "recall disabled".
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

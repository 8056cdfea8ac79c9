package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/krishimitra/krishimitra/internal/llm"
)

// Synthesizer rewrites placeholder speech using real tool output.
// Strictly best-effort: any failure keeps the decision's original speech.
type Synthesizer struct {
	llm llm.Client
}

func NewSynthesizer(client llm.Client) *Synthesizer {
	return &Synthesizer{llm: client}
}

// Rewrite asks the LLM to produce one natural sentence incorporating the
// successful tool results. Skipped when there is no result payload.
func (s *Synthesizer) Rewrite(ctx context.Context, dec Decision, outcomes []ActionOutcome) string {
	results := successfulResults(outcomes)
	if len(results) == 0 {
		return dec.Speech
	}

	promptCtx := map[string]any{
		"intent":          dec.Intent,
		"original_speech": dec.Speech,
		"tool_results":    results,
	}
	text, err := s.llm.Generate(ctx, llm.RoleSynthesizer, promptCtx, "")
	if err != nil {
		slog.Warn("response synthesis failed, keeping original speech", "intent", dec.Intent, "error", err)
		return dec.Speech
	}

	text = singleLine(strings.Trim(strings.TrimSpace(text), `"`))
	if text == "" {
		return dec.Speech
	}
	return text
}

func successfulResults(outcomes []ActionOutcome) []map[string]any {
	var results []map[string]any
	for _, o := range outcomes {
		if o.Success && o.Result != nil {
			results = append(results, map[string]any{
				"operation": o.Action.Name(),
				"data":      o.Result,
			})
		}
	}
	return results
}

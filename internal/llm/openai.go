package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/krishimitra/krishimitra/internal/config"
	"github.com/krishimitra/krishimitra/internal/metrics"
)

// OpenAICompatible talks to any OpenAI-style chat-completions endpoint
// (Ollama, vLLM, OpenRouter, OpenAI itself).
type OpenAICompatible struct {
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	httpClient *http.Client
}

// NewOpenAICompatible creates a client from LLM config.
func NewOpenAICompatible(cfg config.LLMConfig) *OpenAICompatible {
	return &OpenAICompatible{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends a role-scoped chat completion and returns the raw text.
func (c *OpenAICompatible) Generate(ctx context.Context, role Role, promptCtx map[string]any, userQuery string) (string, error) {
	out, err := c.generate(ctx, role, promptCtx, userQuery)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LLMCallsTotal.WithLabelValues(string(role), status).Inc()
	return out, err
}

func (c *OpenAICompatible) generate(ctx context.Context, role Role, promptCtx map[string]any, userQuery string) (string, error) {
	system := SystemPrompt(role)
	if system == "" {
		return "", fmt.Errorf("unknown prompt role %q", role)
	}

	if len(promptCtx) > 0 {
		ctxJSON, err := json.Marshal(promptCtx)
		if err != nil {
			return "", fmt.Errorf("marshaling prompt context: %w", err)
		}
		system = system + "\n\nContext:\n" + string(ctxJSON)
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: userQuery},
		},
		Temperature: 0.2,
	}

	body, err := c.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text using the configured embed model.
func (c *OpenAICompatible) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.embedModel == "" {
		return nil, fmt.Errorf("no embed model configured")
	}

	body, err := c.post(ctx, "/embeddings", embedRequest{Model: c.embedModel, Input: text})
	if err != nil {
		return nil, err
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding embeddings response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embeddings response has no data")
	}
	return parsed.Data[0].Embedding, nil
}

func (c *OpenAICompatible) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm request failed: status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

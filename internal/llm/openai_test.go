package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/krishimitra/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAICompatible {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAICompatible(config.LLMConfig{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		EmbedModel: "test-embed",
		Timeout:    5 * time.Second,
	})
}

func TestGenerate_SendsSystemAndUserMessages(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"speech":"Hi","intent":"greeting","actions":[]}`}},
			},
		})
	})

	out, err := client.Generate(context.Background(), RoleAgent, map[string]any{"location": "Nagpur"}, "hello")
	require.NoError(t, err)
	assert.Contains(t, out, `"intent":"greeting"`)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Nagpur")
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "hello", got.Messages[1].Content)
	assert.Equal(t, "test-model", got.Model)
}

func TestGenerate_UnknownRole(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for unknown role")
	})

	_, err := client.Generate(context.Background(), Role("poet"), nil, "hello")
	require.Error(t, err)
}

func TestGenerate_SurfacesServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.Generate(context.Background(), RoleAgent, nil, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGenerate_EmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := client.Generate(context.Background(), RoleAgent, nil, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestEmbed_ReturnsVector(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req.Model)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
		})
	})

	vec, err := client.Embed(context.Background(), "wheat sowing")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbed_NoModelConfigured(t *testing.T) {
	client := NewOpenAICompatible(config.LLMConfig{
		BaseURL: "http://localhost:0",
		Model:   "m",
		Timeout: time.Second,
	})
	_, err := client.Embed(context.Background(), "x")
	require.Error(t, err)
}

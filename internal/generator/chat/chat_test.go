package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/toneshift/internal/config"
	"github.com/nadzzz/toneshift/internal/generator"
	"github.com/nadzzz/toneshift/internal/prompt"
)

var (
	opts    = generator.Options{MaxTokens: 120, Temperature: generator.Temperature}
	payload = prompt.ChatPayload{Messages: []prompt.Message{
		{Role: prompt.RoleSystem, Content: "Rewrite formally."},
		{Role: prompt.RoleUser, Content: "gimme the report"},
	}}
)

func newBackend(t *testing.T, api string, h http.Handler) Backend {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	endpoint := srv.URL
	if api == "openai" {
		endpoint += "/v1"
	}
	b, err := New(config.ChatConfig{API: api, Endpoint: endpoint, Model: "test-model", APIKey: "k", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return b
}

func TestOllamaGenerate(t *testing.T) {
	var got ollamaChatRequest
	b := newBackend(t, "ollama", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Kindly send the report."},"done":true}`))
	}))

	out, err := b.Generate(context.Background(), payload, opts)
	require.NoError(t, err)

	assert.Equal(t, "Kindly send the report.", out)
	assert.Equal(t, "chat/ollama", b.Name())
	assert.Equal(t, "test-model", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, payload.Messages, got.Messages)
	assert.Equal(t, 120, got.Options.NumPredict)
	assert.InDelta(t, 0.7, got.Options.Temperature, 1e-9)
}

func TestOllamaNonSuccessCarriesBody(t *testing.T) {
	b := newBackend(t, "ollama", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model \"test-model\" not found"}`, http.StatusNotFound)
	}))

	_, err := b.Generate(context.Background(), payload, opts)

	var backendErr *generator.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusNotFound, backendErr.StatusCode)
	assert.Contains(t, backendErr.Body, "not found")
}

func TestOllamaGarbledResponseIsBackendError(t *testing.T) {
	b := newBackend(t, "ollama", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>proxy error</html>"))
	}))

	_, err := b.Generate(context.Background(), payload, opts)

	var backendErr *generator.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusOK, backendErr.StatusCode)
	assert.Contains(t, backendErr.Body, "proxy error")
	assert.NotErrorIs(t, err, generator.ErrBackendUnavailable)
}

func TestOllamaConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	b, err := New(config.ChatConfig{Endpoint: endpoint, Timeout: time.Second})
	require.NoError(t, err)

	_, err = b.Generate(context.Background(), payload, opts)
	assert.ErrorIs(t, err, generator.ErrBackendUnavailable)
}

func TestOllamaTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	b, err := New(config.ChatConfig{Endpoint: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = b.Generate(context.Background(), payload, opts)
	assert.ErrorIs(t, err, generator.ErrBackendTimeout)
}

func TestOllamaProbe(t *testing.T) {
	b := newBackend(t, "ollama", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:latest"},{"name":"flan-t5-base:latest"}]}`))
	}))

	models, err := b.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2:latest", "flan-t5-base:latest"}, models)
}

func TestRejectsInstructionPayload(t *testing.T) {
	for _, api := range []string{"ollama", "openai", "anthropic"} {
		b := newBackend(t, api, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("%s: unexpected request to %s", api, r.URL.Path)
		}))
		_, err := b.Generate(context.Background(), prompt.InstructionPayload{Prompt: "x"}, opts)
		assert.ErrorIs(t, err, generator.ErrUnexpectedPayload, api)
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var got map[string]any
	b := newBackend(t, "openai", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"test-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Please send the report."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))

	out, err := b.Generate(context.Background(), payload, opts)
	require.NoError(t, err)

	assert.Equal(t, "Please send the report.", out)
	assert.Equal(t, "test-model", got["model"])
	assert.EqualValues(t, 120, got["max_tokens"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestOpenAIErrorStatus(t *testing.T) {
	b := newBackend(t, "openai", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"server overloaded","type":"server_error"}}`))
	}))

	_, err := b.Generate(context.Background(), payload, opts)

	var backendErr *generator.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusServiceUnavailable, backendErr.StatusCode)
	assert.Contains(t, backendErr.Body, "server overloaded")
}

func TestOpenAIProbe(t *testing.T) {
	b := newBackend(t, "openai", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"llama-3.2-3b","object":"model"}]}`))
	}))

	models, err := b.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama-3.2-3b"}, models)
}

func TestAnthropicGenerate(t *testing.T) {
	var got map[string]any
	b := newBackend(t, "anthropic", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"test-model",
			"content":[{"type":"text","text":"Would you kindly "},{"type":"text","text":"send the report?"}],
			"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":6}}`))
	}))

	out, err := b.Generate(context.Background(), payload, opts)
	require.NoError(t, err)

	assert.Equal(t, "Would you kindly send the report?", out)
	assert.Equal(t, "test-model", got["model"])
	assert.EqualValues(t, 120, got["max_tokens"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 1, "system message travels outside the message list")
	assert.NotEmpty(t, got["system"])

	models, err := b.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"test-model"}, models)
}

func TestNewRejectsUnknownAPI(t *testing.T) {
	_, err := New(config.ChatConfig{API: "smoke-signals"})
	assert.Error(t, err)
}

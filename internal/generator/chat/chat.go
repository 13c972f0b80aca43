// Package chat implements the Generator interface for chat-completion models.
//
// Three wire flavors are supported, selected by backends.chat.api:
//   - "ollama":    Ollama /api/chat on a local or remote runtime (default)
//   - "openai":    any OpenAI-compatible server via go-openai
//   - "anthropic": the Anthropic Messages API
//
// Every flavor makes exactly one blocking call per generation, bounded by the
// configured timeout, and never retries.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nadzzz/toneshift/internal/config"
	"github.com/nadzzz/toneshift/internal/generator"
	"github.com/nadzzz/toneshift/internal/prompt"
)

const defaultTimeout = 120 * time.Second

// Backend is a chat Generator that can also list the models it serves.
type Backend interface {
	generator.Generator

	// Probe lists available models. It is used for best-effort startup
	// diagnostics only.
	Probe(ctx context.Context) ([]string, error)
}

// New creates the chat backend selected by cfg.API.
func New(cfg config.ChatConfig) (Backend, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	switch strings.ToLower(cfg.API) {
	case "", "ollama":
		return newOllama(cfg), nil
	case "openai":
		return newOpenAI(cfg), nil
	case "anthropic":
		return newAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported chat api %q", cfg.API)
	}
}

// chatPayload asserts the payload shape every flavor requires.
func chatPayload(backend string, payload prompt.Payload) (prompt.ChatPayload, error) {
	p, ok := payload.(prompt.ChatPayload)
	if !ok {
		return prompt.ChatPayload{}, fmt.Errorf("%w: %s accepts chat payloads, got %T", generator.ErrUnexpectedPayload, backend, payload)
	}
	return p, nil
}

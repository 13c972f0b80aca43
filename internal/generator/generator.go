// Package generator routes rewrite requests to text-generation backends.
//
// toneshift ships two backends: a local instruction-tuned seq2seq model
// (package seq2seq) and a chat-completion model (package chat). Both
// implement Generator; the Router selects one by exhaustive match on the
// request's backend and owns nothing else.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nadzzz/toneshift/internal/message"
	"github.com/nadzzz/toneshift/internal/prompt"
)

const (
	// DefaultMaxTokens bounds output when the request does not.
	DefaultMaxTokens = 200

	// Temperature is the fixed sampling temperature for every backend.
	Temperature = 0.7
)

// Options controls a single generation.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// OptionsFor returns the generation options for req.
func OptionsFor(req message.Request) Options {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return Options{MaxTokens: maxTokens, Temperature: Temperature}
}

// Generator is a text-generation backend adapter.
type Generator interface {
	// Name returns the adapter identifier (e.g., "seq2seq", "chat/ollama").
	Name() string

	// Generate runs the payload and returns the raw model output.
	Generate(ctx context.Context, payload prompt.Payload, opts Options) (string, error)

	// Close releases any resources held by the adapter.
	Close() error
}

// Router dispatches requests to the adapter for their backend.
type Router struct {
	local Generator
	chat  Generator
}

// NewRouter creates a Router over the two backend adapters.
func NewRouter(local, chat Generator) *Router {
	return &Router{local: local, chat: chat}
}

// Generate builds the prompt for req and runs it on the matching backend.
// An unknown backend fails with ErrUnknownBackend before any adapter is touched.
func (r *Router) Generate(ctx context.Context, req message.Request) (string, error) {
	var g Generator
	switch req.Backend {
	case message.BackendLocalSeq2Seq:
		g = r.local
	case message.BackendRemoteChat:
		g = r.chat
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, req.Backend)
	}
	if g == nil {
		return "", fmt.Errorf("%w: backend %s is not configured", ErrBackendUnavailable, req.Backend)
	}

	payload, err := prompt.Build(req)
	if err != nil {
		return "", fmt.Errorf("building prompt: %w", err)
	}

	start := time.Now()
	opts := OptionsFor(req)
	out, err := g.Generate(ctx, payload, opts)
	if err != nil {
		return "", err
	}

	slog.Debug("generation complete",
		"backend", string(req.Backend),
		"adapter", g.Name(),
		"max_tokens", opts.MaxTokens,
		"output_length", len(out),
		"duration", time.Since(start))
	return out, nil
}

// Close closes both adapters.
func (r *Router) Close() error {
	var firstErr error
	for _, g := range []Generator{r.local, r.chat} {
		if g == nil {
			continue
		}
		if err := g.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

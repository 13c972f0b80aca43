// Package seq2seq implements the Generator interface for an instruction-tuned
// sequence-to-sequence model hosted by a local model runtime.
//
// The runtime speaks the Ollama generate API. The model is loaded on first
// use and pinned in memory (keep_alive -1) for the life of the process.
package seq2seq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nadzzz/toneshift/internal/config"
	"github.com/nadzzz/toneshift/internal/generator"
	"github.com/nadzzz/toneshift/internal/prompt"
)

const name = "seq2seq"

// Handle describes a loaded model.
type Handle struct {
	Model        string
	LoadedAt     time.Time
	LoadDuration time.Duration
}

// Generator runs instruction prompts against the local runtime.
type Generator struct {
	endpoint string
	model    string
	timeout  time.Duration
	client   *http.Client

	// loading admits one loader at a time; waiters give up when their
	// context ends.
	loading chan struct{}

	mu     sync.Mutex
	handle *Handle
}

// New creates a seq2seq generator from config. Nothing is loaded until the
// first Generate call.
func New(cfg config.LocalConfig) *Generator {
	model := cfg.Model
	if model == "" {
		model = "flan-t5-base"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Generator{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    model,
		timeout:  timeout,
		client:   &http.Client{},
		loading:  make(chan struct{}, 1),
	}
}

// Name returns the adapter identifier.
func (g *Generator) Name() string { return name }

type generateRequest struct {
	Model     string          `json:"model"`
	Prompt    string          `json:"prompt,omitempty"`
	Stream    bool            `json:"stream"`
	KeepAlive int             `json:"keep_alive"`
	Options   *runtimeOptions `json:"options,omitempty"`
}

type runtimeOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate runs an InstructionPayload and returns the raw output.
func (g *Generator) Generate(ctx context.Context, payload prompt.Payload, opts generator.Options) (string, error) {
	p, ok := payload.(prompt.InstructionPayload)
	if !ok {
		return "", fmt.Errorf("%w: %s accepts instruction payloads, got %T", generator.ErrUnexpectedPayload, name, payload)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	h, err := g.load(ctx)
	if err != nil {
		return "", err
	}

	var resp generateResponse
	err = g.post(ctx, generateRequest{
		Model:     h.Model,
		Prompt:    p.Prompt,
		Stream:    false,
		KeepAlive: -1,
		Options:   &runtimeOptions{Temperature: opts.Temperature, NumPredict: opts.MaxTokens},
	}, &resp)
	if err != nil {
		return "", err
	}

	slog.Debug("seq2seq generation complete", "model", h.Model, "output_length", len(resp.Response))
	return resp.Response, nil
}

// Loaded returns the current handle, or nil if the model has not been loaded.
func (g *Generator) Loaded() *Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handle
}

// load returns the model handle, loading the model if this is the first use.
// Concurrent first callers wait for the one load in flight, each bounded by
// its own context. A failed load leaves no handle behind so the next call
// tries again.
func (g *Generator) load(ctx context.Context) (*Handle, error) {
	if h := g.Loaded(); h != nil {
		return h, nil
	}

	select {
	case g.loading <- struct{}{}:
	case <-ctx.Done():
		return nil, generator.Classify(name, fmt.Errorf("waiting for model %s to load: %w", g.model, ctx.Err()))
	}
	defer func() { <-g.loading }()

	if h := g.Loaded(); h != nil {
		return h, nil
	}

	slog.Info("loading local model", "model", g.model, "endpoint", g.endpoint)
	start := time.Now()
	if err := g.post(ctx, generateRequest{Model: g.model, KeepAlive: -1}, nil); err != nil {
		return nil, fmt.Errorf("loading model %s: %w", g.model, err)
	}

	h := &Handle{Model: g.model, LoadedAt: time.Now(), LoadDuration: time.Since(start)}
	g.mu.Lock()
	g.handle = h
	g.mu.Unlock()

	slog.Info("local model loaded", "model", g.model, "duration", h.LoadDuration)
	return h, nil
}

func (g *Generator) post(ctx context.Context, body generateRequest, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return generator.Classify(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return generator.StatusError(name, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return generator.DecodeResponse(name, resp, out)
}

// Probe lists the models installed on the runtime without loading any.
func (g *Generator) Probe(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, generator.Classify(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, generator.StatusError(name, resp)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := generator.DecodeResponse(name, resp, &tags); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Close is a no-op; the runtime owns the loaded model.
func (g *Generator) Close() error { return nil }

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nadzzz/toneshift/internal/config"
	"github.com/nadzzz/toneshift/internal/generator"
	"github.com/nadzzz/toneshift/internal/prompt"
)

// Ollama talks to an Ollama runtime's /api/chat endpoint.
type Ollama struct {
	endpoint string
	model    string
	timeout  time.Duration
	client   *http.Client
}

func newOllama(cfg config.ChatConfig) *Ollama {
	model := cfg.Model
	if model == "" {
		model = "llama3.2"
	}
	return &Ollama{
		endpoint: cfg.Endpoint,
		model:    model,
		timeout:  cfg.Timeout,
		client:   &http.Client{},
	}
}

// Name returns the adapter identifier.
func (o *Ollama) Name() string { return "chat/ollama" }

type ollamaChatRequest struct {
	Model    string           `json:"model"`
	Messages []prompt.Message `json:"messages"`
	Stream   bool             `json:"stream"`
	Options  ollamaOptions    `json:"options"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Generate sends the messages to /api/chat and returns the assistant content.
func (o *Ollama) Generate(ctx context.Context, payload prompt.Payload, opts generator.Options) (string, error) {
	p, err := chatPayload(o.Name(), payload)
	if err != nil {
		return "", err
	}

	bodyBytes, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Messages: p.Messages,
		Stream:   false,
		Options:  ollamaOptions{NumPredict: opts.MaxTokens, Temperature: opts.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", generator.Classify(o.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", generator.StatusError(o.Name(), resp)
	}

	var result ollamaChatResponse
	if err := generator.DecodeResponse(o.Name(), resp, &result); err != nil {
		return "", err
	}

	slog.Debug("ollama chat complete", "model", o.model, "output_length", len(result.Message.Content))
	return result.Message.Content, nil
}

// Probe lists the models installed on the runtime.
func (o *Ollama) Probe(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, generator.Classify(o.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, generator.StatusError(o.Name(), resp)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := generator.DecodeResponse(o.Name(), resp, &tags); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Close is a no-op for the Ollama client.
func (o *Ollama) Close() error { return nil }

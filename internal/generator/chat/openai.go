package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/toneshift/internal/config"
	"github.com/nadzzz/toneshift/internal/generator"
	"github.com/nadzzz/toneshift/internal/prompt"
)

// OpenAI talks to any OpenAI-compatible chat completions server.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func newOpenAI(cfg config.ChatConfig) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		oc.BaseURL = cfg.Endpoint
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(oc),
		model:   model,
		timeout: cfg.Timeout,
	}
}

// Name returns the adapter identifier.
func (o *OpenAI) Name() string { return "chat/openai" }

// Generate runs a single chat completion.
func (o *OpenAI) Generate(ctx context.Context, payload prompt.Payload, opts generator.Options) (string, error) {
	p, err := chatPayload(o.Name(), payload)
	if err != nil {
		return "", err
	}

	msgs := make([]openai.ChatCompletionMessage, len(p.Messages))
	for i, m := range p.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	})
	if err != nil {
		return "", o.classify(err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	slog.Debug("openai chat complete", "model", resp.Model, "output_length", len(content),
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return content, nil
}

// Probe lists the models the server exposes.
func (o *OpenAI) Probe(ctx context.Context) ([]string, error) {
	list, err := o.client.ListModels(ctx)
	if err != nil {
		return nil, o.classify(err)
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

func (o *OpenAI) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &generator.BackendError{Backend: o.Name(), StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &generator.BackendError{Backend: o.Name(), StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return generator.Classify(o.Name(), err)
}

// Close is a no-op for the OpenAI client.
func (o *OpenAI) Close() error { return nil }

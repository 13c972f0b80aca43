package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nadzzz/toneshift/internal/config"
	"github.com/nadzzz/toneshift/internal/generator"
	"github.com/nadzzz/toneshift/internal/prompt"
)

// Anthropic talks to the Anthropic Messages API.
type Anthropic struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

func newAnthropic(cfg config.ChatConfig) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &Anthropic{
		client:  anthropic.NewClient(opts...),
		model:   model,
		timeout: cfg.Timeout,
	}
}

// Name returns the adapter identifier.
func (a *Anthropic) Name() string { return "chat/anthropic" }

// Generate sends one Messages request. The system message travels in the
// dedicated system field.
func (a *Anthropic) Generate(ctx context.Context, payload prompt.Payload, opts generator.Options) (string, error) {
	p, err := chatPayload(a.Name(), payload)
	if err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(opts.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.User())),
		},
		Temperature: anthropic.Float(opts.Temperature),
	}
	if system := p.System(); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &generator.BackendError{Backend: a.Name(), StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
		}
		return "", generator.Classify(a.Name(), err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	slog.Debug("anthropic chat complete", "model", string(resp.Model), "output_length", sb.Len(),
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	return sb.String(), nil
}

// Probe reports the configured model. The Messages API has no cheap
// listing call worth spending a request on at startup.
func (a *Anthropic) Probe(context.Context) ([]string, error) {
	return []string{a.model}, nil
}

// Close is a no-op for the Anthropic client.
func (a *Anthropic) Close() error { return nil }

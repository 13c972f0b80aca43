// Package rewrite implements the request pipeline every intake shares.
//
// A rewrite runs generate → sanitize; a document rewrite first extracts and
// truncates the file's text. Speech is a separate operation on text the
// caller already has.
package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nadzzz/toneshift/internal/document"
	"github.com/nadzzz/toneshift/internal/message"
	"github.com/nadzzz/toneshift/internal/sanitize"
	"github.com/nadzzz/toneshift/internal/speech"
	"github.com/nadzzz/toneshift/internal/telemetry"
	"github.com/nadzzz/toneshift/internal/tone"
)

// Generator produces raw model output for a validated request.
type Generator interface {
	Generate(ctx context.Context, req message.Request) (string, error)
}

// Service is the core rewrite pipeline.
type Service struct {
	generator   Generator
	synthesizer speech.Synthesizer // nil if speech is disabled
	metrics     *telemetry.Metrics
	maxChars    int
}

// New creates a Service. synthesizer and metrics may be nil.
func New(gen Generator, synthesizer speech.Synthesizer, metrics *telemetry.Metrics, maxChars int) *Service {
	if maxChars <= 0 {
		maxChars = document.DefaultMaxChars
	}
	return &Service{
		generator:   gen,
		synthesizer: synthesizer,
		metrics:     metrics,
		maxChars:    maxChars,
	}
}

// Rewrite generates req's rewrite and strips model boilerplate from it.
func (s *Service) Rewrite(ctx context.Context, req message.Request) (string, error) {
	start := time.Now()
	logger := slog.With("backend", string(req.Backend), "tone", string(req.Tone), "language", string(req.Language))
	logger.Info("rewrite started", "text_length", len(req.Text))

	raw, err := s.generator.Generate(ctx, req)
	s.metrics.RecordRewrite(ctx, string(req.Backend), string(req.Tone), string(req.Language), time.Since(start), err)
	if err != nil {
		logger.Error("rewrite failed", "error", err, "duration", time.Since(start))
		return "", err
	}

	out := sanitize.Clean(raw)
	logger.Info("rewrite complete", "output_length", len(out), "duration", time.Since(start))
	return out, nil
}

// RewriteDocument extracts the text of an uploaded file, truncates it, and
// rewrites it with the tone, backend and language from form. form.Text is
// ignored.
func (s *Service) RewriteDocument(ctx context.Context, filename string, data []byte, form message.GenerateRequest) (string, error) {
	text, err := document.Extract(filename, data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", message.ErrValidation, err)
	}

	form.Text = document.Truncate(text, s.maxChars)
	req, err := form.Validate()
	if err != nil {
		return "", err
	}

	slog.Debug("document extracted", "filename", filename, "bytes", len(data), "text_length", len(form.Text))
	return s.Rewrite(ctx, req)
}

// SpeechEnabled reports whether Speak can succeed.
func (s *Service) SpeechEnabled() bool { return s.synthesizer != nil }

// Speak synthesizes text in the voice for t. The caller must close the
// returned audio body.
func (s *Service) Speak(ctx context.Context, text string, t tone.Tone) (*speech.Audio, error) {
	if s.synthesizer == nil {
		return nil, speech.ErrDisabled
	}

	start := time.Now()
	audio, err := s.synthesizer.Synthesize(ctx, text, t)
	attempts := 0
	if audio != nil {
		attempts = audio.Task.Attempts
	}
	s.metrics.RecordSpeech(ctx, string(t), attempts, time.Since(start), err)
	if err != nil {
		slog.Error("speech synthesis failed", "tone", string(t), "error", err, "duration", time.Since(start))
		return nil, err
	}

	slog.Info("speech ready", "tone", string(t), "task_id", audio.Task.ID,
		"attempts", audio.Task.Attempts, "content_type", audio.ContentType, "duration", time.Since(start))
	return audio, nil
}

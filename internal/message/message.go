// Package message defines the data types flowing through the toneshift pipeline.
//
// Wire types (GenerateRequest, SpeakRequest, ...) are what intakes decode;
// Request is the validated, enumerated form the core operates on. Unknown
// tone, backend or language identifiers are rejected here, never silently
// defaulted further down.
package message

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nadzzz/toneshift/internal/language"
	"github.com/nadzzz/toneshift/internal/tone"
)

// Backend identifies a text-generation engine.
type Backend string

const (
	// BackendLocalSeq2Seq is the instruction-tuned sequence-to-sequence model
	// loaded into the local runtime on first use.
	BackendLocalSeq2Seq Backend = "flan-t5"

	// BackendRemoteChat is the chat-completion model served over HTTP.
	BackendRemoteChat Backend = "llama-3.2"
)

// Backends returns every supported backend.
func Backends() []Backend {
	return []Backend{BackendLocalSeq2Seq, BackendRemoteChat}
}

// Valid reports whether b is a supported backend.
func (b Backend) Valid() bool {
	switch b {
	case BackendLocalSeq2Seq, BackendRemoteChat:
		return true
	}
	return false
}

func (b Backend) String() string { return string(b) }

var (
	// ErrValidation wraps every rejection of caller-supplied input.
	ErrValidation = errors.New("invalid request")

	ErrUnknownBackend = errors.New("unknown backend")
	ErrEmptyText      = errors.New("text is required")
)

// ParseBackend converts a model identifier into a Backend.
func ParseBackend(id string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(id)))
	if !b.Valid() {
		return "", fmt.Errorf("%w: %q, expected one of %s", ErrUnknownBackend, id, joinBackends(Backends()))
	}
	return b, nil
}

func joinBackends(bs []Backend) string {
	ids := make([]string, len(bs))
	for i, b := range bs {
		ids[i] = string(b)
	}
	return strings.Join(ids, ", ")
}

// Request is a validated rewrite request.
type Request struct {
	// Text is the raw input, passed to the model verbatim.
	Text string

	Tone     tone.Tone
	Backend  Backend
	Language language.Language

	// MaxTokens bounds the generated output. Zero selects the backend default.
	MaxTokens int
}

// NewRequest validates raw identifiers into a Request. Every failure matches ErrValidation.
func NewRequest(text, toneID, backendID, languageID string) (Request, error) {
	if strings.TrimSpace(text) == "" {
		return Request{}, fmt.Errorf("%w: %w", ErrValidation, ErrEmptyText)
	}
	t, err := tone.Parse(toneID)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	b, err := ParseBackend(backendID)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	l, err := language.Parse(languageID)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return Request{Text: text, Tone: t, Backend: b, Language: l}, nil
}

// GenerateRequest is the wire form of a rewrite request.
type GenerateRequest struct {
	// Text is the content to rewrite.
	Text string `json:"text"`

	// ToneID is one of neutral, formal, urgent, optimistic, sarcastic.
	ToneID string `json:"toneId"`

	// ModelID is one of flan-t5, llama-3.2.
	ModelID string `json:"modelId"`

	// Language is the target language: "en" (default) or "tl" (Tagalog/Taglish).
	Language string `json:"language,omitempty"`

	// MaxTokens optionally bounds the generated output (default 200).
	MaxTokens int `json:"maxTokens,omitempty"`
}

// Validate converts the wire form into a Request.
func (g GenerateRequest) Validate() (Request, error) {
	req, err := NewRequest(g.Text, g.ToneID, g.ModelID, g.Language)
	if err != nil {
		return Request{}, err
	}
	if g.MaxTokens < 0 {
		return Request{}, fmt.Errorf("%w: maxTokens must not be negative", ErrValidation)
	}
	req.MaxTokens = g.MaxTokens
	return req, nil
}

// GenerateResponse carries the rewritten text back to the caller.
type GenerateResponse struct {
	Rewritten string `json:"rewritten"`
}

// SpeakRequest asks for text to be synthesized in a tone's voice.
type SpeakRequest struct {
	Text   string `json:"text"`
	ToneID string `json:"toneId"`
}

// Validate checks the text and resolves the tone.
func (s SpeakRequest) Validate() (tone.Tone, error) {
	if strings.TrimSpace(s.Text) == "" {
		return "", fmt.Errorf("%w: %w", ErrValidation, ErrEmptyText)
	}
	t, err := tone.Parse(s.ToneID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return t, nil
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`

	// Code is the HTTP-equivalent status, set on transports without status lines.
	Code int `json:"code,omitempty"`
}

// StatusResponse is returned by the root endpoint.
type StatusResponse struct {
	Status string `json:"status"`
}

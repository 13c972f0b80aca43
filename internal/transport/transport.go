// Package transport defines the interface for pluggable request intakes.
//
// Each transport (HTTP, NATS, gRPC) implements this interface and serves the
// rewrite Service. The service doesn't care how requests arrive; it only
// works with the validated message types.
package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/nadzzz/toneshift/internal/generator"
	"github.com/nadzzz/toneshift/internal/message"
	"github.com/nadzzz/toneshift/internal/speech"
	"github.com/nadzzz/toneshift/internal/tone"
)

// Service is the rewrite pipeline exposed by every transport.
type Service interface {
	Rewrite(ctx context.Context, req message.Request) (string, error)
	RewriteDocument(ctx context.Context, filename string, data []byte, form message.GenerateRequest) (string, error)
	Speak(ctx context.Context, text string, t tone.Tone) (*speech.Audio, error)
}

// Transport is the interface that every intake adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "http", "nats", "grpc").
	Name() string

	// Listen starts accepting requests and serves them with svc.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}

// StatusCode maps a pipeline error onto the HTTP status every transport
// reports for it.
func StatusCode(err error) int {
	var backendErr *generator.BackendError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, message.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, generator.ErrUnknownBackend), errors.Is(err, generator.ErrUnexpectedPayload):
		return http.StatusUnprocessableEntity
	case errors.Is(err, speech.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, speech.ErrMissingCredential):
		return http.StatusInternalServerError
	case errors.Is(err, generator.ErrBackendTimeout),
		errors.Is(err, speech.ErrSynthesisTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, generator.ErrBackendUnavailable),
		errors.As(err, &backendErr),
		errors.Is(err, speech.ErrTaskCreationFailed),
		errors.Is(err, speech.ErrSynthesisFailed),
		errors.Is(err, speech.ErrMissingAudioLocation),
		errors.Is(err, speech.ErrAudioFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

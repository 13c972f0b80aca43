package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nadzzz/toneshift/internal/generator"
	"github.com/nadzzz/toneshift/internal/message"
	"github.com/nadzzz/toneshift/internal/speech"
)

func TestStatusCode(t *testing.T) {
	_, parseErr := message.NewRequest("hi", "formal", "gpt-9000", "")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"boundary unknown backend", parseErr, http.StatusBadRequest},
		{"core unknown backend", fmt.Errorf("%w: %q", generator.ErrUnknownBackend, "gpt-9000"), http.StatusUnprocessableEntity},
		{"speech disabled", speech.ErrDisabled, http.StatusServiceUnavailable},
		{"missing credential", speech.ErrMissingCredential, http.StatusInternalServerError},
		{"backend timeout", generator.Classify("chat", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"synthesis timeout", speech.ErrSynthesisTimeout, http.StatusGatewayTimeout},
		{"backend unavailable", generator.Classify("chat", fmt.Errorf("dial: %w", syscall.ECONNREFUSED)), http.StatusBadGateway},
		{"backend exchange failed", generator.Classify("chat", errors.New("unexpected EOF")), http.StatusBadGateway},
		{"backend error", &generator.BackendError{Backend: "chat", StatusCode: 500}, http.StatusBadGateway},
		{"synthesis failed", &speech.SynthesisError{TaskID: "t"}, http.StatusBadGateway},
		{"audio fetch", speech.ErrAudioFetchFailed, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

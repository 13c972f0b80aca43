package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/toneshift/internal/language"
	"github.com/nadzzz/toneshift/internal/message"
	"github.com/nadzzz/toneshift/internal/prompt"
	"github.com/nadzzz/toneshift/internal/tone"
)

type fakeGenerator struct {
	name  string
	out   string
	err   error
	calls int
	last  prompt.Payload
	opts  Options
}

func (f *fakeGenerator) Name() string { return f.name }

func (f *fakeGenerator) Generate(_ context.Context, p prompt.Payload, opts Options) (string, error) {
	f.calls++
	f.last = p
	f.opts = opts
	return f.out, f.err
}

func (f *fakeGenerator) Close() error { return nil }

func request(b message.Backend) message.Request {
	return message.Request{Text: "Ship it today.", Tone: tone.Formal, Backend: b, Language: language.English}
}

func TestRouterDispatchesLocal(t *testing.T) {
	local := &fakeGenerator{name: "seq2seq", out: "It shall be shipped today."}
	chat := &fakeGenerator{name: "chat"}
	r := NewRouter(local, chat)

	out, err := r.Generate(context.Background(), request(message.BackendLocalSeq2Seq))
	require.NoError(t, err)

	assert.Equal(t, "It shall be shipped today.", out)
	assert.Equal(t, 1, local.calls)
	assert.Equal(t, 0, chat.calls)
	assert.IsType(t, prompt.InstructionPayload{}, local.last)
	assert.Equal(t, Options{MaxTokens: DefaultMaxTokens, Temperature: Temperature}, local.opts)
}

func TestRouterDispatchesChat(t *testing.T) {
	local := &fakeGenerator{name: "seq2seq"}
	chat := &fakeGenerator{name: "chat", out: "Kindly ship it today."}
	r := NewRouter(local, chat)

	req := request(message.BackendRemoteChat)
	req.MaxTokens = 64
	out, err := r.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Kindly ship it today.", out)
	assert.Equal(t, 0, local.calls)
	assert.Equal(t, 1, chat.calls)
	assert.IsType(t, prompt.ChatPayload{}, chat.last)
	assert.Equal(t, 64, chat.opts.MaxTokens)
}

func TestRouterUnknownBackendHasNoSideEffects(t *testing.T) {
	local := &fakeGenerator{name: "seq2seq"}
	chat := &fakeGenerator{name: "chat"}
	r := NewRouter(local, chat)

	_, err := r.Generate(context.Background(), request("gpt-9000"))

	assert.ErrorIs(t, err, ErrUnknownBackend)
	assert.ErrorIs(t, err, message.ErrUnknownBackend)
	assert.Zero(t, local.calls)
	assert.Zero(t, chat.calls)
}

func TestRouterUnconfiguredBackend(t *testing.T) {
	r := NewRouter(nil, &fakeGenerator{name: "chat"})

	_, err := r.Generate(context.Background(), request(message.BackendLocalSeq2Seq))
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestRouterPropagatesAdapterError(t *testing.T) {
	backendErr := &BackendError{Backend: "chat", StatusCode: 500, Body: "model not found"}
	r := NewRouter(&fakeGenerator{}, &fakeGenerator{err: backendErr})

	_, err := r.Generate(context.Background(), request(message.BackendRemoteChat))

	var got *BackendError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 500, got.StatusCode)
	assert.Contains(t, err.Error(), "model not found")
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), ErrBackendTimeout},
		{"net timeout", timeoutErr{}, ErrBackendTimeout},
		{"refused", refused, ErrBackendUnavailable},
		{"dns", &net.DNSError{Err: "no such host", Name: "runtime.invalid"}, ErrBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("seq2seq", tt.err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("other", func(t *testing.T) {
		cause := errors.New("unexpected EOF")
		err := Classify("seq2seq", cause)

		var backendErr *BackendError
		require.ErrorAs(t, err, &backendErr)
		assert.Zero(t, backendErr.StatusCode)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrBackendUnavailable)
		assert.NotErrorIs(t, err, ErrBackendTimeout)
		assert.Equal(t, "seq2seq: unexpected EOF", err.Error())
	})

	assert.NoError(t, Classify("seq2seq", nil))
	assert.Equal(t, context.Canceled, Classify("seq2seq", context.Canceled))
}

func TestDecodeResponse(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"response":"ok"}`))}
	var out struct {
		Response string `json:"response"`
	}
	require.NoError(t, DecodeResponse("seq2seq", resp, &out))
	assert.Equal(t, "ok", out.Response)

	resp = &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("<html>proxy error</html>"))}
	err := DecodeResponse("seq2seq", resp, &out)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusOK, backendErr.StatusCode)
	assert.Equal(t, "<html>proxy error</html>", backendErr.Body)
	assert.Contains(t, err.Error(), "decoding response")
}

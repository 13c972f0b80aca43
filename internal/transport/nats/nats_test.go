package nats

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/toneshift/internal/config"
	"github.com/nadzzz/toneshift/internal/generator"
	"github.com/nadzzz/toneshift/internal/message"
	"github.com/nadzzz/toneshift/internal/rewrite"
)

type stubGenerator struct {
	out string
	err error
}

func (g *stubGenerator) Generate(context.Context, message.Request) (string, error) {
	return g.out, g.err
}

func startTransport(t *testing.T, gen *stubGenerator) *nats.Conn {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	server := test.RunServer(&opts)
	t.Cleanup(server.Shutdown)

	tr := New(config.NATSConfig{URL: server.ClientURL(), Subject: "toneshift.test"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Listen(ctx, rewrite.New(gen, nil, nil, 0)) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	// Wait until the transport's queue subscription is live.
	require.Eventually(t, func() bool {
		_, err := nc.Request("toneshift.test", []byte(`{}`), 100*time.Millisecond)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	return nc
}

func request(t *testing.T, nc *nats.Conn, body any) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	msg := nats.NewMsg("toneshift.test")
	msg.Data = data
	msg.Header.Set(RequestIDHeader, "req-42")
	resp, err := nc.RequestMsg(msg, 2*time.Second)
	require.NoError(t, err)
	return resp
}

func TestRewriteOverNATS(t *testing.T) {
	nc := startTransport(t, &stubGenerator{out: "Here you go: Magandang umaga po."})

	resp := request(t, nc, message.GenerateRequest{Text: "morning", ToneID: "formal", ModelID: "llama-3.2", Language: "tl"})

	var body message.GenerateResponse
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	assert.Equal(t, "Magandang umaga po.", body.Rewritten)
	assert.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))
}

func TestValidationErrorOverNATS(t *testing.T) {
	nc := startTransport(t, &stubGenerator{out: "unused"})

	resp := request(t, nc, message.GenerateRequest{Text: "hi", ToneID: "formal", ModelID: "gpt-9000"})

	var body message.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.Contains(t, body.Error, "unknown backend")
}

func TestBackendErrorOverNATS(t *testing.T) {
	nc := startTransport(t, &stubGenerator{err: generator.Classify("seq2seq", context.DeadlineExceeded)})

	resp := request(t, nc, message.GenerateRequest{Text: "hi", ToneID: "neutral", ModelID: "flan-t5"})

	var body message.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	assert.Equal(t, http.StatusGatewayTimeout, body.Code)
}

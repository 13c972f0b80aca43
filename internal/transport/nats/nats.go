// Package nats implements the NATS request/reply transport for toneshift.
//
// Backend services that already sit on a NATS bus can request rewrites
// without going through HTTP. The transport joins a queue group on the
// configured subject so several toneshift instances share the load. Request
// bodies are the /generate JSON; replies are a GenerateResponse or an
// ErrorResponse carrying the HTTP-equivalent status code.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/nadzzz/toneshift/internal/config"
	"github.com/nadzzz/toneshift/internal/message"
	"github.com/nadzzz/toneshift/internal/transport"
)

// RequestIDHeader carries the request id on replies.
const RequestIDHeader = "Toneshift-Request-Id"

// Transport implements transport.Transport over NATS.
type Transport struct {
	url     string
	subject string
	queue   string

	mu       sync.Mutex
	conn     *nats.Conn
	sub      *nats.Subscription
	closing  bool
	inflight sync.WaitGroup
}

// New creates a new NATS transport from config.
func New(cfg config.NATSConfig) *Transport {
	subject := cfg.Subject
	if subject == "" {
		subject = "toneshift.rewrite"
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "toneshift"
	}
	return &Transport{url: cfg.URL, subject: subject, queue: queue}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "nats" }

// Listen connects to the server and serves rewrite requests until ctx is done.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	conn, err := nats.Connect(t.url,
		nats.Name("toneshift"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}

	// In-flight rewrites finish on shutdown; each backend bounds its own time.
	reqCtx := context.WithoutCancel(ctx)

	sub, err := conn.QueueSubscribe(t.subject, t.queue, func(msg *nats.Msg) {
		t.mu.Lock()
		if t.closing {
			t.mu.Unlock()
			return
		}
		t.inflight.Add(1)
		t.mu.Unlock()

		go func() {
			defer t.inflight.Done()
			t.handle(reqCtx, msg, svc)
		}()
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("subscribe to %s: %w", t.subject, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.sub = sub
	t.mu.Unlock()

	slog.Info("nats transport listening", "url", t.url, "subject", t.subject, "queue", t.queue)

	<-ctx.Done()
	slog.Info("nats transport shutting down")
	return t.Close()
}

func (t *Transport) handle(ctx context.Context, msg *nats.Msg, svc transport.Service) {
	requestID := msg.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := slog.With("request_id", requestID, "subject", msg.Subject)

	var body message.GenerateRequest
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		t.reply(logger, msg, requestID, nil, fmt.Errorf("%w: invalid json: %w", message.ErrValidation, err))
		return
	}

	req, err := body.Validate()
	if err != nil {
		t.reply(logger, msg, requestID, nil, err)
		return
	}

	out, err := svc.Rewrite(ctx, req)
	t.reply(logger, msg, requestID, &message.GenerateResponse{Rewritten: out}, err)
}

func (t *Transport) reply(logger *slog.Logger, msg *nats.Msg, requestID string, resp *message.GenerateResponse, err error) {
	if msg.Reply == "" {
		logger.Warn("dropping rewrite result, request had no reply subject")
		return
	}

	var payload any = resp
	if err != nil {
		code := transport.StatusCode(err)
		logger.Warn("nats rewrite failed", "code", code, "error", err)
		payload = message.ErrorResponse{Error: err.Error(), Code: code}
	}

	data, mErr := json.Marshal(payload)
	if mErr != nil {
		logger.Error("marshalling reply", "error", mErr)
		return
	}

	out := nats.NewMsg(msg.Reply)
	out.Header.Set(RequestIDHeader, requestID)
	out.Data = data
	if err := msg.RespondMsg(out); err != nil {
		logger.Error("sending reply", "error", err)
	}
}

// Close stops taking requests, waits for in-flight ones to reply, and
// closes the connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closing = true
	conn, sub := t.conn, t.sub
	t.conn, t.sub = nil, nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := sub.Unsubscribe(); err != nil {
		slog.Warn("nats unsubscribe", "error", err)
	}
	t.inflight.Wait()

	err := conn.Flush()
	conn.Close()
	if err != nil {
		return fmt.Errorf("flushing nats replies: %w", err)
	}
	return nil
}

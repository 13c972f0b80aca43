package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"

	"github.com/nadzzz/toneshift/internal/message"
)

var (
	// ErrUnknownBackend is shared with message so boundary and core
	// rejections of the same identifier compare equal.
	ErrUnknownBackend = message.ErrUnknownBackend

	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrBackendTimeout     = errors.New("backend timed out")
	ErrUnexpectedPayload  = errors.New("unexpected payload type")
)

const snippetLen = 2048

// BackendError is a backend that was reached but did not produce a usable
// answer: a non-success status, an unreadable body, or a failed exchange.
type BackendError struct {
	Backend string
	// StatusCode is 0 when no response was received.
	StatusCode int
	// Body is the remote body or failure detail, truncated.
	Body string
	Err  error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%s returned status %d: %s", e.Backend, e.StatusCode, e.Body)
	if e.StatusCode == 0 {
		msg = fmt.Sprintf("%s: %s", e.Backend, e.Body)
	}
	if e.Err != nil && e.StatusCode != 0 {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error { return e.Err }

// Classify maps a transport-level failure onto the backend error taxonomy:
// timeouts become ErrBackendTimeout, failures to connect become
// ErrBackendUnavailable, and anything else is a *BackendError. Caller
// cancellation is returned unchanged.
func Classify(backend string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case IsTimeout(err):
		return fmt.Errorf("%w: %s: %w", ErrBackendTimeout, backend, err)
	case IsConnectionFailure(err):
		return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, backend, err)
	default:
		return &BackendError{Backend: backend, Body: err.Error(), Err: err}
	}
}

// StatusError reads a truncated body from a non-success response.
func StatusError(backend string, resp *http.Response) *BackendError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, snippetLen))
	return &BackendError{Backend: backend, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// DecodeResponse decodes a successful JSON response into out. A body that
// cannot be read in full is classified like any transport failure; one that
// is not the expected JSON is a *BackendError carrying the start of the body.
func DecodeResponse(backend string, resp *http.Response, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Classify(backend, fmt.Errorf("reading response: %w", err))
	}
	if err := json.Unmarshal(body, out); err != nil {
		snippet := body
		if len(snippet) > snippetLen {
			snippet = snippet[:snippetLen]
		}
		return &BackendError{
			Backend:    backend,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
			Err:        fmt.Errorf("decoding response: %w", err),
		}
	}
	return nil
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsConnectionFailure reports whether err means the backend could not be reached.
func IsConnectionFailure(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

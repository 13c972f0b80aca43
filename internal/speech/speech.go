// Package speech turns rewritten text into audio through an asynchronous
// text-to-speech task API.
//
// A synthesis is a create → poll → resolve → stream sequence: the text is
// submitted as a task, the task is polled at a fixed interval until it
// finishes or the attempt budget runs out, and the finished task's audio is
// fetched and handed back as a stream.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nadzzz/toneshift/internal/config"
	"github.com/nadzzz/toneshift/internal/tone"
)

// Polling is fixed so callers can rely on a bounded wait of about
// PollInterval * MaxAttempts.
const (
	PollInterval       = time.Second
	MaxAttempts        = 30
	DefaultContentType = "audio/mpeg"
)

// Synthesizer converts text to audio in a tone's voice.
type Synthesizer interface {
	// Synthesize returns the audio for text. The caller must close Audio.Body.
	Synthesize(ctx context.Context, text string, t tone.Tone) (*Audio, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Task is the request-scoped view of a remote synthesis task.
type Task struct {
	ID       string
	Voice    string
	Status   Status
	AudioURL string

	// Error is the remote failure message of a failed task.
	Error string

	// Attempts is the number of status polls made so far.
	Attempts int
}

// Audio is a stream of synthesized audio.
type Audio struct {
	Body        io.ReadCloser
	ContentType string

	// ContentLength is -1 when the audio host does not report it.
	ContentLength int64

	Task Task
}

// Status is the normalized state of a remote task.
type Status int

const (
	StatusPending Status = iota
	StatusDone
	StatusFailed

	// StatusTimeout is local: the attempt budget ran out first.
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusTimeout:
		return "timeout"
	default:
		return "pending"
	}
}

// ParseStatus normalizes a remote status string. Unrecognized values are pending.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "done", "completed", "succeeded", "success":
		return StatusDone
	case "failed", "error":
		return StatusFailed
	default:
		return StatusPending
	}
}

// Client talks to the speech task API.
type Client struct {
	baseURL      string
	apiKey       string
	apiKeyEnv    string
	model        string
	voices       map[tone.Tone]string
	pollInterval time.Duration
	maxAttempts  int
	client       *http.Client
}

// New creates a speech client from config.
func New(cfg config.SpeechConfig) *Client {
	voices := make(map[tone.Tone]string, len(cfg.Voices))
	for id, voice := range cfg.Voices {
		t, err := tone.Parse(id)
		if err != nil {
			slog.Warn("ignoring voice override for unknown tone", "tone", id, "voice", voice)
			continue
		}
		voices[t] = voice
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		apiKeyEnv:    cfg.APIKeyEnv,
		model:        cfg.Model,
		voices:       voices,
		pollInterval: PollInterval,
		maxAttempts:  MaxAttempts,
		client:       &http.Client{},
	}
}

// Voice returns the voice used for t: the configured override, else the
// catalog voice.
func (c *Client) Voice(t tone.Tone) string {
	if v, ok := c.voices[t]; ok && v != "" {
		return v
	}
	return tone.VoiceFor(t)
}

// credential is resolved on every call so a rotated key takes effect
// without a restart.
func (c *Client) credential() (string, error) {
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	if c.apiKeyEnv != "" {
		if key := os.Getenv(c.apiKeyEnv); key != "" {
			return key, nil
		}
	}
	return "", ErrMissingCredential
}

// Synthesize submits text, waits for the task, and opens the audio stream.
func (c *Client) Synthesize(ctx context.Context, text string, t tone.Tone) (*Audio, error) {
	key, err := c.credential()
	if err != nil {
		return nil, err
	}

	voice := c.Voice(t)
	taskID, err := c.submit(ctx, key, text, voice)
	if err != nil {
		return nil, err
	}

	logger := slog.With("task_id", taskID, "voice", voice)
	logger.Info("speech task created", "tone", string(t), "text_length", len(text))

	task, err := c.await(ctx, logger, key, taskID)
	task.Voice = voice
	if err != nil {
		logger.Warn("speech task did not finish", "status", task.Status.String(), "attempts", task.Attempts, "error", err)
		return nil, err
	}

	return c.fetch(ctx, task)
}

type taskEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type createRequest struct {
	Model string `json:"model,omitempty"`
	Input struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	} `json:"input"`
}

type createData struct {
	TaskID string `json:"task_id"`
}

type statusData struct {
	Status string `json:"status"`
	Result struct {
		AudioURL string `json:"audio_url"`
	} `json:"result"`
	Error string `json:"error"`
}

func (c *Client) submit(ctx context.Context, key, text, voice string) (string, error) {
	body := createRequest{Model: c.model}
	body.Input.Text = text
	body.Input.Voice = voice

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshalling task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tasks", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTaskCreationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: status %d: %s", ErrTaskCreationFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var env taskEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("%w: decoding response: %w", ErrTaskCreationFailed, err)
	}
	if !env.Success {
		return "", fmt.Errorf("%w: %s", ErrTaskCreationFailed, env.Message)
	}

	var data createData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.TaskID == "" {
		return "", fmt.Errorf("%w: response carried no task id", ErrTaskCreationFailed)
	}
	return data.TaskID, nil
}

// await polls the task until it reaches a terminal state, the attempt
// budget is spent, or ctx is done. Unreadable poll responses count against
// the budget but do not end the wait.
// The returned Task reflects the last known state even when err is set.
func (c *Client) await(ctx context.Context, logger *slog.Logger, key, taskID string) (Task, error) {
	task := Task{ID: taskID, Status: StatusPending}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for task.Attempts < c.maxAttempts {
		if task.Attempts > 0 {
			timer.Reset(c.pollInterval)
		}
		select {
		case <-ctx.Done():
			return task, fmt.Errorf("waiting for speech task %s: %w", taskID, ctx.Err())
		case <-timer.C:
		}

		task.Attempts++
		status, err := c.poll(ctx, key, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return task, fmt.Errorf("waiting for speech task %s: %w", taskID, ctx.Err())
			}
			logger.Warn("speech task poll failed", "attempt", task.Attempts, "error", err)
			continue
		}

		task.Status = ParseStatus(status.Status)
		switch task.Status {
		case StatusDone:
			if status.Result.AudioURL == "" {
				return task, fmt.Errorf("%w: task %s", ErrMissingAudioLocation, taskID)
			}
			task.AudioURL = status.Result.AudioURL
			logger.Info("speech task finished", "attempts", task.Attempts)
			return task, nil
		case StatusFailed:
			task.Error = status.Error
			return task, &SynthesisError{TaskID: taskID, Message: status.Error}
		default:
			logger.Debug("speech task pending", "attempt", task.Attempts, "status", status.Status)
		}
	}

	task.Status = StatusTimeout
	return task, fmt.Errorf("%w: task %s not finished after %d attempts", ErrSynthesisTimeout, taskID, c.maxAttempts)
}

func (c *Client) poll(ctx context.Context, key, taskID string) (statusData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/tasks/"+taskID, nil)
	if err != nil {
		return statusData{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.client.Do(req)
	if err != nil {
		return statusData{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusData{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var env taskEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return statusData{}, fmt.Errorf("decoding response: %w", err)
	}
	if !env.Success {
		return statusData{}, fmt.Errorf("unsuccessful response: %s", env.Message)
	}

	var data statusData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return statusData{}, fmt.Errorf("decoding task data: %w", err)
	}
	return data, nil
}

// fetch opens the audio stream for a finished task.
func (c *Client) fetch(ctx context.Context, task Task) (*Audio, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.AudioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAudioFetchFailed, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAudioFetchFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrAudioFetchFailed, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &Audio{
		Body:          resp.Body,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
		Task:          task,
	}, nil
}

// Close is a no-op; the client holds no connections between calls.
func (c *Client) Close() error { return nil }

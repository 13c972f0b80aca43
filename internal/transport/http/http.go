// Package http implements the HTTP transport for toneshift.
//
// This transport exposes the REST API used by the web front end: JSON
// rewrites, document uploads, and streamed speech. It also serves the
// generated OpenAPI docs.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nadzzz/toneshift/internal/config"
	"github.com/nadzzz/toneshift/internal/message"
	"github.com/nadzzz/toneshift/internal/transport"
)

const defaultMaxUploadBytes = 10 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port           int
	corsOrigins    []string
	maxUploadBytes int64
	server         *http.Server
}

// New creates a new HTTP transport from config.
func New(cfg config.HTTPConfig) *Transport {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &Transport{
		port:           cfg.Port,
		corsOrigins:    cfg.CORSOrigins,
		maxUploadBytes: maxUpload,
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the routed API for svc.
func (t *Transport) Handler(svc transport.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors(t.corsOrigins))

	r.Get("/", handleRoot)
	r.Post("/generate", func(w http.ResponseWriter, r *http.Request) { handleGenerate(w, r, svc) })
	r.Post("/upload", func(w http.ResponseWriter, r *http.Request) { t.handleUpload(w, r, svc) })
	r.Post("/speak", func(w http.ResponseWriter, r *http.Request) { handleSpeak(w, r, svc) })

	// Swagger UI serves the generated OpenAPI docs.
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}

// Listen starts the HTTP server and serves requests with svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleRoot reports that the service is up.
//
// @Summary     Service status
// @Tags        status
// @Produce     json
// @Success     200  {object}  message.StatusResponse
// @Router      / [get]
func handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, message.StatusResponse{Status: "toneshift is running"})
}

// handleGenerate processes a POST /generate request.
//
// @Summary     Rewrite text in a tone
// @Description Rewrites the text in the requested tone and language using the selected backend.
// @Description The output is cleaned of boilerplate lead-ins before it is returned.
// @Tags        rewrite
// @Accept      json
// @Produce     json
// @Param       request  body      message.GenerateRequest  true  "Rewrite request"
// @Success     200  {object}  message.GenerateResponse
// @Failure     400  {object}  message.ErrorResponse  "Unknown tone, model or language, or empty text"
// @Failure     422  {object}  message.ErrorResponse  "Request rejected by the generation router"
// @Failure     502  {object}  message.ErrorResponse  "Backend unavailable or failed"
// @Failure     504  {object}  message.ErrorResponse  "Backend timed out"
// @Router      /generate [post]
func handleGenerate(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	var body message.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json: %w", message.ErrValidation, err))
		return
	}

	req, err := body.Validate()
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := svc.Rewrite(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message.GenerateResponse{Rewritten: out})
}

// handleUpload processes a POST /upload request.
//
// @Summary     Rewrite an uploaded document
// @Description Extracts the text of a .txt, .docx or .pdf file, truncates it, and rewrites it like /generate.
// @Tags        rewrite
// @Accept      mpfd
// @Produce     json
// @Param       file      formData  file    true   "Document to rewrite"
// @Param       toneId    formData  string  true   "Target tone"
// @Param       modelId   formData  string  true   "Generation backend"
// @Param       language  formData  string  false  "Target language (en or tl)"
// @Success     200  {object}  message.GenerateResponse
// @Failure     400  {object}  message.ErrorResponse  "Unsupported file or invalid form"
// @Failure     502  {object}  message.ErrorResponse  "Backend unavailable or failed"
// @Failure     504  {object}  message.ErrorResponse  "Backend timed out"
// @Router      /upload [post]
func (t *Transport) handleUpload(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	r.Body = http.MaxBytesReader(w, r.Body, t.maxUploadBytes)
	if err := r.ParseMultipartForm(t.maxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: invalid upload: %w", message.ErrValidation, err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: file is required: %w", message.ErrValidation, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: reading upload: %w", message.ErrValidation, err))
		return
	}

	form := message.GenerateRequest{
		ToneID:   r.FormValue("toneId"),
		ModelID:  r.FormValue("modelId"),
		Language: r.FormValue("language"),
	}
	out, err := svc.RewriteDocument(r.Context(), header.Filename, data, form)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message.GenerateResponse{Rewritten: out})
}

// handleSpeak processes a POST /speak request.
//
// @Summary     Speak text in a tone's voice
// @Description Submits a speech synthesis task, waits for it, and streams the resulting audio.
// @Tags        speech
// @Accept      json
// @Produce     audio/mpeg
// @Param       request  body  message.SpeakRequest  true  "Speech request"
// @Success     200  {file}    binary
// @Failure     400  {object}  message.ErrorResponse  "Unknown tone or empty text"
// @Failure     500  {object}  message.ErrorResponse  "Speech credential not configured"
// @Failure     502  {object}  message.ErrorResponse  "Synthesis failed"
// @Failure     503  {object}  message.ErrorResponse  "Speech disabled"
// @Failure     504  {object}  message.ErrorResponse  "Synthesis timed out"
// @Router      /speak [post]
func handleSpeak(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	var body message.SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json: %w", message.ErrValidation, err))
		return
	}

	t, err := body.Validate()
	if err != nil {
		writeError(w, err)
		return
	}

	audio, err := svc.Speak(r.Context(), body.Text, t)
	if err != nil {
		writeError(w, err)
		return
	}
	defer audio.Body.Close()

	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("X-Speech-Task-Id", audio.Task.ID)
	w.WriteHeader(http.StatusOK)

	n, err := relay(w, audio.Body)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("audio stream interrupted", "task_id", audio.Task.ID, "bytes", n, "error", err)
		return
	}
	slog.Debug("audio streamed", "task_id", audio.Task.ID, "bytes", n)
}

// relay copies src to w chunk by chunk, flushing after each write so the
// client starts receiving audio before the upstream stream ends.
func relay(w http.ResponseWriter, src io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32<<10)

	var total int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			written, err := w.Write(buf[:n])
			total += int64(written)
			if err != nil {
				return total, err
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := transport.StatusCode(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
	} else {
		slog.Debug("request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, message.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

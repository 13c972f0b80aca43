// Toneshift is a text rewriting daemon that restyles messages into a chosen
// tone and language using a local seq2seq model or a chat model, and can
// speak the result back through a hosted speech API.
//
// Usage:
//
//	toneshift [flags]
//	toneshift --config /path/to/toneshift.yaml
//
// @title        toneshift API
// @version      1.0
// @description  Rewrites text into a chosen tone and language, and speaks it back.
// @BasePath     /
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/toneshift/docs"
	"github.com/nadzzz/toneshift/internal/config"
	"github.com/nadzzz/toneshift/internal/generator"
	"github.com/nadzzz/toneshift/internal/generator/chat"
	"github.com/nadzzz/toneshift/internal/generator/seq2seq"
	"github.com/nadzzz/toneshift/internal/health"
	"github.com/nadzzz/toneshift/internal/rewrite"
	"github.com/nadzzz/toneshift/internal/speech"
	"github.com/nadzzz/toneshift/internal/telemetry"
	"github.com/nadzzz/toneshift/internal/transport"
	grpctransport "github.com/nadzzz/toneshift/internal/transport/grpc"
	httptransport "github.com/nadzzz/toneshift/internal/transport/http"
	natstransport "github.com/nadzzz/toneshift/internal/transport/nats"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/toneshift.local.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("toneshift %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	config.SetupLogging(cfg.Logging)
	slog.Info("toneshift starting", "version", version)
	docs.SwaggerInfo.Version = version

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics, err := telemetry.New("toneshift")
	if err != nil {
		slog.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	otel.SetMeterProvider(metrics.Provider())

	// Generation backends.
	local := seq2seq.New(cfg.Backends.Local)
	chatBackend, err := chat.New(cfg.Backends.Chat)
	if err != nil {
		slog.Error("failed to initialize chat backend", "error", err)
		os.Exit(1)
	}
	router := generator.NewRouter(local, chatBackend)
	slog.Info("generation backends configured",
		"local_endpoint", cfg.Backends.Local.Endpoint,
		"local_model", cfg.Backends.Local.Model,
		"chat_api", cfg.Backends.Chat.API,
		"chat_model", cfg.Backends.Chat.Model)

	probeBackends(ctx, local, chatBackend)

	var synth speech.Synthesizer
	if cfg.Speech.Enabled {
		synth = speech.New(cfg.Speech)
		slog.Info("speech synthesis enabled", "base_url", cfg.Speech.BaseURL, "model", cfg.Speech.Model)
	}

	svc := rewrite.New(router, synth, metrics, cfg.Document.MaxChars)

	// Transports.
	var transports []transport.Transport
	var grpcT *grpctransport.Transport

	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP))
	}
	if cfg.Transports.NATS.Enabled {
		transports = append(transports, natstransport.New(cfg.Transports.NATS))
	}
	if cfg.Transports.GRPC.Enabled {
		grpcT = grpctransport.New(cfg.Transports.GRPC.Port)
		transports = append(transports, grpcT)
	}

	if len(transports) == 0 {
		slog.Error("no transports enabled, enable at least one in config")
		os.Exit(1)
	}

	healthServer := health.New(cfg.Server.HealthPort, metrics.Handler())
	healthServer.AddCheck("seq2seq", func(ctx context.Context) error {
		_, err := local.Probe(ctx)
		return err
	})
	healthServer.AddCheck("chat", func(ctx context.Context) error {
		_, err := chatBackend.Probe(ctx)
		return err
	})
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range transports {
		g.Go(func() error {
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(gctx, svc); err != nil {
				return fmt.Errorf("transport %s: %w", t.Name(), err)
			}
			return nil
		})
	}

	healthServer.SetReady(true)
	if grpcT != nil {
		grpcT.SetServing(true)
	}
	slog.Info("toneshift ready",
		"transports", len(transports),
		"speech", svc.SpeechEnabled(),
		"health_port", cfg.Server.HealthPort)

	// Transports stop on their own once gctx is done, either from a signal
	// or because one of them failed.
	<-gctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	if err := g.Wait(); err != nil {
		slog.Error("transport failed", "error", err)
	}

	if err := router.Close(); err != nil {
		slog.Error("backend close error", "error", err)
	}
	if synth != nil {
		_ = synth.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics shutdown error", "error", err)
	}

	slog.Info("toneshift stopped")
}

// probeBackends logs which models each backend reports. Failures are only
// warnings: the runtimes may come up after the daemon does.
func probeBackends(ctx context.Context, local *seq2seq.Generator, chatBackend chat.Backend) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if models, err := local.Probe(ctx); err != nil {
		slog.Warn("local model runtime not reachable", "error", err)
	} else {
		slog.Info("local model runtime reachable", "models", models)
	}

	if models, err := chatBackend.Probe(ctx); err != nil {
		slog.Warn("chat backend not reachable", "error", err)
	} else {
		slog.Info("chat backend reachable", "models", models)
	}
}

// Package telemetry records rewrite and speech metrics with OpenTelemetry and
// exposes them in Prometheus text format.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const scope = "github.com/nadzzz/toneshift"

// Metrics holds the instruments used across the service. A nil *Metrics
// records nothing.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler

	rewrites       metric.Int64Counter
	rewriteLatency metric.Float64Histogram
	speech         metric.Int64Counter
	speechLatency  metric.Float64Histogram
	pollAttempts   metric.Int64Histogram
}

// New creates a meter provider backed by a private Prometheus registry.
func New(service string) (*Metrics, error) {
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
	)
	meter := provider.Meter(scope)

	m := &Metrics{
		provider: provider,
		handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	if m.rewrites, err = meter.Int64Counter("toneshift.rewrites",
		metric.WithDescription("Rewrite requests by backend, tone, language and outcome.")); err != nil {
		return nil, err
	}
	if m.rewriteLatency, err = meter.Float64Histogram("toneshift.rewrite.duration",
		metric.WithDescription("Time spent generating a rewrite."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.speech, err = meter.Int64Counter("toneshift.speech",
		metric.WithDescription("Speech synthesis requests by tone and outcome.")); err != nil {
		return nil, err
	}
	if m.speechLatency, err = meter.Float64Histogram("toneshift.speech.duration",
		metric.WithDescription("Time from task submission to audio stream."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.pollAttempts, err = meter.Int64Histogram("toneshift.speech.poll_attempts",
		metric.WithDescription("Status polls needed for a speech task to finish.")); err != nil {
		return nil, err
	}
	return m, nil
}

// Provider returns the underlying meter provider.
func (m *Metrics) Provider() *sdkmetric.MeterProvider { return m.provider }

// Handler serves the metrics in Prometheus text format.
func (m *Metrics) Handler() http.Handler { return m.handler }

// RecordRewrite records one rewrite attempt.
func (m *Metrics) RecordRewrite(ctx context.Context, backend, tone, language string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("tone", tone),
		attribute.String("language", language),
		attribute.String("outcome", outcome(err)),
	)
	m.rewrites.Add(ctx, 1, attrs)
	m.rewriteLatency.Record(ctx, d.Seconds(), attrs)
}

// RecordSpeech records one synthesis. attempts is zero when the task never
// reached polling.
func (m *Metrics) RecordSpeech(ctx context.Context, tone string, attempts int, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tone", tone),
		attribute.String("outcome", outcome(err)),
	)
	m.speech.Add(ctx, 1, attrs)
	m.speechLatency.Record(ctx, d.Seconds(), attrs)
	if attempts > 0 {
		m.pollAttempts.Record(ctx, int64(attempts))
	}
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Package observe provides OpenTelemetry metric instruments for model traffic.
//
// Callers construct [Metrics] from any [metric.MeterProvider]; [NewNoopMetrics]
// is used when no provider is configured and in tests that do not inspect
// recorded values.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope for all glossa metrics.
const meterName = "github.com/Veraticus/the-glossary-must-flow"

// Request status attribute values.
const (
	StatusOK       = "ok"
	StatusSkipped  = "skipped"
	StatusDegraded = "degraded"
)

// Metrics holds the instruments recorded by the model gateway and the engine.
type Metrics struct {
	// Requests counts model calls, by vendor, task kind and status.
	Requests metric.Int64Counter

	// Tokens counts input and output tokens, by vendor and direction.
	Tokens metric.Int64Counter

	// RequestDuration tracks model call latency in seconds.
	RequestDuration metric.Float64Histogram

	// ChunksCompleted counts chunks whose items were marked processed.
	ChunksCompleted metric.Int64Counter
}

var latencyBuckets = []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.Requests, err = m.Int64Counter("glossa.llm.requests",
		metric.WithDescription("Model requests by vendor, kind and status."),
	); err != nil {
		return nil, err
	}
	if met.Tokens, err = m.Int64Counter("glossa.llm.tokens",
		metric.WithDescription("Tokens consumed by direction."),
	); err != nil {
		return nil, err
	}
	if met.RequestDuration, err = m.Float64Histogram("glossa.llm.duration",
		metric.WithDescription("Latency of model requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ChunksCompleted, err = m.Int64Counter("glossa.engine.chunks",
		metric.WithDescription("Chunks completed by the engine."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// NewNoopMetrics returns instruments that discard everything.
func NewNoopMetrics() *Metrics {
	met, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop meter provider failed: " + err.Error())
	}
	return met
}

// RecordRequest records one model call.
func (m *Metrics) RecordRequest(ctx context.Context, vendor, kind, status string, d time.Duration, in, out int) {
	if m == nil {
		return
	}
	m.Requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("vendor", vendor),
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
	m.RequestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("vendor", vendor),
	))
	if in > 0 {
		m.Tokens.Add(ctx, int64(in), metric.WithAttributes(
			attribute.String("vendor", vendor),
			attribute.String("direction", "input"),
		))
	}
	if out > 0 {
		m.Tokens.Add(ctx, int64(out), metric.WithAttributes(
			attribute.String("vendor", vendor),
			attribute.String("direction", "output"),
		))
	}
}

// RecordChunk records one completed chunk.
func (m *Metrics) RecordChunk(ctx context.Context, items int) {
	if m == nil {
		return
	}
	m.ChunksCompleted.Add(ctx, 1, metric.WithAttributes(attribute.Int("items", items)))
}

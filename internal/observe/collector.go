package observe

import (
	"context"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Collector keeps metrics in process so a CLI run can report totals at exit.
type Collector struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// Totals summarizes the counters recorded so far.
type Totals struct {
	// Requests maps request status to count.
	Requests     map[string]int64
	InputTokens  int64
	OutputTokens int64
	Chunks       int64
}

// NewCollector creates an in-process meter provider.
func NewCollector() *Collector {
	reader := sdkmetric.NewManualReader()
	return &Collector{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// Metrics creates instruments backed by the collector.
func (c *Collector) Metrics() (*Metrics, error) {
	return NewMetrics(c.provider)
}

// Totals reads the current counter values.
func (c *Collector) Totals(ctx context.Context) (Totals, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return Totals{}, fmt.Errorf("collect metrics: %w", err)
	}

	t := Totals{Requests: map[string]int64{}}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				switch m.Name {
				case "glossa.llm.requests":
					status, _ := dp.Attributes.Value("status")
					t.Requests[status.AsString()] += dp.Value
				case "glossa.llm.tokens":
					direction, _ := dp.Attributes.Value("direction")
					if direction.AsString() == "input" {
						t.InputTokens += dp.Value
					} else {
						t.OutputTokens += dp.Value
					}
				case "glossa.engine.chunks":
					t.Chunks += dp.Value
				}
			}
		}
	}
	return t, nil
}

// Shutdown releases the provider.
func (c *Collector) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}

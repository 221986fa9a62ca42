package reprocess

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "arena/internal/reprocess"

// Metrics holds the OpenTelemetry instruments recorded for every run. The
// instruments are safe for concurrent use.
type Metrics struct {
	// Runs counts finished runs by outcome (completed, aborted, rejected).
	Runs metric.Int64Counter
	// Segments counts segments by status and transcript source.
	Segments metric.Int64Counter
	// Events counts match events produced by completed segments.
	Events metric.Int64Counter
	// RunDuration records wall time from run start to done or aborted.
	RunDuration metric.Float64Histogram
}

// runBuckets are histogram boundaries in seconds. Transcribing a half can
// take several minutes.
var runBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400}

// NewMetrics creates the run instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var (
		met Metrics
		err error
	)
	if met.Runs, err = m.Int64Counter("arena.reprocess.runs",
		metric.WithDescription("Reprocess runs by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Segments, err = m.Int64Counter("arena.reprocess.segments",
		metric.WithDescription("Processed video segments by status and transcript source."),
	); err != nil {
		return nil, err
	}
	if met.Events, err = m.Int64Counter("arena.reprocess.events",
		metric.WithDescription("Match events created by analysis."),
	); err != nil {
		return nil, err
	}
	if met.RunDuration, err = m.Float64Histogram("arena.reprocess.run.duration",
		metric.WithDescription("Duration of a reprocess run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(runBuckets...),
	); err != nil {
		return nil, err
	}
	return &met, nil
}

// defaultMetrics builds instruments on the global provider, which discards
// measurements until an SDK provider is installed.
func defaultMetrics() *Metrics {
	met, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil
	}
	return met
}

func (m *Metrics) recordRejected(ctx context.Context) {
	if m == nil {
		return
	}
	m.Runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))
}

func (m *Metrics) recordRun(ctx context.Context, out Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "aborted"
	if out.Completed() {
		outcome = "completed"
	}
	m.Runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.RunDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	for _, seg := range out.Segments {
		m.Segments.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(seg.Status)),
			attribute.String("source", sourceLabel(seg)),
			attribute.String("half", seg.Half),
		))
		if seg.Events > 0 {
			m.Events.Add(ctx, int64(seg.Events), metric.WithAttributes(attribute.String("half", seg.Half)))
		}
	}
}

func sourceLabel(seg SegmentReport) string {
	if seg.Source == "" {
		return "none"
	}
	return string(seg.Source)
}

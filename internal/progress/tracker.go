package progress

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"arena/internal/logging"
)

// Update is one progress report.
type Update struct {
	Stage   string `json:"stage"`
	Percent int    `json:"progress"`
}

// Sink receives progress updates. Sinks must not block; a panicking sink is
// recovered and ignored.
type Sink interface {
	Report(Update)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Update)

// Report implements Sink.
func (f SinkFunc) Report(u Update) { f(u) }

// Tracker keeps the monotonic progress state of the active run.
type Tracker struct {
	mu      sync.Mutex
	current Update
	sinks   []Sink
	logger  *slog.Logger
	sampler logSampler
}

// NewTracker builds a tracker that logs sampled progress and forwards every
// update to sinks.
func NewTracker(logger *slog.Logger, sinks ...Sink) *Tracker {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &Tracker{
		sinks:  filtered,
		logger: logging.NewComponentLogger(logger, "progress"),
	}
}

// Reset clears state at the start of a new run.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.current = Update{}
	t.sampler.reset()
	t.mu.Unlock()
}

// Current returns the latest update.
func (t *Tracker) Current() Update {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Report records a new stage. Percent is clamped to 0..100 and to no less
// than the previous report; the resulting update is returned.
func (t *Tracker) Report(stage string, percent int) Update {
	t.mu.Lock()
	percent = clamp(percent)
	if percent < t.current.Percent {
		percent = t.current.Percent
	}
	stage = strings.TrimSpace(stage)
	if stage == "" {
		stage = t.current.Stage
	}
	update := Update{Stage: stage, Percent: percent}
	t.current = update
	shouldLog := t.sampler.admit(update)
	sinks := t.sinks
	t.mu.Unlock()

	if shouldLog {
		t.logger.Info("progress",
			logging.String(logging.FieldStage, stage),
			logging.Int(logging.FieldProgressPercent, percent),
		)
	}
	for _, sink := range sinks {
		deliver(t.logger, sink, update)
	}
	return update
}

func deliver(logger *slog.Logger, sink Sink, update Update) {
	defer func() {
		if r := recover(); r != nil {
			logging.WarnWithContext(logger, "progress sink panicked; update dropped", "progress_sink_panic",
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldErrorHint, "fix the progress consumer"),
				logging.String(logging.FieldImpact, "one progress update not shown"),
			)
		}
	}()
	sink.Report(update)
}

func clamp(percent int) int {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}

// WriterSink prints each update as a single line to w.
func WriterSink(w io.Writer) Sink {
	var mu sync.Mutex
	return SinkFunc(func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "[%3d%%] %s\n", u.Percent, u.Stage)
	})
}

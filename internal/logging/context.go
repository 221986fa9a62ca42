package logging

import (
	"context"
	"log/slog"

	"arena/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldMatchID is the standardized structured logging key for match identifiers.
	FieldMatchID = "match_id"
	// FieldRunID is the standardized structured logging key for reprocess run identifiers.
	FieldRunID = "run_id"
	// FieldSegmentIndex is the standardized structured logging key for the zero-based segment index.
	FieldSegmentIndex = "segment_index"
	// FieldStage is the standardized structured logging key for reprocess stage names.
	FieldStage = "stage"
	// FieldHalf is the standardized structured logging key for half labels (first, second, full).
	FieldHalf = "half"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries services.ErrorKind for failures.
	FieldErrorKind = "error_kind"
	// FieldErrorOperation carries the failing operation name.
	FieldErrorOperation = "error_operation"
	// FieldDecisionType labels decision log lines (transcript selection, integrity).
	FieldDecisionType = "decision_type"
	// FieldProgressPercent is the percent reported with a progress update.
	FieldProgressPercent = "progress_percent"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 5)
	if id, ok := services.MatchIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldMatchID, id))
	}
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if idx, ok := services.SegmentIndexFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldSegmentIndex, idx))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if half, ok := services.HalfFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldHalf, half))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

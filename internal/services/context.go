package services

import "context"

type contextKey string

const (
	matchIDKey      contextKey = "match_id"
	runIDKey        contextKey = "run_id"
	segmentIndexKey contextKey = "segment_index"
	stageKey        contextKey = "stage"
	halfKey         contextKey = "half"
)

// WithMatchID annotates context with the match identifier.
func WithMatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, matchIDKey, id)
}

// MatchIDFromContext extracts the match identifier if present.
func MatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(matchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the reprocess run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSegmentIndex annotates context with the zero-based segment index.
func WithSegmentIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, segmentIndexKey, index)
}

// SegmentIndexFromContext extracts the segment index if present.
func SegmentIndexFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(segmentIndexKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the reprocess stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithHalf annotates context with the half label (first, second, full).
func WithHalf(ctx context.Context, half string) context.Context {
	if half == "" {
		return ctx
	}
	return context.WithValue(ctx, halfKey, half)
}

// HalfFromContext returns the half label if present.
func HalfFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(halfKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// Package analyzer runs tactical analysis over one segment's transcript.
package analyzer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"arena/internal/config"
	"arena/internal/logging"
	"arena/internal/matchstore"
	"arena/internal/services"
	"arena/internal/services/remote"
	"arena/internal/services/syncfn"
	"arena/internal/transcript"
)

// Service is the analysis collaborator.
type Service interface {
	AnalyzeMatch(ctx context.Context, req remote.AnalyzeRequest) (remote.AnalyzeResult, error)
}

// SideFileWriter persists manual transcripts for later reuse.
type SideFileWriter interface {
	WriteSideFile(ctx context.Context, matchID, text, label string) error
}

// Bounds is a game-minute window.
type Bounds struct {
	Start int
	End   int
}

// HalfBounds holds the default window for each segment kind.
type HalfBounds struct {
	First  Bounds
	Second Bounds
	Full   Bounds
}

// DefaultHalfBounds returns 0-45 for the first half, 45-90 for the second
// and 0-90 for a full match.
func DefaultHalfBounds() HalfBounds {
	return HalfBounds{
		First:  Bounds{Start: 0, End: 45},
		Second: Bounds{Start: 45, End: 90},
		Full:   Bounds{Start: 0, End: 90},
	}
}

// HalfBoundsFromConfig reads the configured defaults. The full-match window
// spans the first half start to the second half end.
func HalfBoundsFromConfig(cfg config.Analysis) HalfBounds {
	return HalfBounds{
		First:  Bounds{Start: cfg.FirstHalfStart, End: cfg.FirstHalfEnd},
		Second: Bounds{Start: cfg.SecondHalfStart, End: cfg.SecondHalfEnd},
		Full:   Bounds{Start: cfg.FirstHalfStart, End: cfg.SecondHalfEnd},
	}
}

// For returns the window for seg. Minutes stored on the segment override the
// defaults individually.
func (h HalfBounds) For(seg matchstore.Segment) Bounds {
	var b Bounds
	switch seg.Kind {
	case matchstore.KindSecondHalf:
		b = h.Second
	case matchstore.KindFull:
		b = h.Full
	default:
		b = h.First
	}
	if seg.StartMinute != nil {
		b.Start = *seg.StartMinute
	}
	if seg.EndMinute != nil {
		b.End = *seg.EndMinute
	}
	return b
}

// Input is everything needed to analyze one segment.
type Input struct {
	Match      matchstore.Match
	Segment    matchstore.Segment
	Transcript transcript.Transcript
}

// Result is one segment's contribution to the run totals.
type Result struct {
	EventsDetected int
	HomeScore      *int
	AwayScore      *int
}

// Analyzer sends transcripts to the analysis service.
type Analyzer struct {
	svc    Service
	files  SideFileWriter
	bounds HalfBounds
	logger *slog.Logger
}

// New constructs an analyzer. files may be nil to skip the transcript
// write-through.
func New(svc Service, files SideFileWriter, bounds HalfBounds, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		svc:    svc,
		files:  files,
		bounds: bounds,
		logger: logging.NewComponentLogger(logger, "analyzer"),
	}
}

// Analyze persists manual transcripts and requests analysis. A returned error
// is local to the segment.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (Result, error) {
	logger := logging.WithContext(ctx, a.logger)
	if a.svc == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "analyzing", "analyze match", "analysis service is not configured", nil)
	}
	text := strings.TrimSpace(in.Transcript.Text)
	if text == "" {
		return Result{}, services.Wrap(services.ErrValidation, "analyzing", "analyze match", "transcript is empty", nil)
	}

	label := in.Transcript.Label
	if label == "" {
		label = in.Segment.Kind.Label()
	}
	if in.Transcript.Manual() {
		a.persistTranscript(ctx, logger, in.Match.ID, text, label)
	}

	bounds := a.bounds.For(in.Segment)
	req := remote.AnalyzeRequest{
		MatchID:         in.Match.ID,
		Transcription:   text,
		HomeTeam:        in.Match.HomeTeam.DisplayName(),
		AwayTeam:        in.Match.AwayTeam.DisplayName(),
		GameStartMinute: bounds.Start,
		GameEndMinute:   bounds.End,
		HalfType:        label,
		MatchData:       syncfn.NewPayload(in.Match),
	}
	logger.Info("analysis started",
		logging.String("transcript_source", string(in.Transcript.Source)),
		logging.Int("game_start_minute", bounds.Start),
		logging.Int("game_end_minute", bounds.End),
		logging.Int("chars", len(text)),
	)
	started := time.Now()
	resp, err := a.svc.AnalyzeMatch(ctx, req)
	if err != nil {
		return Result{}, err
	}
	result := Result{
		EventsDetected: resp.Events(),
		HomeScore:      resp.HomeScore,
		AwayScore:      resp.AwayScore,
	}
	attrs := []logging.Attr{
		logging.Int("events", result.EventsDetected),
		logging.Duration("elapsed", time.Since(started)),
	}
	if result.HomeScore != nil && result.AwayScore != nil {
		attrs = append(attrs, logging.Int("home_score", *result.HomeScore), logging.Int("away_score", *result.AwayScore))
	}
	logger.Info("analysis completed", logging.Args(attrs...)...)
	return result, nil
}

func (a *Analyzer) persistTranscript(ctx context.Context, logger *slog.Logger, matchID, text, label string) {
	if a.files == nil {
		return
	}
	if err := a.files.WriteSideFile(ctx, matchID, text, label); err != nil {
		logging.WarnWithContext(logger, "manual transcript not saved; continuing", "transcript_persist_failed",
			logging.Error(err),
			logging.String("label", label),
			logging.String(logging.FieldErrorHint, "check store permissions and disk space"),
			logging.String(logging.FieldImpact, "future runs cannot reuse this transcript"),
		)
		return
	}
	logger.Debug("manual transcript saved", logging.String("label", label))
}

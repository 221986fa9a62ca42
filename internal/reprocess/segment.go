package reprocess

import (
	"context"
	"strings"

	"arena/internal/analyzer"
	"arena/internal/logging"
	"arena/internal/matchstore"
	"arena/internal/notifications"
	"arena/internal/progress"
	"arena/internal/services"
	"arena/internal/transcript"
)

const excerptRunes = 160

// processSegment handles one segment. It returns false when the run was
// aborted.
func (r *run) processSegment(index int, seg matchstore.Segment) bool {
	half := seg.Kind.Label()
	report := SegmentReport{Index: index, SegmentID: seg.ID, Half: half}

	r.transition(StateLoadingExisting, index, half, progress.SegmentPercent(index, progress.StepStart), "")
	existing := r.loadExisting()

	r.transition(StateResolving, index, half, progress.SegmentPercent(index, progress.StepStart), "")
	res := transcript.Resolve(seg, r.opts, existing)
	r.logResolution(index, half, res)

	var chosen transcript.Transcript
	switch res.Action {
	case transcript.ActionUse:
		chosen = res.Transcript
		if !transcript.Usable(chosen.Text, r.c.settings.MinChars) {
			report.Source = chosen.Source
			r.skipSegment(&report, "transcript is shorter than the minimum length")
			return true
		}
		proceed, aborted := r.confirmIntegrity(index, half, chosen)
		if aborted {
			return false
		}
		if !proceed {
			return true
		}
	case transcript.ActionTranscribe:
		r.transition(StateTranscribing, index, half, progress.SegmentPercent(index, progress.StepTranscribe), "")
		ctx := r.segmentContext(index, half, StateTranscribing)
		text, err := r.c.deps.Transcriber.Transcribe(ctx, r.out.MatchID, seg)
		if err != nil {
			return r.failSegment(&report, err)
		}
		chosen = text
		if !transcript.Usable(chosen.Text, r.c.settings.MinChars) {
			report.Source = chosen.Source
			r.skipSegment(&report, "transcription is shorter than the minimum length")
			return true
		}
	}
	report.Source = chosen.Source

	r.transition(StateAnalyzing, index, half, progress.SegmentPercent(index, progress.StepAnalyze), "")
	ctx := r.segmentContext(index, half, StateAnalyzing)
	result, err := r.c.deps.Analyzer.Analyze(ctx, analyzer.Input{
		Match:      r.match,
		Segment:    seg,
		Transcript: chosen,
	})
	if err != nil {
		return r.failSegment(&report, err)
	}

	r.out.TotalEvents += result.EventsDetected
	if result.HomeScore != nil {
		v := *result.HomeScore
		r.homeScore = &v
	}
	if result.AwayScore != nil {
		v := *result.AwayScore
		r.awayScore = &v
	}
	report.Status = SegmentAnalyzed
	report.Events = result.EventsDetected
	r.out.Segments = append(r.out.Segments, report)
	r.transition(StateAnalyzing, index, half, progress.SegmentPercent(index, progress.StepFinished), "segment analyzed")
	return true
}

// loadExisting reads stored transcripts. Read failures are treated as no
// stored transcripts.
func (r *run) loadExisting() map[string]string {
	files, err := r.c.deps.Store.ListSideFiles(r.ctx, r.out.MatchID, matchstore.TranscriptFolder)
	if err != nil {
		logging.WarnWithContext(r.logger, "stored transcripts unavailable", "transcripts_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the store database"),
			logging.String(logging.FieldImpact, "segment is transcribed instead of reusing stored text"),
		)
		return nil
	}
	return matchstore.TranscriptsByLabel(files)
}

func (r *run) logResolution(index int, half string, res transcript.Resolution) {
	result := res.Action.String()
	reason := "no usable transcript available"
	if res.Action == transcript.ActionUse {
		result = string(res.Transcript.Source)
		reason = "highest priority source with text"
	}
	logger := logging.WithContext(r.segmentContext(index, half, StateResolving), r.logger)
	logger.Info("transcript resolved", logging.Args(logging.DecisionAttrs("transcript_source", result, reason)...)...)
}

// confirmIntegrity applies the team-name heuristic. proceed is false when the
// segment should not be analyzed; aborted is true when the run was aborted.
func (r *run) confirmIntegrity(index int, half string, chosen transcript.Transcript) (proceed bool, aborted bool) {
	check := transcript.CheckIntegrity(chosen.Text, r.match.HomeTeam, r.match.AwayTeam)
	if !check.Suspicious {
		return true, false
	}

	r.transition(StateConfirming, index, half, progress.SegmentPercent(index, progress.StepStart), "transcript mentions neither team")
	logger := logging.WithContext(r.segmentContext(index, half, StateConfirming), r.logger)
	logging.WarnWithContext(logger, "transcript mentions neither team; confirmation required", "integrity_warning",
		logging.String("transcript_source", string(chosen.Source)),
		logging.Any("home_tokens", check.HomeTokens),
		logging.Any("away_tokens", check.AwayTokens),
		logging.String(logging.FieldErrorHint, "verify the transcript belongs to this match"),
		logging.String(logging.FieldImpact, "run aborts unless confirmed"),
	)
	r.notify(notifications.EventIntegrityWarning, notifications.Payload{"half": half})

	if err := r.ctx.Err(); err != nil {
		r.abort(services.Wrap(services.ErrCancelled, string(StateConfirming), "confirm transcript", "run cancelled", err))
		return false, true
	}
	if r.c.deps.Confirmer == nil {
		r.abort(services.Wrap(services.ErrCancelled, string(StateConfirming), "confirm transcript", "no confirmer available", errDeclined))
		return false, true
	}
	ok, err := r.c.deps.Confirmer.ConfirmIntegrity(r.ctx, Prompt{
		MatchID:  r.out.MatchID,
		Half:     half,
		HomeTeam: r.match.HomeTeam.DisplayName(),
		AwayTeam: r.match.AwayTeam.DisplayName(),
		Source:   chosen.Source,
		Excerpt:  excerpt(chosen.Text),
	})
	if err != nil {
		r.abort(services.Wrap(services.ErrCancelled, string(StateConfirming), "confirm transcript", "confirmation failed", err))
		return false, true
	}
	if !ok {
		r.abort(services.Wrap(services.ErrCancelled, string(StateConfirming), "confirm transcript", "operator declined", errDeclined))
		return false, true
	}
	logger.Info("suspicious transcript accepted", logging.Args(logging.DecisionAttrs("integrity", "accepted", "operator confirmed")...)...)
	return true, false
}

func (r *run) skipSegment(report *SegmentReport, reason string) {
	report.Status = SegmentSkipped
	report.Error = reason
	r.out.Segments = append(r.out.Segments, *report)
	r.segmentProblem(*report, "segment skipped", "segment_skipped")
}

// failSegment records a segment error. Fatal errors abort the run and return
// false.
func (r *run) failSegment(report *SegmentReport, err error) bool {
	if services.Classify(err) == services.SeverityFatal {
		r.abort(err)
		return false
	}
	details := services.Details(err)
	report.Status = SegmentFailed
	report.Error = details.Message
	r.out.Segments = append(r.out.Segments, *report)
	r.segmentProblem(*report, "segment failed", "segment_failed",
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorOperation, details.Operation),
	)
	return true
}

// segmentProblem logs and notifies a segment-local failure.
func (r *run) segmentProblem(report SegmentReport, msg, eventType string, attrs ...logging.Attr) {
	logger := r.logger
	if report.Index >= 0 {
		logger = logging.WithContext(r.segmentContext(report.Index, report.Half, r.state), r.logger)
	}
	attrs = append(attrs,
		logging.String("segment_id", report.SegmentID),
		logging.String("reason", report.Error),
		logging.String(logging.FieldErrorHint, "re-run after fixing the segment input"),
		logging.String(logging.FieldImpact, "segment contributes no events"),
	)
	logging.WarnWithContext(logger, msg, eventType, attrs...)
	r.notify(notifications.EventSegmentFailed, notifications.Payload{"half": report.Half, "error": report.Error})
}

func (r *run) segmentContext(index int, half string, state State) context.Context {
	ctx := services.WithSegmentIndex(r.ctx, index)
	ctx = services.WithHalf(ctx, half)
	return services.WithStage(ctx, string(state))
}

func excerpt(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= excerptRunes {
		return text
	}
	return string(runes[:excerptRunes]) + "..."
}

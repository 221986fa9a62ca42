package reprocess

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"arena/internal/logging"
	"arena/internal/matchstore"
	"arena/internal/notifications"
	"arena/internal/progress"
	"arena/internal/services"
	"arena/internal/transcript"
)

// run is the ephemeral state of one reprocess run.
type run struct {
	c        *Coordinator
	ctx      context.Context
	logger   *slog.Logger
	closeLog func() error
	opts     transcript.Options

	state    State
	match    matchstore.Match
	out      Outcome
	started  time.Time
	audited  bool
	auditErr bool

	homeScore *int
	awayScore *int
}

func (r *run) execute() {
	if !r.preflight() {
		return
	}
	if !r.sync() {
		return
	}
	segments, ok := r.fetchSegments()
	if !ok {
		return
	}
	r.notify(notifications.EventReprocessStarted, notifications.Payload{"segments": len(segments)})

	for i, seg := range segments {
		if !r.processSegment(i, seg) {
			return
		}
	}
	r.finalize()
}

// preflight refuses to start when the service reports no AI provider. A
// failed status check is logged and the run continues.
func (r *run) preflight() bool {
	if r.c.deps.AI == nil {
		return true
	}
	status, err := r.c.deps.AI.CheckAIStatus(r.ctx)
	if err != nil {
		if services.Classify(err) == services.SeverityFatal || errors.Is(err, services.ErrConfiguration) {
			r.abort(err)
			return false
		}
		logging.WarnWithContext(r.logger, "ai status unavailable; continuing", "ai_status_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the processing service /api/ai-status endpoint"),
			logging.String(logging.FieldImpact, "analysis may fail if no provider is configured"),
		)
		return true
	}
	if !status.Ready() {
		r.abort(services.WithHint(
			services.Wrap(services.ErrConfiguration, string(StateIdle), "check ai status", "no AI provider is configured", nil),
			"configure at least one provider on the processing service",
		))
		return false
	}
	r.logger.Info("ai providers available", logging.Any("providers", status.Providers()))
	return true
}

func (r *run) sync() bool {
	r.transition(StateSyncing, -1, "", progress.PercentSyncing, "")
	snapshot, err := r.c.deps.Store.GetMatch(r.ctx, r.out.MatchID)
	if err != nil {
		r.abort(services.Wrap(services.ErrExternalService, string(StateSyncing), "load match", "store read failed", err))
		return false
	}
	if snapshot == nil {
		r.abort(services.Wrap(services.ErrNotFound, string(StateSyncing), "load match", "match "+r.out.MatchID+" not found", nil))
		return false
	}
	r.match = *snapshot
	if r.c.deps.Guard == nil || !r.c.deps.Guard.EnsureSynced(r.ctx, r.out.MatchID, r.match) {
		r.abort(services.WithHint(
			services.Wrap(services.ErrExternalService, string(StateSyncing), "ensure match", "match could not be synced to the durable store", nil),
			"check processing service and sync function logs",
		))
		return false
	}
	return true
}

// fetchSegments returns the segments to process in order. Segments without a
// video file are reported and dropped.
func (r *run) fetchSegments() ([]matchstore.Segment, bool) {
	r.transition(StateFetchingVideos, -1, "", progress.PercentFetchStart, "")
	if r.c.deps.Videos != nil {
		if res, err := r.c.deps.Videos.SyncVideos(r.ctx, r.out.MatchID); err != nil {
			logging.WarnWithContext(r.logger, "video sync from storage failed; using known segments", "video_sync_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check storage bucket access on the processing service"),
				logging.String(logging.FieldImpact, "recently uploaded videos may be missing from this run"),
			)
		} else {
			r.logger.Debug("videos synced from storage", logging.Int("synced", res.Synced))
		}
	}

	all, err := r.c.deps.Store.GetVideoSegments(r.ctx, r.out.MatchID)
	if err != nil {
		r.abort(services.Wrap(services.ErrExternalService, string(StateFetchingVideos), "list segments", "store read failed", err))
		return nil, false
	}
	matchstore.SortSegments(all)

	segments := make([]matchstore.Segment, 0, len(all))
	for _, seg := range all {
		if seg.FileURL != "" {
			segments = append(segments, seg)
			continue
		}
		report := SegmentReport{Index: -1, SegmentID: seg.ID, Half: seg.Kind.Label(), Status: SegmentSkipped, Error: "segment has no video file"}
		r.out.Segments = append(r.out.Segments, report)
		r.segmentProblem(report, "segment dropped", "segment_dropped")
	}
	if len(segments) == 0 {
		r.abort(services.WithHint(
			services.Wrap(services.ErrNotFound, string(StateFetchingVideos), "list segments", "no video segments with a file", nil),
			"upload at least one video for this match",
		))
		return nil, false
	}
	r.transition(StateFetchingVideos, -1, "", progress.PercentFetchDone, "")
	r.logger.Info("segments ready", logging.Int("segments", len(segments)), logging.Int("dropped", len(all)-len(segments)))
	return segments, true
}

func (r *run) finalize() {
	r.transition(StateFinalizing, -1, "", progress.PercentFinalizing, "")
	home, away := 0, 0
	if r.homeScore != nil {
		home = *r.homeScore
	}
	if r.awayScore != nil {
		away = *r.awayScore
	}
	r.out.HomeScore, r.out.AwayScore = home, away

	status := matchstore.StatusCompleted
	if err := r.c.deps.Store.UpdateMatch(r.ctx, r.out.MatchID, matchstore.MatchUpdate{
		Status:    &status,
		HomeScore: &home,
		AwayScore: &away,
	}); err != nil {
		r.abort(services.Wrap(services.ErrExternalService, string(StateFinalizing), "update match", "final match update failed", err))
		return
	}

	if r.c.deps.Invalidator != nil {
		if err := r.c.deps.Invalidator.InvalidateMatch(r.ctx, r.out.MatchID); err != nil {
			logging.WarnWithContext(r.logger, "cache invalidation failed", "cache_invalidation_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "refresh match views manually"),
				logging.String(logging.FieldImpact, "readers may show stale events until refreshed"),
			)
		}
	}

	r.transition(StateDone, -1, "", progress.PercentDone, "")
	r.out.State = StateDone
	r.logger.Info("reprocess completed",
		logging.String(logging.FieldEventType, "reprocess_completed"),
		logging.Int("total_events", r.out.TotalEvents),
		logging.Int("home_score", home),
		logging.Int("away_score", away),
		logging.Duration("elapsed", r.c.now().Sub(r.started)),
	)
	r.notify(notifications.EventReprocessCompleted, notifications.Payload{
		"events":    r.out.TotalEvents,
		"homeScore": home,
		"awayScore": away,
	})
	r.finishAudit()
}

// abort ends the run without touching the match record.
func (r *run) abort(err error) {
	if r.out.State == StateAborted || r.out.State == StateDone {
		return
	}
	reason := abortReason(err)
	r.out.Err = err
	r.out.Reason = reason
	r.transition(StateAborted, -1, "", r.c.tracker.Current().Percent, reason)
	r.out.State = StateAborted

	details := services.Details(err)
	logging.ErrorWithContext(r.logger, "reprocess aborted", "reprocess_aborted",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorOperation, details.Operation),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.Alert("reprocess_aborted"),
	)
	r.notify(notifications.EventReprocessAborted, notifications.Payload{"reason": reason})
	r.finishAudit()
}

// transition moves to state, reports progress and records an audit event.
// segment is -1 outside the per-segment loop.
func (r *run) transition(state State, segment int, half string, percent int, message string) {
	r.state = state
	ctx := services.WithStage(r.ctx, string(state))
	if segment >= 0 {
		ctx = services.WithSegmentIndex(ctx, segment)
	}
	if half != "" {
		ctx = services.WithHalf(ctx, half)
	}
	update := r.c.tracker.Report(progress.StageLabel(string(state), half), percent)
	logging.WithContext(ctx, r.logger).Debug("state transition",
		logging.String(logging.FieldEventType, "state_transition"),
		logging.Int(logging.FieldProgressPercent, update.Percent),
	)
	r.appendAudit(matchstore.RunEvent{
		RunID:        r.out.RunID,
		State:        string(state),
		SegmentIndex: segment,
		Stage:        update.Stage,
		Percent:      update.Percent,
		Message:      message,
	})
}

func (r *run) notify(event notifications.Event, payload notifications.Payload) {
	if payload == nil {
		payload = notifications.Payload{}
	}
	payload["matchId"] = r.out.MatchID
	if name := r.match.HomeTeam.DisplayName(); name != "" {
		payload["homeTeam"] = name
	}
	if name := r.match.AwayTeam.DisplayName(); name != "" {
		payload["awayTeam"] = name
	}
	if err := r.c.deps.Notifier.Publish(r.ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			r.logger.Debug("run cancelled, could not send notification", logging.String("event", string(event)))
			return
		}
		r.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func (r *run) beginAudit() {
	audit := r.c.deps.Audit
	if audit == nil {
		return
	}
	if n, err := audit.MarkStaleRuns(r.ctx, r.out.MatchID); err == nil && n > 0 {
		r.logger.Info("closed interrupted runs", logging.Int("runs", int(n)))
	}
	if err := audit.CreateRun(r.ctx, matchstore.Run{
		ID:        r.out.RunID,
		MatchID:   r.out.MatchID,
		State:     string(StateIdle),
		LogPath:   r.out.LogPath,
		StartedAt: r.started,
	}); err != nil {
		r.auditFailed(err)
		return
	}
	r.audited = true
}

func (r *run) appendAudit(ev matchstore.RunEvent) {
	if !r.audited {
		return
	}
	if err := r.c.deps.Audit.AppendRunEvent(r.ctx, ev); err != nil {
		r.auditFailed(err)
	}
}

func (r *run) finishAudit() {
	if !r.audited {
		return
	}
	if err := r.c.deps.Audit.FinishRun(context.WithoutCancel(r.ctx), storeAuditRun(r.out, r.state, r.c.now())); err != nil {
		r.auditFailed(err)
	}
}

func (r *run) auditFailed(err error) {
	if r.auditErr {
		return
	}
	r.auditErr = true
	logging.WarnWithContext(r.logger, "run audit write failed", "run_audit_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the store database"),
		logging.String(logging.FieldImpact, "run history is incomplete for this run"),
	)
}

func (r *run) close() {
	if r.closeLog == nil {
		return
	}
	if err := r.closeLog(); err != nil {
		r.c.logger.Debug("run log close failed", logging.Error(err))
	}
}

package reprocess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"arena/internal/logging"
	"arena/internal/matchstore"
	"arena/internal/notifications"
	"arena/internal/progress"
	"arena/internal/services"
	"arena/internal/transcript"
)

// Deps are the collaborators of a Coordinator. Store, Guard, Transcriber and
// Analyzer are required; the rest may be nil.
type Deps struct {
	Store       Store
	Audit       AuditLog
	Guard       SyncGuard
	Videos      VideoSyncer
	AI          AIChecker
	Transcriber Transcriber
	Analyzer    Analyzer
	Confirmer   Confirmer
	Invalidator Invalidator
	Notifier    notifications.Service
	Progress    *progress.Tracker
	Metrics     *Metrics
	Logger      *slog.Logger
}

// Settings tune a Coordinator.
type Settings struct {
	// LockDir holds the cross-process run locks. Empty disables file locking.
	LockDir string
	// RunLogDir receives one JSON log per run. Empty disables run logs.
	RunLogDir        string
	LogRetentionDays int
	// MinChars is the shortest usable transcript.
	MinChars int
}

// Coordinator runs reprocess requests.
type Coordinator struct {
	deps     Deps
	settings Settings
	logger   *slog.Logger
	tracker  *progress.Tracker
	inflight *inflight
	metrics  *Metrics
	now      func() time.Time
}

// New constructs a coordinator.
func New(deps Deps, settings Settings) *Coordinator {
	logger := logging.NewComponentLogger(deps.Logger, "reprocess")
	tracker := deps.Progress
	if tracker == nil {
		tracker = progress.NewTracker(deps.Logger)
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	if settings.MinChars <= 0 {
		settings.MinChars = transcript.DefaultMinChars
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = defaultMetrics()
	}
	return &Coordinator{
		deps:     deps,
		settings: settings,
		logger:   logger,
		tracker:  tracker,
		inflight: newInflight(settings.LockDir, logger),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Progress exposes the tracker reporting this coordinator's runs.
func (c *Coordinator) Progress() *progress.Tracker {
	return c.tracker
}

// Run executes one reprocess run to completion. It never returns an error:
// the Outcome carries the terminal state and any failure.
func (c *Coordinator) Run(ctx context.Context, req Request) (out Outcome) {
	matchID := strings.TrimSpace(req.MatchID)
	out = Outcome{MatchID: matchID, State: StateIdle}
	if matchID == "" {
		out.State = StateAborted
		out.Err = services.Wrap(services.ErrValidation, string(StateIdle), "start run", "match id is empty", nil)
		out.Reason = "match id is empty"
		return out
	}

	release, err := c.inflight.acquire(matchID)
	if err != nil {
		out.State = StateAborted
		out.Err = err
		out.Reason = err.Error()
		logging.WarnWithContext(c.logger, "reprocess not started", "reprocess_busy",
			logging.String(logging.FieldMatchID, matchID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "wait for the active run to finish"),
			logging.String(logging.FieldImpact, "this request was ignored"),
		)
		c.metrics.recordRejected(ctx)
		return out
	}
	defer release()

	r := c.startRun(ctx, matchID, req.Options)
	defer r.close()
	defer func() {
		c.metrics.recordRun(context.WithoutCancel(ctx), out, c.now().Sub(r.started))
	}()

	defer func() {
		if rec := recover(); rec != nil {
			r.abort(services.Wrap(services.ErrTransient, string(r.state), "run", fmt.Sprintf("unexpected panic: %v", rec), nil))
			out = r.out
		}
	}()

	r.execute()
	return r.out
}

func (c *Coordinator) startRun(ctx context.Context, matchID string, opts transcript.Options) *run {
	runID := uuid.NewString()
	ctx = services.WithRunID(services.WithMatchID(ctx, matchID), runID)
	c.tracker.Reset()

	logger := c.logger
	closeLog := func() error { return nil }
	var logPath string
	if dir := strings.TrimSpace(c.settings.RunLogDir); dir != "" {
		logging.PruneRunLogs(c.logger, dir, c.settings.LogRetentionDays)
		runLogger, path, closer, err := logging.NewRunLogger(c.logger, dir, runID)
		if err != nil {
			logging.WarnWithContext(c.logger, "run log unavailable; using main log only", "run_log_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check log_dir permissions"),
				logging.String(logging.FieldImpact, "no per-run log file for this run"),
			)
		} else {
			logger, logPath, closeLog = runLogger, path, closer
		}
	}

	r := &run{
		c:        c,
		ctx:      ctx,
		logger:   logging.WithContext(ctx, logger),
		closeLog: closeLog,
		opts:     opts,
		state:    StateIdle,
		out: Outcome{
			RunID:   runID,
			MatchID: matchID,
			State:   StateIdle,
			LogPath: logPath,
		},
		started: c.now(),
	}
	r.beginAudit()
	return r
}

// abortReason turns an error into the short reason shown to operators.
func abortReason(err error) string {
	if err == nil {
		return "aborted"
	}
	if errors.Is(err, errDeclined) {
		return "transcript integrity check declined"
	}
	details := services.Details(err)
	if msg := strings.TrimSpace(details.Message); msg != "" {
		return msg
	}
	return err.Error()
}

var errDeclined = errors.New("integrity confirmation declined")

// storeAuditRun converts the outcome to an audit record.
func storeAuditRun(out Outcome, state State, finished time.Time) matchstore.Run {
	outcome := matchstore.OutcomeRunning
	switch state {
	case StateDone:
		outcome = matchstore.OutcomeCompleted
	case StateAborted:
		outcome = matchstore.OutcomeAborted
	}
	errMsg := ""
	if out.Err != nil {
		errMsg = out.Err.Error()
	}
	return matchstore.Run{
		ID:          out.RunID,
		MatchID:     out.MatchID,
		State:       string(state),
		Outcome:     outcome,
		TotalEvents: out.TotalEvents,
		HomeScore:   out.HomeScore,
		AwayScore:   out.AwayScore,
		Error:       errMsg,
		LogPath:     out.LogPath,
		FinishedAt:  &finished,
	}
}

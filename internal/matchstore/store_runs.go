package matchstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateRun records the start of a reprocess run.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" || run.MatchID == "" {
		return errors.New("run id and match id are required")
	}
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	outcome := run.Outcome
	if outcome == "" {
		outcome = OutcomeRunning
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO reprocess_runs (id, match_id, state, outcome, log_path, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.MatchID, run.State, string(outcome), nullableString(run.LogPath), formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// AppendRunEvent appends one entry to a run's event log. Sequence numbers are
// assigned by the store.
func (s *Store) AppendRunEvent(ctx context.Context, ev RunEvent) error {
	created := ev.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO reprocess_events (run_id, seq, state, segment_index, stage, percent, message, created_at)
         VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM reprocess_events WHERE run_id = ?), ?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.RunID, ev.State, ev.SegmentIndex, nullableString(ev.Stage), ev.Percent,
		nullableString(ev.Message), formatTime(created),
	)
	if err != nil {
		return fmt.Errorf("append run event: %w", err)
	}
	_, err = s.execWithRetry(ctx, `UPDATE reprocess_runs SET state = ? WHERE id = ?`, ev.State, ev.RunID)
	if err != nil {
		return fmt.Errorf("update run state: %w", err)
	}
	return nil
}

// FinishRun stores a run's terminal outcome and totals.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	_, err := s.execWithRetry(ctx,
		`UPDATE reprocess_runs
         SET state = ?, outcome = ?, total_events = ?, home_score = ?, away_score = ?,
             error_message = ?, finished_at = ?
         WHERE id = ?`,
		run.State, string(run.Outcome), run.TotalEvents, run.HomeScore, run.AwayScore,
		nullableString(run.Error), formatTime(finished), run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

const runColumns = "id, match_id, state, outcome, total_events, home_score, away_score, error_message, log_path, started_at, finished_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		r           Run
		outcome     string
		errMsg      sql.NullString
		logPath     sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(&r.ID, &r.MatchID, &r.State, &outcome, &r.TotalEvents, &r.HomeScore, &r.AwayScore,
		&errMsg, &logPath, &startedRaw, &finishedRaw); err != nil {
		return nil, err
	}
	r.Outcome = RunOutcome(outcome)
	r.Error = errMsg.String
	r.LogPath = logPath.String
	if started, err := parseTimeString(startedRaw); err == nil {
		r.StartedAt = started
	}
	if finished, err := parseTimeString(finishedRaw.String); err == nil {
		r.FinishedAt = &finished
	}
	return &r, nil
}

// GetRun fetches a run by id. A missing run returns (nil, nil).
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM reprocess_runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the runs for a match, newest first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, matchID string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM reprocess_runs WHERE match_id = ? ORDER BY started_at DESC, id`
	args := []any{matchID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// RunEvents returns a run's event log in order.
func (s *Store) RunEvents(ctx context.Context, runID string) ([]RunEvent, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT run_id, seq, state, segment_index, COALESCE(stage, ''), percent, COALESCE(message, ''), created_at
         FROM reprocess_events WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run events: %w", err)
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var (
			ev         RunEvent
			createdRaw string
		)
		if err := rows.Scan(&ev.RunID, &ev.Seq, &ev.State, &ev.SegmentIndex, &ev.Stage, &ev.Percent, &ev.Message, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			ev.CreatedAt = created
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkStaleRuns closes out runs left in the running outcome by a process that
// exited without finishing them. Returns the number of runs updated.
func (s *Store) MarkStaleRuns(ctx context.Context, matchID string) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE reprocess_runs SET outcome = ?, error_message = ?, finished_at = ?
         WHERE match_id = ? AND outcome = ?`,
		string(OutcomeAborted), "run interrupted before completion", formatTime(time.Now()),
		matchID, string(OutcomeRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("mark stale runs: %w", err)
	}
	return res.RowsAffected()
}

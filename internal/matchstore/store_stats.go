package matchstore

import (
	"context"
	"database/sql"
	"fmt"
)

// Stats counts matches by status, segments, side-files, and runs by outcome.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{
		Matches: make(map[Status]int),
		Runs:    make(map[RunOutcome]int),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM matches GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("count matches: %w", err)
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return stats, fmt.Errorf("scan match count: %w", err)
		}
		stats.Matches[Status(status)] = count
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT outcome, COUNT(1) FROM reprocess_runs GROUP BY outcome`)
	if err != nil {
		return stats, fmt.Errorf("count runs: %w", err)
	}
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			rows.Close()
			return stats, fmt.Errorf("scan run count: %w", err)
		}
		stats.Runs[RunOutcome(outcome)] = count
	}
	rows.Close()

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM video_segments`).Scan(&stats.Segments); err != nil {
		return stats, fmt.Errorf("count segments: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM side_files`).Scan(&stats.SideFiles); err != nil {
		return stats, fmt.Errorf("count side files: %w", err)
	}

	var last sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(started_at) FROM reprocess_runs`).Scan(&last); err != nil {
		return stats, fmt.Errorf("last run: %w", err)
	}
	if t, err := parseTimeString(last.String); err == nil {
		stats.LastRunStart = &t
	}
	return stats, nil
}

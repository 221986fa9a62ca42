package matchstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const matchColumns = "id, home_team_json, away_team_json, home_score, away_score, match_date, competition, venue, status, cache_version, created_at, updated_at"

func scanMatch(scanner interface{ Scan(dest ...any) error }) (*Match, error) {
	var (
		m           Match
		homeJSON    string
		awayJSON    string
		matchDate   sql.NullString
		competition sql.NullString
		venue       sql.NullString
		status      string
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&m.ID,
		&homeJSON,
		&awayJSON,
		&m.HomeScore,
		&m.AwayScore,
		&matchDate,
		&competition,
		&venue,
		&status,
		&m.CacheVersion,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(homeJSON), &m.HomeTeam); err != nil {
		return nil, fmt.Errorf("decode home team: %w", err)
	}
	if err := json.Unmarshal([]byte(awayJSON), &m.AwayTeam); err != nil {
		return nil, fmt.Errorf("decode away team: %w", err)
	}
	m.MatchDate = matchDate.String
	m.Competition = competition.String
	m.Venue = venue.String
	m.Status = Status(status)
	if created, err := parseTimeString(createdRaw); err == nil {
		m.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		m.UpdatedAt = updated
	}
	return &m, nil
}

// GetMatch fetches a match by identifier. A missing match returns (nil, nil).
func (s *Store) GetMatch(ctx context.Context, id string) (*Match, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

// ListMatches returns every match ordered by most recent update.
func (s *Store) ListMatches(ctx context.Context) ([]Match, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+matchColumns+` FROM matches ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// UpsertMatch inserts a match or replaces its descriptive fields. Repeated
// calls with the same payload leave exactly one record.
func (s *Store) UpsertMatch(ctx context.Context, m Match) error {
	id := strings.TrimSpace(m.ID)
	if id == "" {
		return errors.New("match id is required")
	}
	status := m.Status
	if status == "" {
		status = StatusPending
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	homeJSON, err := json.Marshal(m.HomeTeam)
	if err != nil {
		return fmt.Errorf("encode home team: %w", err)
	}
	awayJSON, err := json.Marshal(m.AwayTeam)
	if err != nil {
		return fmt.Errorf("encode away team: %w", err)
	}
	now := formatTime(time.Now())
	_, err = s.execWithRetry(ctx,
		`INSERT INTO matches (
            id, home_team_json, away_team_json, home_team_id, away_team_id,
            home_score, away_score, match_date, competition, venue, status,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            home_team_json = excluded.home_team_json,
            away_team_json = excluded.away_team_json,
            home_team_id = excluded.home_team_id,
            away_team_id = excluded.away_team_id,
            home_score = excluded.home_score,
            away_score = excluded.away_score,
            match_date = excluded.match_date,
            competition = excluded.competition,
            venue = excluded.venue,
            status = excluded.status,
            updated_at = excluded.updated_at`,
		id,
		string(homeJSON),
		string(awayJSON),
		nullableString(m.HomeTeam.ID),
		nullableString(m.AwayTeam.ID),
		m.HomeScore,
		m.AwayScore,
		nullableString(m.MatchDate),
		nullableString(m.Competition),
		nullableString(m.Venue),
		string(status),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	return nil
}

// UpdateMatch applies the non-nil fields of update to the match.
func (s *Store) UpdateMatch(ctx context.Context, id string, update MatchUpdate) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if update.Status != nil {
		if _, err := ParseStatus(string(*update.Status)); err != nil {
			return err
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.HomeScore != nil {
		sets = append(sets, "home_score = ?")
		args = append(args, *update.HomeScore)
	}
	if update.AwayScore != nil {
		sets = append(sets, "away_score = ?")
		args = append(args, *update.AwayScore)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now()), id)

	res, err := s.execWithRetry(ctx, `UPDATE matches SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update match %s: %w", id, ErrMatchNotFound)
	}
	return nil
}

// InvalidateMatch bumps the match cache version so readers holding derived
// views know to refresh.
func (s *Store) InvalidateMatch(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE matches SET cache_version = cache_version + 1, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("invalidate match: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("invalidate match %s: %w", id, ErrMatchNotFound)
	}
	return nil
}

// ErrMatchNotFound reports a write against a match id that does not exist.
var ErrMatchNotFound = errors.New("match not found")

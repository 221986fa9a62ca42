package matchstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// GetVideoSegments returns the match's segments ordered first half, full,
// second half. Rows with an unrecognised video type are skipped.
func (s *Store) GetVideoSegments(ctx context.Context, matchID string) ([]Segment, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, match_id, video_type, file_url, start_minute, end_minute, duration_seconds, created_at
         FROM video_segments WHERE match_id = ? ORDER BY created_at, id`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		var (
			seg        Segment
			videoType  string
			fileURL    sql.NullString
			start      sql.NullInt64
			end        sql.NullInt64
			duration   sql.NullInt64
			createdRaw string
		)
		if err := rows.Scan(&seg.ID, &seg.MatchID, &videoType, &fileURL, &start, &end, &duration, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		kind, err := ParseSegmentKind(videoType)
		if err != nil {
			continue
		}
		seg.Kind = kind
		seg.FileURL = fileURL.String
		seg.StartMinute = intPtr(start)
		seg.EndMinute = intPtr(end)
		seg.DurationSeconds = intPtr(duration)
		if created, err := parseTimeString(createdRaw); err == nil {
			seg.CreatedAt = created
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	SortSegments(segments)
	return segments, nil
}

// SortSegments orders segments by kind, keeping insertion order within a kind.
func SortSegments(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Kind < segments[j].Kind
	})
}

// UpsertSegment inserts or replaces a video segment.
func (s *Store) UpsertSegment(ctx context.Context, seg Segment) error {
	if strings.TrimSpace(seg.ID) == "" {
		return errors.New("segment id is required")
	}
	if !seg.Kind.Valid() {
		return fmt.Errorf("segment %s: invalid kind", seg.ID)
	}
	created := seg.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO video_segments (id, match_id, video_type, file_url, start_minute, end_minute, duration_seconds, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            video_type = excluded.video_type,
            file_url = excluded.file_url,
            start_minute = excluded.start_minute,
            end_minute = excluded.end_minute,
            duration_seconds = excluded.duration_seconds`,
		seg.ID,
		seg.MatchID,
		seg.Kind.String(),
		nullableString(seg.FileURL),
		nullableInt(seg.StartMinute),
		nullableInt(seg.EndMinute),
		nullableInt(seg.DurationSeconds),
		formatTime(created),
	)
	if err != nil {
		return fmt.Errorf("upsert segment: %w", err)
	}
	return nil
}

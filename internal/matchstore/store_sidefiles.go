package matchstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ListSideFiles returns the side-files stored under folder for a match.
func (s *Store) ListSideFiles(ctx context.Context, matchID, folder string) ([]SideFile, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT match_id, folder, name, COALESCE(label, ''), content, updated_at
         FROM side_files WHERE match_id = ? AND folder = ? ORDER BY name`,
		matchID, folder,
	)
	if err != nil {
		return nil, fmt.Errorf("list side files: %w", err)
	}
	defer rows.Close()

	var files []SideFile
	for rows.Next() {
		var (
			f          SideFile
			updatedRaw string
		)
		if err := rows.Scan(&f.MatchID, &f.Folder, &f.Name, &f.Label, &f.Content, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan side file: %w", err)
		}
		if updated, err := parseTimeString(updatedRaw); err == nil {
			f.UpdatedAt = updated
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// WriteSideFile stores text as the transcript side-file for label, replacing
// any previous transcript with the same label.
func (s *Store) WriteSideFile(ctx context.Context, matchID, text, label string) error {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return errors.New("side file label is required")
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO side_files (match_id, folder, name, label, content, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(match_id, folder, name) DO UPDATE SET
            label = excluded.label,
            content = excluded.content,
            updated_at = excluded.updated_at`,
		matchID,
		TranscriptFolder,
		TranscriptName(label),
		label,
		text,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("write side file: %w", err)
	}
	return nil
}

// TranscriptName returns the side-file name used for a half label.
func TranscriptName(label string) string {
	return "transcript-" + label + ".txt"
}

// TranscriptsByLabel indexes transcript side-files by their half label. Files
// without a label fall back to the label embedded in the name.
func TranscriptsByLabel(files []SideFile) map[string]string {
	out := make(map[string]string, len(files))
	for _, f := range files {
		label := strings.TrimSpace(f.Label)
		if label == "" {
			name := strings.TrimSuffix(f.Name, ".txt")
			label = strings.TrimPrefix(name, "transcript-")
		}
		if label == "" || strings.TrimSpace(f.Content) == "" {
			continue
		}
		out[strings.ToLower(label)] = f.Content
	}
	return out
}

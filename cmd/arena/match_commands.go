package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"arena/internal/config"
	"arena/internal/matchstore"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	matchCmd := &cobra.Command{
		Use:   "match",
		Short: "Inspect and import match records",
	}
	matchCmd.AddCommand(newMatchShowCommand(ctx))
	matchCmd.AddCommand(newMatchListCommand(ctx))
	matchCmd.AddCommand(newMatchImportCommand(ctx))
	return matchCmd
}

func newMatchShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <match-id>",
		Short: "Show a match with its segments and stored transcripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *matchstore.Store) error {
				id := strings.TrimSpace(args[0])
				match, err := store.GetMatch(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("load match: %w", err)
				}
				if match == nil {
					return fmt.Errorf("match %s not found", id)
				}
				segments, err := store.GetVideoSegments(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("load segments: %w", err)
				}
				files, err := store.ListSideFiles(cmd.Context(), id, matchstore.TranscriptFolder)
				if err != nil {
					return fmt.Errorf("load transcripts: %w", err)
				}

				if jsonOut {
					return writeJSON(cmd, newMatchDocument(*match, segments, files))
				}
				printMatch(cmd.OutOrStdout(), *match, segments, files)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the match as JSON")
	return cmd
}

func newMatchListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *matchstore.Store) error {
				matches, err := store.ListMatches(cmd.Context())
				if err != nil {
					return fmt.Errorf("list matches: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(matches) == 0 {
					fmt.Fprintln(out, "No matches stored")
					return nil
				}
				rows := make([][]string, 0, len(matches))
				for _, m := range matches {
					rows = append(rows, []string{
						m.ID,
						m.MatchDate,
						m.HomeTeam.DisplayName(),
						m.AwayTeam.DisplayName(),
						fmt.Sprintf("%d-%d", m.HomeScore, m.AwayScore),
						string(m.Status),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Date", "Home", "Away", "Score", "Status"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newMatchImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a match, its video segments, and transcripts from JSON or YAML",
		Long: `Import a match document into the local store. Existing records with the same
ids are replaced. Files ending in .yaml or .yml are read as YAML, anything else
as JSON. The document has the shape printed by 'arena match show --json':

  {
    "match": {"id": "...", "home_team": {...}, "away_team": {...}, "status": "pending"},
    "segments": [{"id": "...", "video_type": "first_half", "file_url": "https://..."}],
    "transcripts": {"first": "..."}
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readMatchDocument(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *matchstore.Store) error {
				segments, transcripts, err := importMatchDocument(cmd, store, doc)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported match %s (%d segments, %d transcripts)\n",
					doc.Match.ID, segments, transcripts)
				return nil
			})
		},
	}
}

type segmentDocument struct {
	ID              string `json:"id" yaml:"id"`
	VideoType       string `json:"video_type" yaml:"video_type"`
	FileURL         string `json:"file_url" yaml:"file_url"`
	StartMinute     *int   `json:"start_minute,omitempty" yaml:"start_minute,omitempty"`
	EndMinute       *int   `json:"end_minute,omitempty" yaml:"end_minute,omitempty"`
	DurationSeconds *int   `json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty"`
}

type matchDocument struct {
	Match       matchstore.Match  `json:"match" yaml:"match"`
	Segments    []segmentDocument `json:"segments" yaml:"segments"`
	Transcripts map[string]string `json:"transcripts,omitempty" yaml:"transcripts,omitempty"`
}

func newMatchDocument(match matchstore.Match, segments []matchstore.Segment, files []matchstore.SideFile) matchDocument {
	doc := matchDocument{
		Match:       match,
		Segments:    make([]segmentDocument, 0, len(segments)),
		Transcripts: matchstore.TranscriptsByLabel(files),
	}
	for _, seg := range segments {
		doc.Segments = append(doc.Segments, segmentDocument{
			ID:              seg.ID,
			VideoType:       seg.Kind.String(),
			FileURL:         seg.FileURL,
			StartMinute:     seg.StartMinute,
			EndMinute:       seg.EndMinute,
			DurationSeconds: seg.DurationSeconds,
		})
	}
	return doc
}

func readMatchDocument(path string) (matchDocument, error) {
	var doc matchDocument
	expanded, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return doc, fmt.Errorf("resolve import path: %w", err)
	}
	file, err := os.Open(expanded)
	if err != nil {
		return doc, fmt.Errorf("open import file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(expanded)) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(file).Decode(&doc)
	default:
		err = json.NewDecoder(file).Decode(&doc)
	}
	if err != nil {
		return doc, fmt.Errorf("parse import file: %w", err)
	}
	doc.Match.ID = strings.TrimSpace(doc.Match.ID)
	if doc.Match.ID == "" {
		return doc, fmt.Errorf("import file %s: match.id is required", path)
	}
	return doc, nil
}

func importMatchDocument(cmd *cobra.Command, store *matchstore.Store, doc matchDocument) (int, int, error) {
	ctx := cmd.Context()
	if err := store.UpsertMatch(ctx, doc.Match); err != nil {
		return 0, 0, fmt.Errorf("import match: %w", err)
	}
	for i, seg := range doc.Segments {
		kind, err := matchstore.ParseSegmentKind(seg.VideoType)
		if err != nil {
			return 0, 0, fmt.Errorf("segment %d: %w", i+1, err)
		}
		id := strings.TrimSpace(seg.ID)
		if id == "" {
			id = fmt.Sprintf("%s-%s-%d", doc.Match.ID, kind, i+1)
		}
		if err := store.UpsertSegment(ctx, matchstore.Segment{
			ID:              id,
			MatchID:         doc.Match.ID,
			Kind:            kind,
			FileURL:         strings.TrimSpace(seg.FileURL),
			StartMinute:     seg.StartMinute,
			EndMinute:       seg.EndMinute,
			DurationSeconds: seg.DurationSeconds,
		}); err != nil {
			return 0, 0, fmt.Errorf("import segment %s: %w", id, err)
		}
	}
	labels := make([]string, 0, len(doc.Transcripts))
	for label := range doc.Transcripts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if err := store.WriteSideFile(ctx, doc.Match.ID, doc.Transcripts[label], label); err != nil {
			return 0, 0, fmt.Errorf("import %s transcript: %w", label, err)
		}
	}
	return len(doc.Segments), len(labels), nil
}

func printMatch(out io.Writer, match matchstore.Match, segments []matchstore.Segment, files []matchstore.SideFile) {
	fmt.Fprintf(out, "Match %s\n", match.ID)
	fmt.Fprintf(out, "  %s vs %s\n", match.HomeTeam.DisplayName(), match.AwayTeam.DisplayName())
	fmt.Fprintf(out, "  Score:       %d-%d\n", match.HomeScore, match.AwayScore)
	fmt.Fprintf(out, "  Status:      %s\n", match.Status)
	if match.MatchDate != "" {
		fmt.Fprintf(out, "  Date:        %s\n", match.MatchDate)
	}
	if match.Competition != "" {
		fmt.Fprintf(out, "  Competition: %s\n", match.Competition)
	}
	if match.Venue != "" {
		fmt.Fprintf(out, "  Venue:       %s\n", match.Venue)
	}
	fmt.Fprintf(out, "  Cache:       v%d\n", match.CacheVersion)

	fmt.Fprintln(out)
	if len(segments) == 0 {
		fmt.Fprintln(out, "No video segments")
	} else {
		rows := make([][]string, 0, len(segments))
		for _, seg := range segments {
			rows = append(rows, []string{
				seg.Kind.String(),
				minutes(seg.StartMinute, seg.EndMinute),
				yesNo(strings.TrimSpace(seg.FileURL) != ""),
				seg.ID,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Segment", "Minutes", "Video", "ID"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
		))
	}

	fmt.Fprintln(out)
	if len(files) == 0 {
		fmt.Fprintln(out, "No stored transcripts")
		return
	}
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{
			f.Label,
			f.Name,
			strconv.Itoa(len([]rune(f.Content))),
			f.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Transcript", "File", "Chars", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func minutes(start, end *int) string {
	if start == nil && end == nil {
		return "default"
	}
	format := func(v *int) string {
		if v == nil {
			return "?"
		}
		return strconv.Itoa(*v)
	}
	return format(start) + "-" + format(end)
}

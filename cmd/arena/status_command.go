package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"arena/internal/config"
	"arena/internal/matchstore"
	"arena/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check service readiness and summarize the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *matchstore.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				results := preflight.RunAll(cmd.Context(), cfg)
				for _, line := range renderSectionHeader("Readiness", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, line := range preflightLines(results, colorize) {
					fmt.Fprintln(out, line)
				}

				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return fmt.Errorf("store stats: %w", err)
				}
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Store", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, line := range storeLines(cfg, stats, colorize) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}

func storeLines(cfg *config.Config, stats matchstore.Stats, colorize bool) []string {
	lines := []string{
		renderStatusLine("Database", statusInfo, cfg.StorePath(), colorize),
		renderStatusLine("Matches", statusInfo, countSummary(stats.Matches), colorize),
		renderStatusLine("Video segments", statusInfo, fmt.Sprintf("%d", stats.Segments), colorize),
		renderStatusLine("Transcripts", statusInfo, fmt.Sprintf("%d", stats.SideFiles), colorize),
	}

	runKind := statusInfo
	if stats.Runs[matchstore.OutcomeRunning] > 0 {
		runKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Runs", runKind, countSummary(stats.Runs), colorize))
	if stats.LastRunStart != nil {
		lines = append(lines, renderStatusLine("Last run", statusInfo, stats.LastRunStart.Local().Format("2006-01-02 15:04:05"), colorize))
	}
	return lines
}

// countSummary renders "total (key n, key n)" with keys sorted.
func countSummary[K ~string](counts map[K]int) string {
	total := 0
	keys := make([]string, 0, len(counts))
	for k, n := range counts {
		total += n
		keys = append(keys, string(k))
	}
	if total == 0 {
		return "0"
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[K(k)]))
	}
	return fmt.Sprintf("%d (%s)", total, strings.Join(parts, ", "))
}

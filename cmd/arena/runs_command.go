package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"arena/internal/config"
	"arena/internal/matchstore"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect reprocess run history",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list <match-id>",
		Short: "List reprocess runs for a match, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *matchstore.Store) error {
				matchID := strings.TrimSpace(args[0])
				runs, err := store.ListRuns(cmd.Context(), matchID, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintf(out, "No runs recorded for match %s\n", matchID)
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, r := range runs {
					rows = append(rows, []string{
						r.ID,
						r.StartedAt.Local().Format("2006-01-02 15:04:05"),
						runDuration(r),
						string(r.Outcome),
						r.State,
						strconv.Itoa(r.TotalEvents),
						fmt.Sprintf("%d-%d", r.HomeScore, r.AwayScore),
						truncate(r.Error, 60),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Started", "Took", "Outcome", "State", "Events", "Score", "Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run and its state transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *matchstore.Store) error {
				runID := strings.TrimSpace(args[0])
				run, err := store.GetRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", runID)
				}
				events, err := store.RunEvents(cmd.Context(), runID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s\n", run.ID)
				fmt.Fprintf(out, "  Match:   %s\n", run.MatchID)
				fmt.Fprintf(out, "  Outcome: %s (%s)\n", run.Outcome, run.State)
				fmt.Fprintf(out, "  Events:  %d\n", run.TotalEvents)
				fmt.Fprintf(out, "  Score:   %d-%d\n", run.HomeScore, run.AwayScore)
				fmt.Fprintf(out, "  Took:    %s\n", runDuration(*run))
				if run.Error != "" {
					fmt.Fprintf(out, "  Error:   %s\n", run.Error)
				}
				if run.LogPath != "" {
					fmt.Fprintf(out, "  Log:     %s\n", run.LogPath)
				}
				if len(events) == 0 {
					return nil
				}

				fmt.Fprintln(out)
				rows := make([][]string, 0, len(events))
				for _, ev := range events {
					segment := "-"
					if ev.SegmentIndex >= 0 {
						segment = strconv.Itoa(ev.SegmentIndex + 1)
					}
					rows = append(rows, []string{
						strconv.FormatInt(ev.Seq, 10),
						ev.CreatedAt.Local().Format("15:04:05"),
						ev.State,
						segment,
						strconv.Itoa(ev.Percent) + "%",
						ev.Message,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Time", "State", "Segment", "Progress", "Message"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func runDuration(r matchstore.Run) string {
	if r.FinishedAt == nil {
		return "running"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"arena/internal/analyzer"
	"arena/internal/config"
	"arena/internal/confirm"
	"arena/internal/matchstore"
	"arena/internal/notifications"
	"arena/internal/progress"
	"arena/internal/reprocess"
	"arena/internal/services/syncfn"
	"arena/internal/syncguard"
	"arena/internal/transcript"
)

type halfFlags struct {
	text     string
	textFile string
	reuse    bool
	force    bool
}

type reprocessFlags struct {
	first      halfFlags
	second     halfFlags
	full       halfFlags
	manual     string
	manualFile string
	yes        bool
	jsonOut    bool
	quiet      bool
}

func newReprocessCommand(ctx *commandContext) *cobra.Command {
	var flags reprocessFlags

	cmd := &cobra.Command{
		Use:   "reprocess <match-id>",
		Short: "Re-run transcription and analysis for a match",
		Long: `Reprocess a match end to end: confirm the match exists in the durable store,
fetch its video segments, pick a transcript for each segment, analyze it, and
write the aggregated score back to the match.

Transcript selection per half, highest priority first:
  --<half>-text / --<half>-text-file   text for that half only
  --manual-text / --manual-text-file   text for the whole match
  --reuse-<half>                       a transcript stored by an earlier run
  (otherwise)                          speech-to-text on the segment video

--force-<half> skips reuse of stored transcripts but never overrides text
supplied on the command line.

Examples:
  arena reprocess 9f1c                          # transcribe everything
  arena reprocess 9f1c --reuse-first --reuse-second
  arena reprocess 9f1c --second-text-file second.txt --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *matchstore.Store) error {
				logger, err := ctx.logger(cfg)
				if err != nil {
					return err
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				var sinks []progress.Sink
				if !flags.quiet {
					sinks = append(sinks, progress.WriterSink(cmd.ErrOrStderr()))
				}
				confirmer := selectConfirmer(cmd, flags.yes)
				coordinator := buildCoordinator(cfg, store, logger, confirmer, sinks...)

				outcome := coordinator.Run(runCtx, reprocess.Request{
					MatchID: strings.TrimSpace(args[0]),
					Options: opts,
				})

				if flags.jsonOut {
					if err := writeJSON(cmd, newOutcomeView(outcome)); err != nil {
						return err
					}
				} else {
					printOutcome(cmd.OutOrStdout(), outcome)
				}
				if !outcome.Completed() {
					return fmt.Errorf("reprocess %s aborted: %s", outcome.MatchID, outcome.Reason)
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	for _, half := range []struct {
		name  string
		flags *halfFlags
	}{
		{"first", &flags.first},
		{"second", &flags.second},
		{"full", &flags.full},
	} {
		f.StringVar(&half.flags.text, half.name+"-text", "", "Transcript text for the "+half.name+" segment")
		f.StringVar(&half.flags.textFile, half.name+"-text-file", "", "Read the "+half.name+" segment transcript from a file")
		f.BoolVar(&half.flags.reuse, "reuse-"+half.name, false, "Reuse the stored "+half.name+" transcript when present")
		f.BoolVar(&half.flags.force, "force-"+half.name, false, "Always transcribe the "+half.name+" segment instead of reusing stored text")
	}
	f.StringVar(&flags.manual, "manual-text", "", "Transcript text applied to every segment without half-specific text")
	f.StringVar(&flags.manualFile, "manual-text-file", "", "Read the whole-match transcript from a file")
	f.BoolVarP(&flags.yes, "yes", "y", false, "Continue without prompting when a transcript fails the team-name check")
	f.BoolVar(&flags.jsonOut, "json", false, "Print the run outcome as JSON")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "Do not print progress lines")
	cmd.MarkFlagsMutuallyExclusive("first-text", "first-text-file")
	cmd.MarkFlagsMutuallyExclusive("second-text", "second-text-file")
	cmd.MarkFlagsMutuallyExclusive("full-text", "full-text-file")
	cmd.MarkFlagsMutuallyExclusive("manual-text", "manual-text-file")

	return cmd
}

func (f reprocessFlags) options() (transcript.Options, error) {
	var opts transcript.Options
	var err error
	if opts.First, err = f.first.options("first"); err != nil {
		return opts, err
	}
	if opts.Second, err = f.second.options("second"); err != nil {
		return opts, err
	}
	if opts.Full, err = f.full.options("full"); err != nil {
		return opts, err
	}
	if opts.ManualFullText, err = readText(f.manual, f.manualFile, "manual"); err != nil {
		return opts, err
	}
	return opts, nil
}

func (h halfFlags) options(name string) (transcript.HalfOptions, error) {
	text, err := readText(h.text, h.textFile, name)
	if err != nil {
		return transcript.HalfOptions{}, err
	}
	return transcript.HalfOptions{
		UseExisting:     h.reuse,
		ManualText:      text,
		ForceTranscribe: h.force,
	}, nil
}

func readText(inline, path, name string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return inline, nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s transcript path: %w", name, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", fmt.Errorf("read %s transcript: %w", name, err)
	}
	return string(data), nil
}

// buildCoordinator wires the coordinator against the configured services.
// The processing service holds the durable match record: it is the primary
// sync path, the reader used to confirm the match, and the target of the
// final status and score write. The local store holds segments, transcripts,
// the run audit log and a mirror of the match.
func buildCoordinator(cfg *config.Config, store *matchstore.Store, logger *slog.Logger, confirmer reprocess.Confirmer, sinks ...progress.Sink) *reprocess.Coordinator {
	client := newRemoteClient(cfg)
	fallback := syncfn.NewClient(cfg.Sync.FunctionURL, cfg.Sync.ServiceKey, time.Duration(cfg.Sync.TimeoutSeconds)*time.Second)
	policy := cfg.Confirm()
	guard := syncguard.New(client, fallback, client, confirm.Policy{
		Attempts:  policy.Attempts,
		BaseDelay: policy.BaseDelay,
		MaxDelay:  policy.MaxDelay,
	}, logger)
	hosted := hostedStore{Store: store, remote: client, logger: logger}

	return reprocess.New(reprocess.Deps{
		Store:       hosted,
		Audit:       store,
		Guard:       guard,
		Videos:      client,
		AI:          client,
		Transcriber: transcript.NewTranscriber(client, cfg.Transcription.Language, logger),
		Analyzer:    analyzer.New(client, store, analyzer.HalfBoundsFromConfig(cfg.Analysis), logger),
		Confirmer:   confirmer,
		Invalidator: hosted,
		Notifier:    notifications.NewService(cfg),
		Progress:    progress.NewTracker(logger, sinks...),
		Logger:      logger,
	}, reprocess.Settings{
		LockDir:          cfg.Paths.LockDir,
		RunLogDir:        cfg.RunLogDir(),
		LogRetentionDays: cfg.Logging.RetentionDays,
		MinChars:         cfg.Transcription.MinChars,
	})
}

// selectConfirmer returns an auto-accepting confirmer for --yes, a prompt
// when stdin is a terminal, and nil otherwise, which declines.
func selectConfirmer(cmd *cobra.Command, yes bool) reprocess.Confirmer {
	if yes {
		return reprocess.ConfirmerFunc(func(context.Context, reprocess.Prompt) (bool, error) {
			return true, nil
		})
	}
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminal(in) {
		return nil
	}
	return newPromptConfirmer(in, cmd.ErrOrStderr())
}

func printOutcome(out io.Writer, outcome reprocess.Outcome) {
	if len(outcome.Segments) > 0 {
		rows := make([][]string, 0, len(outcome.Segments))
		for _, seg := range outcome.Segments {
			index := "-"
			if seg.Index >= 0 {
				index = strconv.Itoa(seg.Index + 1)
			}
			rows = append(rows, []string{
				index,
				seg.Half,
				string(seg.Source),
				string(seg.Status),
				strconv.Itoa(seg.Events),
				seg.Error,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Half", "Source", "Status", "Events", "Note"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			"", "", "", "Total", strconv.Itoa(outcome.TotalEvents), "",
		))
	}

	switch {
	case outcome.Completed():
		fmt.Fprintf(out, "Match %s reprocessed: %d events, final score %d-%d\n",
			outcome.MatchID, outcome.TotalEvents, outcome.HomeScore, outcome.AwayScore)
	default:
		fmt.Fprintf(out, "Match %s aborted: %s\n", outcome.MatchID, outcome.Reason)
	}
	if outcome.RunID != "" {
		fmt.Fprintf(out, "Run: %s\n", outcome.RunID)
	}
	if outcome.LogPath != "" {
		fmt.Fprintf(out, "Log: %s\n", outcome.LogPath)
	}
}

type segmentView struct {
	Index     int    `json:"index"`
	SegmentID string `json:"segmentId,omitempty"`
	Half      string `json:"half"`
	Source    string `json:"source,omitempty"`
	Status    string `json:"status"`
	Events    int    `json:"events"`
	Error     string `json:"error,omitempty"`
}

type outcomeView struct {
	RunID       string        `json:"runId,omitempty"`
	MatchID     string        `json:"matchId"`
	State       string        `json:"state"`
	Completed   bool          `json:"completed"`
	TotalEvents int           `json:"totalEvents"`
	HomeScore   int           `json:"homeScore"`
	AwayScore   int           `json:"awayScore"`
	Reason      string        `json:"reason,omitempty"`
	LogPath     string        `json:"logPath,omitempty"`
	Segments    []segmentView `json:"segments"`
}

func newOutcomeView(outcome reprocess.Outcome) outcomeView {
	view := outcomeView{
		RunID:       outcome.RunID,
		MatchID:     outcome.MatchID,
		State:       string(outcome.State),
		Completed:   outcome.Completed(),
		TotalEvents: outcome.TotalEvents,
		HomeScore:   outcome.HomeScore,
		AwayScore:   outcome.AwayScore,
		Reason:      outcome.Reason,
		LogPath:     outcome.LogPath,
		Segments:    make([]segmentView, 0, len(outcome.Segments)),
	}
	for _, seg := range outcome.Segments {
		view.Segments = append(view.Segments, segmentView{
			Index:     seg.Index,
			SegmentID: seg.SegmentID,
			Half:      seg.Half,
			Source:    string(seg.Source),
			Status:    string(seg.Status),
			Events:    seg.Events,
			Error:     seg.Error,
		})
	}
	return view
}

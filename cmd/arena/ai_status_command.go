package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAIStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "ai-status",
		Short: "Show which AI providers the processing service can use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			status, err := newRemoteClient(cfg).CheckAIStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("check ai status: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, p := range []struct {
				name       string
				configured bool
			}{
				{"Lovable", status.Lovable},
				{"Gemini", status.Gemini},
				{"OpenAI", status.OpenAI},
				{"Ollama", status.Ollama},
			} {
				kind := statusWarn
				if p.configured {
					kind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine(p.name, kind, yesNo(p.configured), colorize))
			}
			if !status.Ready() {
				return fmt.Errorf("no AI provider configured on %s; analysis cannot run", cfg.Server.URL)
			}
			fmt.Fprintf(out, "Ready: %s\n", strings.Join(status.Providers(), ", "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the provider status as JSON")
	return cmd
}

package cli

import (
	"fmt"
	"os"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/di"
	"github.com/spf13/cobra"
)

func newFetchCmd(flags *di.CLIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Stage new mail as PDFs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			return invoke(flags, func(fetch *core.FetchService) error {
				result, err := fetch.FetchNew(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newSubmitCmd(flags *di.CLIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Submit staged folders to the workflow engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			return invoke(flags, func(submit *core.SubmitService, ledger core.SubmissionLedger) error {
				defer stopLedger(ledger)
				results, err := submit.ProcessStaged(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), results)
			})
		},
	}
}

func newRunCmd(flags *di.CLIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch new mail, then submit what this run staged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			return invoke(flags, func(pipeline *core.PipelineService, ledger core.SubmissionLedger) error {
				defer stopLedger(ledger)
				result, err := pipeline.Run(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newHistoryCmd(flags *di.CLIFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent submission attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return invoke(flags, func(submit *core.SubmitService, ledger core.SubmissionLedger) error {
				defer stopLedger(ledger)
				records, err := submit.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")
	return cmd
}

func newRenderCmd(flags *di.CLIFlags) *cobra.Command {
	var attachments []string
	cmd := &cobra.Command{
		Use:   "render <eml> <pdf>",
		Short: "Render a raw message file to PDF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			return invoke(flags, func(renderer core.Renderer) error {
				if err := renderer.Render(raw, attachments, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s\n", args[1])
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&attachments, "attachment", nil, "Attachment name to list (repeatable)")
	return cmd
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/di"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand builds the xarl-mailctl command tree
func NewRootCommand() *cobra.Command {
	flags := &di.CLIFlags{}

	root := &cobra.Command{
		Use:   "xarl-mailctl",
		Short: "Operate the mail workflow agent from the command line",
		Long: `xarl-mailctl runs the stages of the mail workflow agent once and prints
the result as JSON.

Examples:
  xarl-mailctl fetch                 # stage new mail as PDFs
  xarl-mailctl submit                # submit folders staged from now on
  xarl-mailctl run                   # fetch, then submit what was staged
  xarl-mailctl history --limit 5     # recent submission attempts
  xarl-mailctl render in.eml out.pdf # render one message locally`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "Path to config file")
	root.PersistentFlags().BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")

	root.AddCommand(
		newFetchCmd(flags),
		newSubmitCmd(flags),
		newRunCmd(flags),
		newHistoryCmd(flags),
		newRenderCmd(flags),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// invoke builds the CLI container and calls fn with its dependencies
// injected, stopping background resources afterwards
func invoke(flags *di.CLIFlags, fn interface{}) error {
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}
	defer func() {
		_ = container.Invoke(func(logger *zap.Logger) {
			_ = logger.Sync()
		})
	}()
	return container.Invoke(fn)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func stopLedger(ledger core.SubmissionLedger) {
	if stopper, ok := ledger.(interface{ Stop() }); ok {
		stopper.Stop()
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

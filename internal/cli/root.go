package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/treetop/internal/util"
)

// Global flags
var (
	cfgFile  string
	logFile  string
	colorArg string
)

// rootCmd runs the live table view.
var rootCmd = &cobra.Command{
	Use:   "treetop",
	Short: "Live view of the metrics a treetop model ranks as important",
	Long: `treetop shows what a treetop inference server has learned: which metrics
explain the target, which local explanations apply right now, and which
changes would push the target up or down.

Metrics are read from pmproxy, a recorded archive, or pminfo run locally
or over SSH. Tables refresh in place; rows for instances that disappear
are dropped.

Keyboard shortcuts:
  q / Ctrl+C     Quit
  r              Refresh now
  tab/shift+tab  Next/previous screen
  s              Sort by the next column
  I              Invert sort direction
  p              Pause refreshing
  up/k down/j    Move selection
  ?              Show help

Examples:
  treetop
  treetop --host http://pcp.lab:44322
  treetop --archive recording.yaml --once
  treetop --ssh gpu-box --screen Processes`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(logFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogging()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return topCommand(cmd.Context(), &topFlagValues, cmd.Flags().Changed)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .treetop.yaml, searched upward)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write log output to this file (default: discard)")
	rootCmd.PersistentFlags().StringVar(&colorArg, "color", "", "color output: auto, always or never")

	addTopFlags(rootCmd, &topFlagValues)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	if MachineMode() {
		_ = WriteJSONFromError(os.Stdout, err)
		os.Exit(1)
	}

	fmt.Fprint(os.Stderr, err.Error())
	if !strings.HasSuffix(err.Error(), "\n") {
		fmt.Fprintln(os.Stderr)
	}
	if isUnknownCommandError(err) {
		if name := extractUnknownCommand(err); name != "" {
			if similar := util.SuggestSimilar(name, commandNames(), 1); len(similar) > 0 {
				fmt.Fprintf(os.Stderr, "\nDid you mean 'treetop %s'?\n", similar[0])
			}
		}
		fmt.Fprintln(os.Stderr, "Run 'treetop --help' for usage.")
	}
	os.Exit(1)
}

// isUnknownCommandError reports whether err came from cobra rejecting the
// command line itself.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand pulls the command name out of cobra's
// `unknown command "foo" for "treetop"` message.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

func commandNames() []string {
	var names []string
	for _, c := range rootCmd.Commands() {
		if !c.Hidden {
			names = append(names, c.Name())
		}
	}
	return names
}

// Package main implements the hugotest CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hugotest/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "hugotest",
	Short: "Snapshot and error tests for Hugo content fixtures",
	Long: `hugotest builds a Hugo site of fixtures once, ties the build diagnostics to
the <test> regions of every fixture and checks the rendered regions against
stored snapshots or expected errors.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyColorFlag(cmd); err != nil {
			return err
		}
		cleanup, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		stopProfiling = cleanup
		return nil
	},
}

// stopProfiling is replaced once a command has started profilers.
var stopProfiling = func() {}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("trace", "", "write trace events to a file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace format (auto|text|ndjson)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "events kept for the error-level crash dump")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 disables)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	stopProfiling()
	if err != nil {
		if err != errTestsFailed {
			fmt.Fprintf(os.Stderr, "hugotest: %v\n", err)
		}
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

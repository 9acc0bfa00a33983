package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"hugotest/internal/diag"
	"hugotest/internal/suite"
)

var setupCmd = &cobra.Command{
	Use:   "setup [flags] [dir]",
	Short: "Build the fixtures once and record their diagnostics",
	Long: `Run only the global setup: build the fixture site, parse its output and
write the side-channel file later transform runs read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: setupExecution,
}

func init() {
	addPipelineFlags(setupCmd)
}

func setupExecution(cmd *cobra.Command, args []string) error {
	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	fixtures, err := discoverFixtures(cfg)
	if err != nil {
		return err
	}
	sctx, rep, err := suite.Setup(cmd.Context(), cfg, fixtures, nil)
	out := cmd.OutOrStdout()
	if err != nil {
		var ue *diag.UnattributableError
		if !errors.As(err, &ue) || sctx == nil {
			dumpTrace(cmd, tracer)
			return err
		}
		// the side-channel file exists; report where before failing
		fmt.Fprintf(out, "side channel: %s\n", sctx.SideChannelPath)
		return err
	}
	if !quiet(cmd) {
		printSetup(out, rep)
		fmt.Fprintf(out, "%d fixtures\n", len(fixtures))
	}
	fmt.Fprintf(out, "side channel: %s\n", sctx.SideChannelPath)
	if showTimings(cmd) {
		printTimings(out, rep, nil)
	}
	return nil
}

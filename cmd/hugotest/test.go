package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"hugotest/internal/materialize"
	"hugotest/internal/runner"
	"hugotest/internal/suite"
	"hugotest/snapshot"
)

// errTestsFailed is returned after the failures were already reported.
var errTestsFailed = errors.New("tests failed")

var testCmd = &cobra.Command{
	Use:   "test [flags] [dir]",
	Short: "Build the fixtures and run their tests",
	Long: `Build the fixture site once, materialize every fixture and run the
resulting snapshot and error tests. dir defaults to the working directory;
the nearest hugotest.toml above it configures the run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: testExecution,
}

func init() {
	addPipelineFlags(testCmd)
	testCmd.Flags().BoolP("update", "u", false, "overwrite snapshots that differ")
	testCmd.Flags().Bool("ci", false, "fail on missing snapshots instead of writing them")
	testCmd.Flags().Bool("prune", false, "remove obsolete snapshots (with --update)")
	testCmd.Flags().StringP("filter", "t", "", "run only tests whose \"<group> <title>\" matches this glob")
	testCmd.Flags().String("junit", "", "write a JUnit XML report to this path")
	testCmd.Flags().BoolP("verbose", "v", false, "list passing tests too")
}

func testExecution(cmd *cobra.Command, args []string) error {
	update, err := cmd.Flags().GetBool("update")
	if err != nil {
		return err
	}
	ci, err := cmd.Flags().GetBool("ci")
	if err != nil {
		return err
	}
	prune, err := cmd.Flags().GetBool("prune")
	if err != nil {
		return err
	}
	filter, err := cmd.Flags().GetString("filter")
	if err != nil {
		return err
	}
	junitPath, err := cmd.Flags().GetString("junit")
	if err != nil {
		return err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	if update && ci {
		return fmt.Errorf("--update and --ci are mutually exclusive")
	}
	if prune && !update {
		return fmt.Errorf("--prune requires --update")
	}

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
	out := cmd.OutOrStdout()
	if len(fixtures) == 0 {
		fmt.Fprintf(out, "no fixtures found under %s\n", cfg.ContentDir())
		return nil
	}

	pr, err := runPipelineFor(cmd, cfg, fixtures)
	if isSetupAbort(pr, err) {
		dumpTrace(cmd, tracer)
		return err
	}
	if !quiet(cmd) {
		printSetup(out, pr.setup)
	}
	failed := fixtureErrors(cmd.ErrOrStderr(), pr.report) > 0

	mode := snapshot.ModeDefault
	switch {
	case update:
		mode = snapshot.ModeUpdate
	case ci:
		mode = snapshot.ModeCI
	}
	r, err := runner.New(runner.Options{
		Root:    pr.sctx.Root,
		Mode:    mode,
		Filter:  filter,
		Prune:   prune,
		Output:  out,
		Color:   colorEnabled(),
		Verbose: verbose,
	})
	if err != nil {
		return err
	}
	res := r.Run(collectSuites(pr.report))

	if junitPath != "" {
		if err := runner.WriteJUnitFile(junitPath, res); err != nil {
			return fmt.Errorf("failed to write junit report: %w", err)
		}
	}
	if showTimings(cmd) {
		printTimings(out, pr.setup, pr.report)
	}
	if err := pr.report.Err(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		failed = true
	}
	if failed || !res.OK() {
		dumpTrace(cmd, tracer)
		return errTestsFailed
	}
	return nil
}

// collectSuites returns the suites of successful, rendered fixtures in
// fixture order.
func collectSuites(rep *suite.Report) []materialize.Suite {
	if rep == nil {
		return nil
	}
	out := make([]materialize.Suite, 0, len(rep.Outcomes))
	for _, o := range rep.Outcomes {
		if o.Err != nil || o.Skipped {
			continue
		}
		out = append(out, o.Suite)
	}
	return out
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"hugotest/internal/config"
	"hugotest/internal/suite"
)

// addPipelineFlags registers the flags shared by commands that build the
// site. Zero values leave the configuration file in charge.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("executable", "", "hugo executable (overrides config and "+config.EnvExecutable+")")
	cmd.Flags().String("format", "", "diagnostic format (auto|legacy|positional)")
	cmd.Flags().String("mode", "", "correlation mode (auto|line|id)")
	cmd.Flags().String("pairing", "", "id pairing strategy (next|message)")
	cmd.Flags().IntP("jobs", "j", 0, "fixtures processed in parallel (0 = config or GOMAXPROCS)")
	cmd.Flags().Duration("timeout", 0, "abort the build after this long (0 = config)")
	cmd.Flags().Bool("no-cache", false, "do not read or write the materialization cache")
	cmd.Flags().String("ui", "off", "progress UI (auto|on|off)")
}

// loadConfig resolves the configuration for the directory in args (or the
// working directory) and applies the pipeline flags that were set.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	startDir := "."
	if len(args) > 0 {
		startDir = args[0]
	}
	cfg, err := config.Load(startDir)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"executable": &cfg.Executable,
		"format":     &cfg.Format,
		"mode":       &cfg.Mode,
		"pairing":    &cfg.Pairing,
	} {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	if flags.Lookup("jobs") != nil && flags.Changed("jobs") {
		jobs, err := flags.GetInt("jobs")
		if err != nil {
			return nil, err
		}
		if jobs < 0 {
			return nil, fmt.Errorf("--jobs must not be negative, got %d", jobs)
		}
		if jobs > 0 {
			cfg.Jobs = jobs
		}
	}
	if flags.Lookup("timeout") != nil && flags.Changed("timeout") {
		if cfg.Timeout.Duration, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("no-cache") != nil && flags.Changed("no-cache") {
		if cfg.NoCache, err = flags.GetBool("no-cache"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// discoverFixtures lists the fixtures of cfg, skipping the build output and
// the snapshot directory.
func discoverFixtures(cfg *config.Config) ([]string, error) {
	return suite.Discover(suite.DiscoverOptions{
		Root:     cfg.ContentDir(),
		Include:  cfg.Include,
		Ignore:   cfg.Ignore,
		SkipDirs: []string{cfg.OutputDir(), cfg.SnapshotRoot()},
	})
}

// pipelineResult is what a full setup and materialization run produced.
// Fields are set as far as the run got.
type pipelineResult struct {
	sctx   *suite.Context
	setup  *suite.SetupReport
	report *suite.Report
}

// runPipeline builds the site and materializes every fixture. An error
// from setup aborts; per-fixture errors are returned alongside a complete
// report.
func runPipeline(ctx context.Context, cfg *config.Config, fixtures []string, sink suite.ProgressSink) (*pipelineResult, error) {
	pr := &pipelineResult{}
	sctx, srep, err := suite.Setup(ctx, cfg, fixtures, sink)
	pr.sctx, pr.setup = sctx, srep
	if err != nil {
		return pr, err
	}
	rep, err := suite.MaterializeAll(ctx, sctx, fixtures, cfg.Jobs, sink)
	pr.report = rep
	return pr, err
}

// runPipelineFor picks the progress UI or plain execution from --ui.
func runPipelineFor(cmd *cobra.Command, cfg *config.Config, fixtures []string) (*pipelineResult, error) {
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return nil, err
	}
	view, err := parseProgressView(uiValue)
	if err != nil {
		return nil, err
	}
	if view.enabled(len(fixtures), quiet(cmd)) {
		return runPipelineWithUI(cmd.Context(), cfg, fixtures)
	}
	return runPipeline(cmd.Context(), cfg, fixtures, nil)
}

// fixtureErrors reports per-fixture failures and returns how many there
// were.
func fixtureErrors(w io.Writer, rep *suite.Report) int {
	if rep == nil {
		return 0
	}
	n := 0
	for _, o := range rep.Outcomes {
		if o.Err == nil {
			continue
		}
		n++
		name := o.Rel
		if name == "" {
			name = o.Path
		}
		fmt.Fprintf(w, "ERROR %s: %v\n", name, o.Err)
	}
	return n
}

// isSetupAbort reports whether err from runPipeline means no report exists.
func isSetupAbort(pr *pipelineResult, err error) bool {
	return err != nil && (pr == nil || pr.report == nil || errors.Is(err, context.Canceled))
}

func quiet(cmd *cobra.Command) bool {
	q, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return q
}

func showTimings(cmd *cobra.Command) bool {
	t, _ := cmd.Root().PersistentFlags().GetBool("timings")
	return t
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

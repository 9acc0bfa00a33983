package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"hugotest/internal/config"
	"hugotest/internal/diag"
	"hugotest/internal/materialize"
	"hugotest/internal/suite"
)

var transformCmd = &cobra.Command{
	Use:   "transform [flags] <fixture>",
	Short: "Print the generated test code of one fixture",
	Long: `Materialize one fixture from the results of an earlier setup run. Only
the side-channel file of that run is read; the site is not built again.`,
	Args: cobra.ExactArgs(1),
	RunE: transformExecution,
}

func init() {
	transformCmd.Flags().String("side-channel", "", "side-channel file (default <publishDir>/"+diag.SideChannelName+")")
	transformCmd.Flags().String("package", "fixtures", "package clause of the generated code")
	transformCmd.Flags().Bool("no-cache", false, "do not read or write the materialization cache")
}

func transformExecution(cmd *cobra.Command, args []string) error {
	scPath, err := cmd.Flags().GetString("side-channel")
	if err != nil {
		return err
	}
	pkg, err := cmd.Flags().GetString("package")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}

	_, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	fixture := absPath(args[0])
	cfg, err := config.Load(filepath.Dir(fixture))
	if err != nil {
		return err
	}
	if scPath == "" {
		scPath = suite.SideChannelPath(cfg.OutputDir())
	}
	sctx, err := suite.LoadContext(scPath)
	if err != nil {
		if errors.Is(err, diag.ErrNoSideChannel) {
			return fmt.Errorf("%w (hugotest setup writes %s)", err, scPath)
		}
		return err
	}
	if !noCache && !cfg.NoCache {
		if sctx.Cache, err = suite.OpenCache(cfg); err != nil {
			return err
		}
	}

	out, err := suite.Process(cmd.Context(), sctx, fixture)
	if err != nil {
		return err
	}
	if out.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s skipped: %s\n", out.Rel, out.SkipReason)
		return nil
	}
	stray := append(append([]diag.Record(nil), out.Unknown...), out.Unexpected...)
	if err := diag.CheckAttributed(stray); err != nil {
		return err
	}
	code, err := materialize.Render(pkg, out.Suite)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(code)
	return err
}

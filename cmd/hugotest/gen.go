package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"hugotest/internal/materialize"
)

// defaultGenFile is the generated test file name inside --out.
const defaultGenFile = "hugotest_fixtures_test.go"

var genCmd = &cobra.Command{
	Use:   "gen [flags] [dir]",
	Short: "Write the fixture tests as a Go test file",
	Long: `Build the fixtures and write one Go test function per fixture, with one
subtest per region, using the hugotest/snapshot package. Run the result with
go test; set HUGOTEST_UPDATE=1 to rewrite snapshots.`,
	Args: cobra.MaximumNArgs(1),
	RunE: genExecution,
}

func init() {
	addPipelineFlags(genCmd)
	genCmd.Flags().StringP("out", "o", "", "directory of the generated file (default <root>/fixtures)")
	genCmd.Flags().String("package", "fixtures", "package clause of the generated file")
	genCmd.Flags().String("file", defaultGenFile, "name of the generated file")
	genCmd.Flags().Bool("stdout", false, "print the generated code instead of writing it")
}

func genExecution(cmd *cobra.Command, args []string) error {
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	pkg, err := cmd.Flags().GetString("package")
	if err != nil {
		return err
	}
	fileName, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	toStdout, err := cmd.Flags().GetBool("stdout")
	if err != nil {
		return err
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
	if outDir == "" {
		outDir = filepath.Join(cfg.Root, "fixtures")
	}
	outDir = absPath(outDir)

	fixtures, err := discoverFixtures(cfg)
	if err != nil {
		return err
	}
	pr, err := runPipelineFor(cmd, cfg, fixtures)
	if isSetupAbort(pr, err) {
		dumpTrace(cmd, tracer)
		return err
	}
	if n := fixtureErrors(cmd.ErrOrStderr(), pr.report); n > 0 {
		return fmt.Errorf("%d fixtures could not be materialized", n)
	}
	if err := pr.report.Err(); err != nil {
		return err
	}

	suites := collectSuites(pr.report)
	for i := range suites {
		rel, err := snapshotPathFrom(outDir, pr.sctx.Root, suites[i].Snapshots)
		if err != nil {
			return err
		}
		suites[i].Snapshots = rel
	}
	code, err := materialize.Render(pkg, suites...)
	if err != nil {
		return err
	}
	if toStdout {
		_, err := cmd.OutOrStdout().Write(code)
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	target := filepath.Join(outDir, fileName)
	if err := os.WriteFile(target, code, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if !quiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d suites to %s\n", len(suites), target)
	}
	return nil
}

// snapshotPathFrom rewrites a root-relative snapshot path so that it
// resolves from dir, the working directory of the generated tests.
func snapshotPathFrom(dir, root, snapshots string) (string, error) {
	if snapshots == "" {
		return "", nil
	}
	rel, err := filepath.Rel(dir, filepath.Join(root, filepath.FromSlash(snapshots)))
	if err != nil {
		return "", fmt.Errorf("snapshot path %s: %w", snapshots, err)
	}
	return filepath.ToSlash(rel), nil
}

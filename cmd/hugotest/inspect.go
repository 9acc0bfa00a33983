package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"hugotest/internal/diag"
	"hugotest/internal/fixture"
)

var extractCmd = &cobra.Command{
	Use:   "extract <fixture>...",
	Short: "List the test regions of fixtures",
	Args:  cobra.MinimumNArgs(1),
	RunE:  extractExecution,
}

var diagCmd = &cobra.Command{
	Use:   "diag [flags] [log]",
	Short: "Parse a captured build log into diagnostics",
	Long: `Parse hugo output (a file, or stdin when omitted or "-") and print the
retained diagnostics, one per line, sorted by file and position.`,
	Args: cobra.MaximumNArgs(1),
	RunE: diagExecution,
}

func init() {
	diagCmd.Flags().String("format", "positional", "log format (legacy|positional)")
	diagCmd.Flags().String("sentinel", diag.DefaultSentinel, "marker identifying expected-error warnings")
	diagCmd.Flags().String("content-root", "", "content directory absolute paths are made relative to")
}

func extractExecution(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		fx, err := fixture.Extract(path, src)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d regions\n", path, fx.Len())
		for i := range fx.Regions {
			r := &fx.Regions[i]
			kind := "snapshot"
			if e := r.Expectation; e != nil {
				kind = fmt.Sprintf("error %q", e.Message)
				if e.ID != "" {
					kind += " id=" + e.ID
				}
			}
			fmt.Fprintf(out, "  %d-%d\t%s\t%s\n", r.StartLine, r.EndLine, r.Name, kind)
		}
	}
	return nil
}

func diagExecution(cmd *cobra.Command, args []string) error {
	formatValue, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	sentinel, err := cmd.Flags().GetString("sentinel")
	if err != nil {
		return err
	}
	contentRoot, err := cmd.Flags().GetString("content-root")
	if err != nil {
		return err
	}
	format, err := diag.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	parsed, err := diag.NewParser(format, sentinel, contentRoot).ParseOutput(in)
	if err != nil {
		return err
	}
	var records []diag.Record
	for _, file := range parsed.Files() {
		g, _ := parsed.Group(file)
		records = append(records, g.Records...)
	}
	records = append(records, parsed.Unattributable...)
	text := diag.FormatGolden(records)
	if text != "" {
		fmt.Fprintln(cmd.OutOrStdout(), text)
	}
	if !quiet(cmd) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d diagnostics in %d files, %d unattributable\n",
			parsed.Len(), len(parsed.Files()), len(parsed.Unattributable))
	}
	return nil
}

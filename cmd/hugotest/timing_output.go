package main

import (
	"fmt"
	"io"
	"time"

	"hugotest/internal/observ"
	"hugotest/internal/suite"
)

// slowestFixtures is how many fixtures --timings lists individually.
const slowestFixtures = 5

func printSetup(out io.Writer, rep *suite.SetupReport) {
	if out == nil || rep == nil {
		return
	}
	version := rep.HugoVersion
	if version == "" {
		version = "unknown"
	}
	fmt.Fprintf(out, "hugo %s (%s output, %s correlation): %d diagnostics in %d files\n",
		version, rep.Format, rep.Mode, rep.Records, rep.Files)
}

func printTimings(out io.Writer, setup *suite.SetupReport, rep *suite.Report) {
	if out == nil {
		return
	}
	if setup != nil {
		if setup.Timings.Has(suite.StageBuild) {
			fmt.Fprintf(out, "built %.1f ms\n", toMillis(setup.Timings.Duration(suite.StageBuild)))
		}
		if setup.Timings.Has(suite.StageParse) {
			fmt.Fprintf(out, "parsed %.1f ms\n", toMillis(setup.Timings.Duration(suite.StageParse)))
		}
	}
	if rep == nil {
		return
	}
	fmt.Fprintf(out, "materialized %d fixtures (%d cached) in %.1f ms\n", rep.Suites(), rep.Cached(), toMillis(rep.Elapsed))
	fmt.Fprint(out, rep.Timings().Summary("fixture stages"))

	byFixture := make(map[string]observ.Report, len(rep.Outcomes))
	for _, o := range rep.Outcomes {
		if o.Rel != "" {
			byFixture[o.Rel] = o.Timing
		}
	}
	keys := observ.Slowest(byFixture, slowestFixtures)
	if len(keys) == 0 {
		return
	}
	fmt.Fprintln(out, "slowest fixtures:")
	for _, k := range keys {
		fmt.Fprintf(out, "  %-40s %9.2f ms\n", k, byFixture[k].TotalMS)
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

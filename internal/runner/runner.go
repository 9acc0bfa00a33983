// Package runner executes materialized fixture tests against the snapshot
// store and reports the results.
package runner

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gobwas/glob"
	"github.com/mattn/go-runewidth"
	"github.com/pmezard/go-difflib/difflib"

	"hugotest/internal/htmlpretty"
	"hugotest/internal/materialize"
	"hugotest/snapshot"
)

// titleWidth bounds the title column of result lines.
const titleWidth = 60

// Options configures a run.
type Options struct {
	// Root is the directory suite snapshot paths are relative to.
	Root string
	Mode snapshot.Mode
	// Filter is a glob over "<group> <title>"; empty runs everything.
	Filter string
	// Prune removes obsolete snapshots when Mode is ModeUpdate.
	Prune  bool
	Output io.Writer
	Color  bool
	// Verbose prints passing tests too.
	Verbose bool
}

// Status is the verdict for one test.
type Status uint8

const (
	Passed Status = iota
	Failed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "PASS"
	case Failed:
		return "FAIL"
	case Skipped:
		return "SKIP"
	}
	return "????"
}

// TestResult is the outcome of one test.
type TestResult struct {
	Title    string
	Kind     materialize.Kind
	Status   Status
	Snapshot snapshot.Outcome
	Message  string
	Diff     string
	Duration time.Duration
}

// SuiteResult groups the results of one fixture.
type SuiteResult struct {
	Name     string
	Fixture  string
	Tests    []TestResult
	Obsolete []string
	Pruned   int
	Err      error
	Duration time.Duration
}

// Result aggregates a run.
type Result struct {
	Suites   []SuiteResult
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Written  int
	Updated  int
	Obsolete int
	Pruned   int
	Duration time.Duration
}

// OK reports whether every executed test passed.
func (r *Result) OK() bool {
	if r.Failed > 0 {
		return false
	}
	for _, s := range r.Suites {
		if s.Err != nil {
			return false
		}
	}
	return true
}

// Runner executes suites.
type Runner struct {
	opts   Options
	filter glob.Glob

	pass, fail, skip, dim *color.Color
}

// New validates opts and returns a runner.
func New(opts Options) (*Runner, error) {
	r := &Runner{
		opts: opts,
		pass: color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		skip: color.New(color.FgYellow),
		dim:  color.New(color.Faint),
	}
	if opts.Output == nil {
		r.opts.Output = io.Discard
	}
	if opts.Filter != "" {
		g, err := glob.Compile(opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("invalid test filter %q: %w", opts.Filter, err)
		}
		r.filter = g
	}
	for _, c := range []*color.Color{r.pass, r.fail, r.skip, r.dim} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r, nil
}

// Run executes suites in order and prints results and a summary.
func (r *Runner) Run(suites []materialize.Suite) *Result {
	start := time.Now()
	res := &Result{}
	for i := range suites {
		sr := r.runSuite(&suites[i])
		res.add(&sr)
		res.Suites = append(res.Suites, sr)
	}
	res.Duration = time.Since(start)
	r.summary(res)
	return res
}

func (res *Result) add(sr *SuiteResult) {
	for _, tr := range sr.Tests {
		res.Total++
		switch tr.Status {
		case Passed:
			res.Passed++
		case Failed:
			res.Failed++
		case Skipped:
			res.Skipped++
		}
		switch tr.Snapshot {
		case snapshot.Written:
			res.Written++
		case snapshot.Updated:
			res.Updated++
		}
	}
	res.Obsolete += len(sr.Obsolete)
	res.Pruned += sr.Pruned
}

func (r *Runner) selected(s *materialize.Suite, title string) bool {
	if r.filter == nil {
		return true
	}
	return r.filter.Match(s.Name+" "+title) || r.filter.Match(title)
}

func (r *Runner) runSuite(s *materialize.Suite) SuiteResult {
	start := time.Now()
	sr := SuiteResult{Name: s.Name, Fixture: s.Fixture}
	var store *snapshot.Store
	if s.HasSnapshots() {
		var err error
		store, err = snapshot.Load(filepath.Join(r.opts.Root, filepath.FromSlash(s.Snapshots)))
		if err != nil {
			sr.Err = err
			fmt.Fprintf(r.opts.Output, "%s %s: %v\n", r.fail.Sprint("ERROR"), s.Fixture, err)
			return sr
		}
	}

	fmt.Fprintf(r.opts.Output, "%s %s\n", s.Name, r.dim.Sprint("("+s.Fixture+")"))
	filtered := false
	for i := range s.Tests {
		t := &s.Tests[i]
		if !r.selected(s, t.Title) {
			sr.Tests = append(sr.Tests, TestResult{Title: t.Title, Kind: t.Kind, Status: Skipped})
			filtered = true
			continue
		}
		tr := r.runTest(store, t)
		sr.Tests = append(sr.Tests, tr)
		r.printTest(&tr)
	}

	if store != nil {
		// a filtered run cannot tell obsolete snapshots from skipped ones
		if !filtered {
			sr.Obsolete = store.Obsolete()
			if r.opts.Prune && r.opts.Mode == snapshot.ModeUpdate {
				sr.Pruned = store.Prune()
			}
		}
		if err := store.Save(); err != nil {
			sr.Err = fmt.Errorf("failed to save snapshots: %w", err)
			fmt.Fprintf(r.opts.Output, "%s %s: %v\n", r.fail.Sprint("ERROR"), s.Fixture, sr.Err)
		}
	}
	sr.Duration = time.Since(start)
	return sr
}

func (r *Runner) runTest(store *snapshot.Store, t *materialize.Test) TestResult {
	start := time.Now()
	tr := TestResult{Title: t.Title, Kind: t.Kind, Status: Passed}
	switch t.Kind {
	case materialize.KindSnapshot:
		got := store.Check(t.Title, t.SnapshotInput, r.opts.Mode)
		tr.Snapshot = got.Outcome
		switch got.Outcome {
		case snapshot.Mismatched:
			tr.Status = Failed
			tr.Message = "snapshot mismatch"
			tr.Diff = Diff(got.Stored, t.SnapshotInput)
		case snapshot.Missing:
			tr.Status = Failed
			tr.Message = "snapshot missing (written snapshots are not allowed in CI mode)"
		}
	case materialize.KindErrorAssertion:
		if !t.Passed() {
			tr.Status = Failed
			tr.Message = fmt.Sprintf("error mismatch\n  expected: %q\n  actual:   %q", t.Expected, t.Actual)
		}
	case materialize.KindMissingError:
		tr.Status = Failed
		tr.Message = t.Failure
	}
	tr.Duration = time.Since(start)
	return tr
}

// Diff renders a unified diff of two normalized snapshot values after
// pretty-printing both as HTML.
func Diff(stored, actual string) string {
	if stored == actual {
		return ""
	}
	a := htmlpretty.MustFormat(denormalize(stored))
	b := htmlpretty.MustFormat(denormalize(actual))
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "stored",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return text
}

// denormalize restores the line breaks materialize.Normalize escaped.
func denormalize(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func (r *Runner) printTest(tr *TestResult) {
	if tr.Status == Passed && !r.opts.Verbose {
		return
	}
	var label string
	switch tr.Status {
	case Passed:
		label = r.pass.Sprint(tr.Status.String())
	case Failed:
		label = r.fail.Sprint(tr.Status.String())
	default:
		label = r.skip.Sprint(tr.Status.String())
	}
	title := fitWidth(tr.Title, titleWidth)
	note := ""
	switch tr.Snapshot {
	case snapshot.Written:
		note = " " + r.dim.Sprint("(snapshot written)")
	case snapshot.Updated:
		note = " " + r.dim.Sprint("(snapshot updated)")
	}
	fmt.Fprintf(r.opts.Output, "  %s %s %s%s\n", label, title, r.dim.Sprint(formatDuration(tr.Duration)), note)
	if tr.Message != "" {
		fmt.Fprintf(r.opts.Output, "      %s\n", strings.ReplaceAll(tr.Message, "\n", "\n      "))
	}
	if tr.Diff != "" {
		fmt.Fprintf(r.opts.Output, "%s\n", indentLines(tr.Diff, "      "))
	}
}

func (r *Runner) summary(res *Result) {
	out := r.opts.Output
	fmt.Fprintln(out)
	status := r.pass.Sprint("ok")
	if !res.OK() {
		status = r.fail.Sprint("FAILED")
	}
	fmt.Fprintf(out, "%s: %d suites, %d tests, %d passed, %d failed, %d skipped (%s)\n",
		status, len(res.Suites), res.Total, res.Passed, res.Failed, res.Skipped, formatDuration(res.Duration))
	if res.Written > 0 || res.Updated > 0 || res.Obsolete > 0 {
		fmt.Fprintf(out, "snapshots: %d written, %d updated, %d obsolete", res.Written, res.Updated, res.Obsolete)
		if res.Pruned > 0 {
			fmt.Fprintf(out, ", %d removed", res.Pruned)
		}
		fmt.Fprintln(out)
	}
}

// fitWidth pads or truncates s to width terminal cells.
func fitWidth(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "...")
	}
	return runewidth.FillRight(s, width)
}

func indentLines(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
}

package runner

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"hugotest/internal/materialize"
	"hugotest/snapshot"
)

func sampleSuite() materialize.Suite {
	return materialize.Suite{
		Name:      "refs",
		Fixture:   "refs.md",
		Snapshots: "__snapshots__/refs.md.toml",
		Tests: []materialize.Test{
			{Title: "plain", Kind: materialize.KindSnapshot, SnapshotInput: `<p>a</p>\n`},
			{Title: "broken ref", Kind: materialize.KindErrorAssertion, Expected: "bad ref", Actual: "bad ref"},
			{Title: "wrong", Kind: materialize.KindErrorAssertion, Expected: "x", Actual: "y"},
			{Title: "missing", Kind: materialize.KindMissingError, Expected: "z", Failure: materialize.MissingErrorMessage("z")},
		},
	}
}

func newRunner(t *testing.T, opts Options) (*Runner, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts.Output = &buf
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return r, &buf
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	r, buf := newRunner(t, Options{Root: root})
	res := r.Run([]materialize.Suite{sampleSuite()})

	if res.Total != 4 || res.Passed != 2 || res.Failed != 2 || res.Written != 1 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.OK() {
		t.Fatal("run with failures must not be OK")
	}
	out := buf.String()
	for _, want := range []string{
		"FAIL wrong",
		`expected: "x"`,
		`No error raised. Was expecting: "z"`,
		"FAILED: 1 suites, 4 tests, 2 passed, 2 failed, 0 skipped",
		"snapshots: 1 written, 0 updated, 0 obsolete",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "PASS") {
		t.Errorf("passing tests are only listed in verbose mode:\n%s", out)
	}

	s, err := snapshot.Load(filepath.Join(root, "__snapshots__", "refs.md.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Check("plain", `<p>a</p>\n`, snapshot.ModeCI); got.Outcome != snapshot.Matched {
		t.Fatalf("snapshot not persisted: %v", got.Outcome)
	}
}

func TestRun_SnapshotMismatchAndUpdate(t *testing.T) {
	root := t.TempDir()
	suite := sampleSuite()
	suite.Tests = suite.Tests[:1]

	r, _ := newRunner(t, Options{Root: root})
	r.Run([]materialize.Suite{suite})

	suite.Tests[0].SnapshotInput = `<p>b</p>\n`
	r, buf := newRunner(t, Options{Root: root, Mode: snapshot.ModeCI})
	res := r.Run([]materialize.Suite{suite})
	if res.Failed != 1 {
		t.Fatalf("expected a mismatch, got %+v", res)
	}
	tr := res.Suites[0].Tests[0]
	if !strings.Contains(tr.Diff, "-  a") || !strings.Contains(tr.Diff, "+  b") {
		t.Fatalf("diff should show the changed text:\n%s", tr.Diff)
	}
	if !strings.Contains(buf.String(), "snapshot mismatch") {
		t.Fatalf("output lacks mismatch:\n%s", buf.String())
	}

	r, _ = newRunner(t, Options{Root: root, Mode: snapshot.ModeUpdate})
	res = r.Run([]materialize.Suite{suite})
	if !res.OK() || res.Updated != 1 {
		t.Fatalf("update run = %+v", res)
	}
}

func TestRun_CIMissing(t *testing.T) {
	r, _ := newRunner(t, Options{Root: t.TempDir(), Mode: snapshot.ModeCI})
	suite := sampleSuite()
	suite.Tests = suite.Tests[:1]
	res := r.Run([]materialize.Suite{suite})
	if res.Failed != 1 || res.Suites[0].Tests[0].Snapshot != snapshot.Missing {
		t.Fatalf("expected missing snapshot failure: %+v", res.Suites[0].Tests[0])
	}
}

func TestRun_ObsoleteAndPrune(t *testing.T) {
	root := t.TempDir()
	suite := sampleSuite()
	suite.Tests = []materialize.Test{
		{Title: "a", Kind: materialize.KindSnapshot, SnapshotInput: "1"},
		{Title: "b", Kind: materialize.KindSnapshot, SnapshotInput: "2"},
	}
	r, _ := newRunner(t, Options{Root: root})
	r.Run([]materialize.Suite{suite})

	suite.Tests = suite.Tests[:1]
	r, _ = newRunner(t, Options{Root: root})
	res := r.Run([]materialize.Suite{suite})
	if res.Obsolete != 1 || res.Suites[0].Obsolete[0] != "b" {
		t.Fatalf("expected one obsolete snapshot: %+v", res)
	}

	r, buf := newRunner(t, Options{Root: root, Mode: snapshot.ModeUpdate, Prune: true})
	res = r.Run([]materialize.Suite{suite})
	if res.Pruned != 1 || !strings.Contains(buf.String(), "1 removed") {
		t.Fatalf("expected pruning: %+v\n%s", res, buf.String())
	}
}

func TestRun_Filter(t *testing.T) {
	r, buf := newRunner(t, Options{Root: t.TempDir(), Filter: "refs broken*", Verbose: true})
	res := r.Run([]materialize.Suite{sampleSuite()})
	if res.Passed != 1 || res.Skipped != 3 || !res.OK() {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if !strings.Contains(buf.String(), "PASS broken ref") {
		t.Fatalf("verbose output lacks the passing test:\n%s", buf.String())
	}
	if res.Suites[0].Obsolete != nil {
		t.Fatal("filtered runs must not report obsolete snapshots")
	}
}

func TestNew_InvalidFilter(t *testing.T) {
	if _, err := New(Options{Filter: "[a"}); err == nil {
		t.Fatal("expected invalid filter error")
	}
}

func TestDiff(t *testing.T) {
	d := Diff(`<ul><li>a</li></ul>`, `<ul><li>b</li></ul>`)
	for _, want := range []string{"--- stored", "+++ actual", "-    a", "+    b"} {
		if !strings.Contains(d, want) {
			t.Errorf("diff lacks %q:\n%s", want, d)
		}
	}
	if Diff("same", "same") != "" {
		t.Error("equal values should produce no diff")
	}
}

func TestWriteJUnit(t *testing.T) {
	r, _ := newRunner(t, Options{Root: t.TempDir()})
	res := r.Run([]materialize.Suite{sampleSuite()})
	res.Suites = append(res.Suites, SuiteResult{Name: "bad", Fixture: "bad.md", Err: errors.New("boom")})

	var buf bytes.Buffer
	if err := WriteJUnit(&buf, res); err != nil {
		t.Fatalf("WriteJUnit returned error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<testsuites name="hugotest" tests="4" failures="2" errors="1" skipped="0"`,
		`<testsuite name="refs" file="refs.md" tests="4" failures="2"`,
		`<testcase name="broken ref" classname="refs"`,
		`<failure message="error mismatch">`,
		`<error message="boom">`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report lacks %q:\n%s", want, out)
		}
	}
}

package materialize

import (
	"bytes"
	"strings"
	"testing"

	"hugotest/internal/correlate"
	"hugotest/internal/diag"
	"hugotest/internal/fixture"
)

const e2eFixture = `---
title: refs
---
<test name="plain">
<a href="/a">a</a>
</test>

<test name="broken ref">
{{< ref "missing" >}}
<div id="expected-error" data-id="E1">bad ref</div>
</test>
`

func materializeTranscript(t *testing.T, transcript string) []Test {
	t.Helper()
	fx, err := fixture.Extract("refs.md", []byte(e2eFixture))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	out, err := diag.NewParser(diag.FormatLegacy, "", "").ParseOutput(strings.NewReader(transcript))
	if err != nil {
		t.Fatalf("ParseOutput returned error: %v", err)
	}
	var records []diag.Record
	if g, ok := out.Group("refs.md"); ok {
		records = g.Records
	}
	mode := correlate.ModeAuto.Resolve(diag.FormatLegacy)
	res := correlate.Correlate(mode, fx.Regions, "refs.md", records, nil, correlate.PairNext)
	return Materialize(fx.Regions, res)
}

func TestMaterialize_EndToEndPass(t *testing.T) {
	tests := materializeTranscript(t, strings.Join([]string{
		"WARN 2021/09/23 13:08:34 refs.md: 'hugotest-expected-error' E1|bad ref",
		"ERROR 2021/09/23 13:08:34 refs.md: bad ref",
	}, "\n"))

	if len(tests) != 2 {
		t.Fatalf("expected 2 tests, got %d", len(tests))
	}
	snap := tests[0]
	if snap.Title != "plain" || snap.Kind != KindSnapshot {
		t.Fatalf("unexpected first test: %+v", snap)
	}
	if want := `\n<a href="/a">a</a>\n`; snap.SnapshotInput != want {
		t.Fatalf("snapshot input = %q, want %q", snap.SnapshotInput, want)
	}
	assert := tests[1]
	if assert.Title != "broken ref" || assert.Kind != KindErrorAssertion {
		t.Fatalf("unexpected second test: %+v", assert)
	}
	if assert.Expected != "bad ref" || assert.Actual != "bad ref" || !assert.Passed() {
		t.Fatalf("expected passing equality, got expected=%q actual=%q", assert.Expected, assert.Actual)
	}
}

func TestMaterialize_EndToEndMissingError(t *testing.T) {
	tests := materializeTranscript(t,
		"WARN 2021/09/23 13:08:34 refs.md: 'hugotest-expected-error' E1|bad ref\n")

	if len(tests) != 2 {
		t.Fatalf("expected 2 tests, got %d", len(tests))
	}
	got := tests[1]
	if got.Kind != KindMissingError {
		t.Fatalf("expected always-failing test, got %v", got.Kind)
	}
	if want := `No error raised. Was expecting: "bad ref"`; got.Failure != want {
		t.Fatalf("failure = %q, want %q", got.Failure, want)
	}
}

func TestMaterialize_LineSpan(t *testing.T) {
	fx, err := fixture.Extract("a.md", []byte(
		"<test name=\"ok\">x</test>\n<test name=\"err\" expected-error=\"boom\">\n{{< fail >}}\n</test>\n"))
	if err != nil {
		t.Fatal(err)
	}
	res := correlate.ByLineSpan(fx.Regions, []diag.Record{{Level: diag.LevelError, File: "a.md", Line: 3, Message: "boom"}})
	tests := Materialize(fx.Regions, res)
	if tests[1].Kind != KindErrorAssertion || !tests[1].Passed() {
		t.Fatalf("unexpected test: %+v", tests[1])
	}
}

func TestMaterialize_NilResult(t *testing.T) {
	regions := []fixture.Region{{Name: "e", Expectation: &fixture.Expectation{Message: "x"}}}
	tests := Materialize(regions, nil)
	if len(tests) != 1 || tests[0].Kind != KindMissingError {
		t.Fatalf("unexpected tests: %+v", tests)
	}
	if got := Materialize(nil, nil); len(got) != 0 {
		t.Fatalf("zero regions must yield zero tests, got %d", len(got))
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a\r\nb", `a\nb`},
		{"a\nb\n", `a\nb\n`},
		{`folder\file.md: boom`, "folder/file.md: boom"},
		{"mixed\\\r\n", `mixed/\n`},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTestFuncName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"shortcodes/link-list.md", "TestShortcodesLinkList"},
		{"menu/_index.md", "TestMenuIndex"},
		{`layouts\a b.md`, "TestLayoutsAB"},
		{"2024/posts.md", "Test2024Posts"},
		{"_.md", "TestFixture"},
	}
	for _, tc := range tests {
		if got := TestFuncName(tc.path); got != tc.want {
			t.Errorf("TestFuncName(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func sampleSuites() []Suite {
	return []Suite{
		{
			Name:      "refs",
			Fixture:   "shortcodes/refs.md",
			Snapshots: "__snapshots__/shortcodes/refs.toml",
			Tests: []Test{
				{Title: "plain", Kind: KindSnapshot, SnapshotInput: `<p>"q"</p>\n`},
				{Title: "broken ref", Kind: KindErrorAssertion, Expected: "bad ref", Actual: "bad ref"},
				{Title: "missing", Kind: KindMissingError, Expected: "x", Failure: MissingErrorMessage("x")},
			},
		},
		{Name: "empty", Fixture: "a/empty.md"},
		{Name: "dup", Fixture: "a-empty.md"},
	}
}

func TestRender_Deterministic(t *testing.T) {
	first, err := Render("fixtures_test", sampleSuites()...)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	suites := sampleSuites()
	suites[0], suites[2] = suites[2], suites[0]
	second, err := Render("fixtures_test", suites...)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("render is not deterministic:\n%s\n---\n%s", first, second)
	}
}

func TestRender_Shapes(t *testing.T) {
	src, err := Render("fixtures_test", sampleSuites()...)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	code := string(src)
	for _, want := range []string{
		"// Code generated by hugotest. DO NOT EDIT.",
		`"hugotest/snapshot"`,
		"func TestShortcodesRefs(t *testing.T) {",
		"func TestAEmpty(t *testing.T) {",
		"func TestAEmpty_2(t *testing.T) {",
		`snaps := snapshot.Open(t, "__snapshots__/shortcodes/refs.toml")`,
		`snaps.Match(t, "plain", "<p>\"q\"</p>\\n")`,
		`actual := "bad ref"`,
		`t.Fatal("No error raised. Was expecting: \"x\"")`,
		`t.Skip("fixture has no test regions")`,
	} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code lacks %q:\n%s", want, code)
		}
	}
	if strings.Index(code, `t.Run("plain"`) > strings.Index(code, `t.Run("broken ref"`) {
		t.Error("region order not preserved")
	}
}

func TestRender_NoSnapshotImport(t *testing.T) {
	src, err := Render("p", Suite{Name: "x", Fixture: "x.md", Tests: []Test{{Title: "m", Kind: KindMissingError, Failure: "f"}}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(src), "hugotest/snapshot") {
		t.Fatalf("unused snapshot import:\n%s", src)
	}
}

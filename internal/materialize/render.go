package materialize

import (
	"fmt"
	"go/format"
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// SnapshotPackage is the import path used by generated snapshot tests.
const SnapshotPackage = "hugotest/snapshot"

// Suite is the materialized test group of one fixture.
type Suite struct {
	// Name is the group name: the base name of the fixture's output directory.
	Name string
	// Fixture is the fixture path relative to the content root.
	Fixture string
	// Snapshots is the snapshot file used by the generated code.
	Snapshots string
	Tests     []Test
}

// HasSnapshots reports whether any test of the suite is a snapshot test.
func (s *Suite) HasSnapshots() bool {
	for i := range s.Tests {
		if s.Tests[i].Kind == KindSnapshot {
			return true
		}
	}
	return false
}

// Counts returns the number of tests per kind.
func (s *Suite) Counts() map[Kind]int {
	out := make(map[Kind]int, 3)
	for i := range s.Tests {
		out[s.Tests[i].Kind]++
	}
	return out
}

// TestFuncName derives a Go test function name from a fixture path:
// "shortcodes/link-list.md" becomes "TestShortcodesLinkList".
func TestFuncName(fixturePath string) string {
	p := strings.TrimSuffix(path.Clean(strings.ReplaceAll(fixturePath, `\`, "/")), path.Ext(fixturePath))
	var b strings.Builder
	b.WriteString("Test")
	upper := true
	for _, r := range p {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	if b.Len() == len("Test") {
		b.WriteString("Fixture")
	}
	return b.String()
}

// Render emits gofmt formatted Go test source for suites: one test
// function per fixture and one subtest per region, in region order.
// Suites are ordered by fixture path, so equal input renders identical
// bytes.
func Render(pkg string, suites ...Suite) ([]byte, error) {
	sorted := make([]Suite, len(suites))
	copy(sorted, suites)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Fixture < sorted[j].Fixture })

	needSnapshot := false
	for i := range sorted {
		if sorted[i].HasSnapshots() {
			needSnapshot = true
		}
	}

	var b strings.Builder
	b.WriteString("// Code generated by hugotest. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	b.WriteString("import (\n\t\"testing\"\n")
	if needSnapshot {
		fmt.Fprintf(&b, "\n\t%s\n", strconv.Quote(SnapshotPackage))
	}
	b.WriteString(")\n")

	used := make(map[string]int, len(sorted))
	for i := range sorted {
		name := TestFuncName(sorted[i].Fixture)
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		writeSuite(&b, name, &sorted[i])
	}

	src, err := format.Source([]byte(b.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to format generated tests: %w", err)
	}
	return src, nil
}

func writeSuite(b *strings.Builder, funcName string, s *Suite) {
	fmt.Fprintf(b, "\n// %s covers %s (group %s).\n", funcName, s.Fixture, strconv.Quote(s.Name))
	fmt.Fprintf(b, "func %s(t *testing.T) {\n", funcName)
	if len(s.Tests) == 0 {
		b.WriteString("t.Skip(\"fixture has no test regions\")\n}\n")
		return
	}
	if s.HasSnapshots() {
		fmt.Fprintf(b, "snaps := snapshot.Open(t, %s)\n", strconv.Quote(s.Snapshots))
	}
	for i := range s.Tests {
		writeTest(b, &s.Tests[i])
	}
	b.WriteString("}\n")
}

func writeTest(b *strings.Builder, t *Test) {
	title := strconv.Quote(t.Title)
	fmt.Fprintf(b, "t.Run(%s, func(t *testing.T) {\n", title)
	switch t.Kind {
	case KindSnapshot:
		fmt.Fprintf(b, "snaps.Match(t, %s, %s)\n", title, strconv.Quote(t.SnapshotInput))
	case KindErrorAssertion:
		fmt.Fprintf(b, "actual := %s\n", strconv.Quote(t.Actual))
		fmt.Fprintf(b, "expected := %s\n", strconv.Quote(t.Expected))
		b.WriteString("if actual != expected {\n")
		b.WriteString("t.Fatalf(\"diagnostic mismatch\\nwant: %q\\n got: %q\", expected, actual)\n")
		b.WriteString("}\n")
	case KindMissingError:
		fmt.Fprintf(b, "t.Fatal(%s)\n", strconv.Quote(t.Failure))
	}
	b.WriteString("})\n")
}

// Package materialize turns the regions of a fixture, together with the
// diagnostics correlated to them, into executable test units.
package materialize

import (
	"fmt"
	"strings"

	"hugotest/internal/correlate"
	"hugotest/internal/fixture"
)

// Kind is the shape of a materialized test.
type Kind uint8

const (
	// KindSnapshot compares the normalized region content to a stored snapshot.
	KindSnapshot Kind = iota
	// KindErrorAssertion compares the expected diagnostic text to the emitted one.
	KindErrorAssertion
	// KindMissingError fails unconditionally: an expected diagnostic was not emitted.
	KindMissingError
)

func (k Kind) String() string {
	switch k {
	case KindSnapshot:
		return "snapshot"
	case KindErrorAssertion:
		return "error"
	case KindMissingError:
		return "missing-error"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Test is one materialized test unit. Exactly one of SnapshotInput,
// (Expected, Actual) or Failure is meaningful, depending on Kind.
type Test struct {
	Title         string
	Kind          Kind
	SnapshotInput string
	Expected      string
	Actual        string
	Failure       string
}

// Passed reports whether an error assertion holds. Snapshot tests need a
// store to decide and always report false.
func (t Test) Passed() bool {
	return t.Kind == KindErrorAssertion && t.Expected == t.Actual
}

// Normalize makes content platform independent: backslashes become forward
// slashes, then CRLF and LF become the literal two-byte marker `\n`.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, `\`, "/")
	s = strings.ReplaceAll(s, "\r\n", `\n`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

// MissingErrorMessage is the failure text of a KindMissingError test.
func MissingErrorMessage(expected string) string {
	return fmt.Sprintf(`No error raised. Was expecting: "%s"`, expected)
}

// Materialize emits one test per region, in region order. res may be nil
// when the fixture has no diagnostics.
func Materialize(regions []fixture.Region, res *correlate.Result) []Test {
	tests := make([]Test, 0, len(regions))
	for i := range regions {
		tests = append(tests, materializeRegion(&regions[i], res))
	}
	return tests
}

func materializeRegion(r *fixture.Region, res *correlate.Result) Test {
	t := Test{Title: r.Name}
	if r.Expectation == nil {
		t.Kind = KindSnapshot
		t.SnapshotInput = Normalize(r.Content)
		return t
	}

	expected := Normalize(r.Expectation.Message)
	m, ok := res.Match(r.Name)
	if !ok {
		t.Kind = KindMissingError
		t.Expected = expected
		t.Failure = MissingErrorMessage(expected)
		return t
	}
	t.Kind = KindErrorAssertion
	t.Expected = expected
	t.Actual = Normalize(m.Actual)
	return t
}

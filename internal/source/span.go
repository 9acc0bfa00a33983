package source

import (
	"fmt"
)

// Span is an inclusive range of positions in one file.
type Span struct {
	Start LineCol
	End   LineCol
}

// Lines returns the number of lines covered by the span.
func (s Span) Lines() uint32 {
	if s.End.Line < s.Start.Line {
		return 0
	}
	return s.End.Line - s.Start.Line + 1
}

// ContainsLine reports whether line falls inside [Start.Line, End.Line].
func (s Span) ContainsLine(line uint32) bool {
	return line >= s.Start.Line && line <= s.End.Line
}

// Overlaps reports whether the two spans share at least one line.
func (s Span) Overlaps(other Span) bool {
	return s.Start.Line <= other.End.Line && other.Start.Line <= s.End.Line
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.Start.Line, s.Start.Col, s.End.Line, s.End.Col)
}

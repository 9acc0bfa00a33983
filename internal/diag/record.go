package diag

import "fmt"

// Record is one parsed diagnostic line.
type Record struct {
	Level   Level
	File    string // forward slashes, relative to the content root; empty when unattributable
	Line    uint32 // 1-based; 0 when the format does not report it
	Column  uint32 // 1-based; 0 when the format does not report it
	Message string
	Raw     string
}

// Attributable reports whether the record is tied to a file.
func (r Record) Attributable() bool {
	return r.File != ""
}

// HasPosition reports whether the record carries a line number.
func (r Record) HasPosition() bool {
	return r.Line > 0
}

// Location renders file[:line[:col]].
func (r Record) Location() string {
	switch {
	case r.File == "":
		return "<unattributable>"
	case r.Line == 0:
		return r.File
	case r.Column == 0:
		return fmt.Sprintf("%s:%d", r.File, r.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", r.File, r.Line, r.Column)
	}
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s: %s", r.Level, r.Location(), r.Message)
}

// Pair is an expected/actual message couple produced by id pairing.
type Pair struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	// Matched is false when no ERROR followed the WARN.
	Matched bool `json:"matched"`
}

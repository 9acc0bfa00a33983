package diag

import (
	"fmt"
	"sort"
	"strings"
)

// FormatGolden renders records into a stable, single-line-per-entry form
// suitable for reports and aggregate errors. Records are sorted by file,
// position, level and message; the input slice is not modified.
func FormatGolden(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	rendered := make([]Record, len(records))
	copy(rendered, records)

	sort.SliceStable(rendered, func(i, j int) bool {
		ri, rj := rendered[i], rendered[j]
		if ri.File != rj.File {
			return ri.File < rj.File
		}
		if ri.Line != rj.Line {
			return ri.Line < rj.Line
		}
		if ri.Column != rj.Column {
			return ri.Column < rj.Column
		}
		if ri.Level != rj.Level {
			return ri.Level > rj.Level
		}
		return ri.Message < rj.Message
	})

	var b strings.Builder
	for i, r := range rendered {
		msg := r.Message
		if !r.Attributable() && r.Raw != "" {
			msg = r.Raw
		}
		fmt.Fprintf(&b, "%s %s %s", r.Level, r.Location(), sanitizeMessage(msg))
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}

// UnattributableError lists every diagnostic that could not be tied to a
// fixture or region.
type UnattributableError struct {
	Records []Record
}

func (e *UnattributableError) Error() string {
	noun := "diagnostics"
	if len(e.Records) == 1 {
		noun = "diagnostic"
	}
	return fmt.Sprintf("%d %s could not be attributed to a test region; add the missing expectation or fix the fixture:\n%s",
		len(e.Records), noun, FormatGolden(e.Records))
}

// CheckAttributed returns an *UnattributableError when records is not empty.
func CheckAttributed(records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return &UnattributableError{Records: records}
}

package source

import (
	"path/filepath"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"./a/b.md", "a/b.md"},
		{"a//b/../c.md", "a/c.md"},
		{"shortcodes/file.md", "shortcodes/file.md"},
		// NFD "é" becomes NFC.
		{"cafe\u0301.md", "caf\u00e9.md"},
	}
	for _, tc := range tests {
		if got := NormalizePath(tc.in); got != tc.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUnder(t *testing.T) {
	root := filepath.Join(t.TempDir(), "tests")

	tests := []struct {
		name   string
		path   string
		want   string
		wantOK bool
	}{
		{"relative", "shortcodes/file.md", "shortcodes/file.md", true},
		{"absolute inside", filepath.Join(root, "a", "b.md"), "a/b.md", true},
		{"escapes", "../outside.md", "", false},
		{"absolute outside", filepath.Join(filepath.Dir(root), "x.md"), "", false},
		{"root itself", root, "", false},
		{"empty", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Under(root, tc.path)
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("Under(%q) = (%q, %v), want (%q, %v)", tc.path, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestSpanContainsLine(t *testing.T) {
	s := Span{Start: LineCol{Line: 10, Col: 1}, End: LineCol{Line: 14, Col: 7}}
	for _, line := range []uint32{10, 12, 14} {
		if !s.ContainsLine(line) {
			t.Errorf("expected line %d inside %s", line, s)
		}
	}
	for _, line := range []uint32{9, 15, 20} {
		if s.ContainsLine(line) {
			t.Errorf("expected line %d outside %s", line, s)
		}
	}
	if got := s.Lines(); got != 5 {
		t.Errorf("Lines() = %d, want 5", got)
	}
	other := Span{Start: LineCol{Line: 14, Col: 1}, End: LineCol{Line: 16, Col: 1}}
	if !s.Overlaps(other) {
		t.Errorf("expected %s to overlap %s", s, other)
	}
}

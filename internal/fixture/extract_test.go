package fixture

import (
	"errors"
	"strings"
	"testing"
)

func TestExtract_RegionsAndSpans(t *testing.T) {
	src := strings.Join([]string{
		"---",                             // 1
		"title: shortcodes",               // 2
		"---",                             // 3
		"",                                // 4
		`<test name="plain">`,             // 5
		`{{< link href="/a" >}}`,          // 6
		`</test>`,                         // 7
		"",                                // 8
		`<TEST expected-error="bad ref"`,  // 9
		`      error-id="E1" name="err">`, // 10
		`{{< ref "missing" >}}`,           // 11
		`</test >`,                        // 12
	}, "\n")

	fx, err := Extract("shortcodes/link.md", []byte(src))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if fx.Len() != 2 {
		t.Fatalf("expected 2 regions, got %d", fx.Len())
	}

	plain, ok := fx.Region("plain")
	if !ok {
		t.Fatalf("region %q not found", "plain")
	}
	if plain.Content != "\n{{< link href=\"/a\" >}}\n" {
		t.Errorf("unexpected content %q", plain.Content)
	}
	if plain.StartLine != 5 || plain.EndLine != 7 {
		t.Errorf("plain span = %d-%d, want 5-7", plain.StartLine, plain.EndLine)
	}
	if plain.Expectation != nil {
		t.Errorf("plain region must not expect an error, got %+v", plain.Expectation)
	}

	errRegion, _ := fx.Region("err")
	if errRegion.StartLine != 9 || errRegion.EndLine != 12 {
		t.Errorf("err span = %d-%d, want 9-12", errRegion.StartLine, errRegion.EndLine)
	}
	if errRegion.Expectation == nil {
		t.Fatalf("expected an expectation on %q", "err")
	}
	if errRegion.Expectation.ID != "E1" || errRegion.Expectation.Message != "bad ref" {
		t.Errorf("unexpected expectation %+v", errRegion.Expectation)
	}
	if got := strings.Join(fx.Names(), ","); got != "plain,err" {
		t.Errorf("regions out of order: %s", got)
	}
}

func TestExtract_ContentMatchesSourceSubstring(t *testing.T) {
	src := "intro\r\n<test name=\"a\">one\r\ntwo</test>\r\n<test name=\"b\">\\path\\to</test><test name=\"c\"/>"
	fx, err := Extract("x.md", []byte(src))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	want := map[string]string{"a": "one\r\ntwo", "b": `\path\to`, "c": ""}
	for name, content := range want {
		r, ok := fx.Region(name)
		if !ok {
			t.Fatalf("region %q missing", name)
		}
		if r.Content != content {
			t.Errorf("region %q content = %q, want %q", name, r.Content, content)
		}
		if !strings.Contains(src, r.Content) {
			t.Errorf("region %q content is not a substring of the source", name)
		}
	}

	var prevEnd uint32
	for i := range fx.Regions {
		r := &fx.Regions[i]
		if r.StartLine > r.EndLine {
			t.Errorf("region %q has inverted span %d-%d", r.Name, r.StartLine, r.EndLine)
		}
		if i > 0 && r.Span.Start.Less(fx.Regions[i-1].Span.End) {
			t.Errorf("region %q overlaps its predecessor", r.Name)
		}
		prevEnd = r.EndLine
	}
	if prevEnd != 4 {
		t.Errorf("last region ends on line %d, want 4", prevEnd)
	}
}

func TestExtract_Empty(t *testing.T) {
	fx, err := Extract("empty.md", []byte("# Nothing to test\n<testimonial>quote</testimonial>\n"))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if fx.Len() != 0 {
		t.Fatalf("expected no regions, got %d", fx.Len())
	}
}

func TestExtract_LegacyMarker(t *testing.T) {
	src := `<test name="legacy">
{{< broken >}}
<div id="expected-error"
     data-id="E7">Missing "href" parameter</div>
</test>`
	fx, err := Extract("legacy.md", []byte(src))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	r, _ := fx.Region("legacy")
	if r.Expectation == nil {
		t.Fatal("expected legacy expectation")
	}
	if !r.Expectation.Legacy || r.Expectation.ID != "E7" || r.Expectation.Message != `Missing "href" parameter` {
		t.Errorf("unexpected expectation %+v", r.Expectation)
	}
	if r.ErrorID() != "E7" {
		t.Errorf("ErrorID() = %q, want E7", r.ErrorID())
	}
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
		line uint32
	}{
		{"unterminated", "a\n<test name=\"x\">\nbody", ErrUnterminated, 2},
		{"stray close", "x\n\n</test>", ErrUnmatchedClose, 3},
		{"nested", "<test name=\"a\">\n<test name=\"b\"></test></test>", ErrNested, 2},
		{"missing name", "<test id=\"a\"></test>", ErrMissingName, 1},
		{"empty name", "<test name=\" \"></test>", ErrMissingName, 1},
		{"duplicate", "<test name=\"a\"></test>\n<test name=\"a\"></test>", ErrDuplicateName, 2},
		{"unquoted", "<test name=a></test>", ErrMalformedTag, 1},
		{"repeated attr", "<test name=\"a\" name=\"b\"></test>", ErrMalformedTag, 1},
		{"open tag eof", "<test name=\"a\"", ErrUnterminated, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract("bad.md", []byte(tc.src))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if perr.Pos.Line != tc.line {
				t.Errorf("error on line %d, want %d (%v)", perr.Pos.Line, tc.line, err)
			}
			if !strings.HasPrefix(err.Error(), "bad.md:") {
				t.Errorf("error should name the file: %v", err)
			}
		})
	}
}

func TestExtract_SkipsComments(t *testing.T) {
	src := `<!-- <test name="c"> disabled -->
<test name="a"><!-- </test> --><p>kept</p></test>
<!--
<test name="d"></test>
-->
<test name="b">ok</test>`
	fx, err := Extract("c.md", []byte(src))
	if err != nil {
		t.Fatalf("commented regions must be skipped: %v", err)
	}
	if got := strings.Join(fx.Names(), ","); got != "a,b" {
		t.Fatalf("regions = %s, want a,b", got)
	}
	a, _ := fx.Region("a")
	if a.Content != "<!-- </test> --><p>kept</p>" {
		t.Errorf("content of a = %q", a.Content)
	}
	if a.StartLine != 2 || a.EndLine != 2 {
		t.Errorf("a spans %d-%d, want 2-2", a.StartLine, a.EndLine)
	}
}

func TestMerge(t *testing.T) {
	src, err := Extract("a.md", []byte("<test name=\"one\">{{< x >}}</test>\n\n<test name=\"two\">{{< y >}}</test>"))
	if err != nil {
		t.Fatal(err)
	}
	rendered, err := Extract("a/index.html", []byte(`<p><test name="one"><b>x</b></test></p>
<test name="two"><div id="expected-error" data-id="E2">boom</div></test>`))
	if err != nil {
		t.Fatal(err)
	}

	merged, err := Merge(src, rendered)
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	one, _ := merged.Region("one")
	if one.Content != "<b>x</b>" || one.StartLine != 1 {
		t.Errorf("unexpected merged region %+v", one)
	}
	two, _ := merged.Region("two")
	if two.StartLine != 3 || two.Expectation == nil || two.Expectation.Message != "boom" {
		t.Errorf("unexpected merged region %+v", two)
	}

	partial, _ := Extract("a/index.html", []byte(`<test name="one"></test>`))
	if _, err := Merge(src, partial); !errors.Is(err, ErrRegionMismatch) {
		t.Fatalf("expected ErrRegionMismatch, got %v", err)
	}
	extra, _ := Extract("a/index.html", []byte(`<test name="one"></test><test name="two"></test><test name="three"></test>`))
	if _, err := Merge(src, extra); !errors.Is(err, ErrRegionMismatch) {
		t.Fatalf("expected ErrRegionMismatch for extra region, got %v", err)
	}
}

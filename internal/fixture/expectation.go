package fixture

import (
	"strings"
)

// resolveExpectation returns the expectation declared on a region. The
// top-level attribute wins; otherwise the first content holding a legacy
// marker element is used.
func resolveExpectation(attrs map[string]string, contents ...string) *Expectation {
	if msg, ok := attrs[AttrExpectedError]; ok {
		return &Expectation{ID: attrs[AttrErrorID], Message: msg}
	}
	for _, content := range contents {
		if exp := findMarker(content); exp != nil {
			return exp
		}
	}
	return nil
}

// findMarker scans content for <div id="expected-error" data-id="..."> and
// returns its id and text.
func findMarker(content string) *Expectation {
	c := newCursor([]byte(content))
	for !c.eof() {
		if c.peek() != '<' || !atOpenTag(c, markerTag) {
			c.bump()
			continue
		}
		c.advance(len(markerTag) + 1)
		attrs, selfClosing, err := parseAttrs(c)
		if err != nil || attrs["id"] != markerID {
			continue
		}
		exp := &Expectation{ID: attrs[markerDataID], Legacy: true}
		if !selfClosing {
			textStart := c.off
			for !c.eof() && !atCloseTag(c, markerTag) {
				c.bump()
			}
			exp.Message = strings.TrimSpace(string(c.src[textStart:c.off]))
		}
		if exp.Message == "" {
			exp.Message = attrs[markerError]
		}
		return exp
	}
	return nil
}

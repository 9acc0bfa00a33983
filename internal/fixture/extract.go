package fixture

import (
	"fmt"
	"strings"

	"hugotest/internal/source"
)

// Extract tokenizes src once and returns its regions in appearance order.
// A source without regions yields an empty fixture.
func Extract(path string, src []byte) (*Fixture, error) {
	src, _ = source.RemoveBOM(src)
	s := &scanner{path: path, c: newCursor(src)}
	return s.run()
}

const (
	commentOpen  = "<!--"
	commentClose = "-->"
)

type scanner struct {
	path string
	c    *cursor
}

func (s *scanner) errorf(pos source.LineCol, err error, format string, args ...any) *ParseError {
	return &ParseError{Path: s.path, Pos: pos, Err: err, Msg: fmt.Sprintf(format, args...)}
}

func (s *scanner) run() (*Fixture, error) {
	fx := newFixture(s.path)
	c := s.c
	for !c.eof() {
		if c.peek() != '<' {
			c.bump()
			continue
		}
		switch {
		case skipComment(c):
		case atOpenTag(c, TagName):
			region, err := s.region()
			if err != nil {
				return nil, err
			}
			if !fx.add(region) {
				return nil, s.errorf(region.Span.Start, ErrDuplicateName, "%q", region.Name)
			}
		case atCloseTag(c, TagName):
			return nil, s.errorf(c.pos(), ErrUnmatchedClose, "</%s>", TagName)
		default:
			c.bump()
		}
	}
	return fx, nil
}

// region consumes one <test ...>...</test> block starting at the cursor.
func (s *scanner) region() (Region, error) {
	c := s.c
	start := c.pos()
	c.advance(len(TagName) + 1)

	attrs, selfClosing, err := parseAttrs(c)
	if err != nil {
		return Region{}, s.errorf(start, err, "in <%s> tag", TagName)
	}
	name, ok := attrs[AttrName]
	if !ok || strings.TrimSpace(name) == "" {
		return Region{}, s.errorf(start, ErrMissingName, "")
	}

	region := Region{
		Name:      name,
		Attrs:     attrs,
		StartLine: start.Line,
	}
	if selfClosing {
		end := c.pos()
		region.EndLine = end.Line
		region.Span = source.Span{Start: start, End: end}
		region.Expectation = resolveExpectation(attrs)
		return region, nil
	}

	bodyStart := c.off
	for {
		if c.eof() {
			return Region{}, s.errorf(start, ErrUnterminated, "%q", name)
		}
		if c.peek() == '<' {
			if skipComment(c) {
				continue
			}
			if atOpenTag(c, TagName) {
				return Region{}, s.errorf(c.pos(), ErrNested, "inside %q", name)
			}
			if atCloseTag(c, TagName) {
				break
			}
		}
		c.bump()
	}

	region.Content = string(c.src[bodyStart:c.off])
	closePos := c.pos()
	region.EndLine = closePos.Line
	consumeCloseTag(c)
	region.Span = source.Span{Start: start, End: c.pos()}
	region.Expectation = resolveExpectation(attrs, region.Content)
	return region, nil
}

// skipComment consumes an HTML comment at the cursor and reports whether
// there was one. An unclosed comment runs to the end of the source.
func skipComment(c *cursor) bool {
	if !c.hasPrefixFold(commentOpen) {
		return false
	}
	c.advance(len(commentOpen))
	for !c.eof() {
		if c.hasPrefixFold(commentClose) {
			c.advance(len(commentClose))
			return true
		}
		c.bump()
	}
	return true
}

// atOpenTag reports whether the cursor sits on "<name" followed by a
// delimiter, so "<testimonial>" is not mistaken for a region.
func atOpenTag(c *cursor, name string) bool {
	if !c.hasPrefixFold("<" + name) {
		return false
	}
	next := c.peekAt(len(name) + 1)
	return isSpace(next) || next == '>' || next == '/'
}

func atCloseTag(c *cursor, name string) bool {
	if !c.hasPrefixFold("</" + name) {
		return false
	}
	i := len(name) + 2
	for isSpace(c.peekAt(i)) {
		i++
	}
	return c.peekAt(i) == '>'
}

func consumeCloseTag(c *cursor) {
	for !c.eof() {
		if c.bump() == '>' {
			return
		}
	}
}

// parseAttrs reads key="value" pairs up to the end of the tag. The cursor
// must be positioned right after the tag name.
func parseAttrs(c *cursor) (attrs map[string]string, selfClosing bool, err error) {
	attrs = make(map[string]string)
	for {
		c.skipSpace()
		if c.eof() {
			return nil, false, ErrUnterminated
		}
		switch c.peek() {
		case '>':
			c.bump()
			return attrs, false, nil
		case '/':
			if c.peekAt(1) != '>' {
				return nil, false, fmt.Errorf("%w: unexpected '/'", ErrMalformedTag)
			}
			c.advance(2)
			return attrs, true, nil
		}

		keyStart := c.off
		for !c.eof() && isAttrKeyByte(c.peek()) {
			c.bump()
		}
		if c.off == keyStart {
			return nil, false, fmt.Errorf("%w: unexpected %q", ErrMalformedTag, c.peek())
		}
		key := strings.ToLower(string(c.src[keyStart:c.off]))

		c.skipSpace()
		if c.peek() != '=' {
			return nil, false, fmt.Errorf("%w: attribute %q has no value", ErrMalformedTag, key)
		}
		c.bump()
		c.skipSpace()
		if c.peek() != '"' {
			return nil, false, fmt.Errorf("%w: value of %q must be double-quoted", ErrMalformedTag, key)
		}
		c.bump()
		valStart := c.off
		for !c.eof() && c.peek() != '"' {
			c.bump()
		}
		if c.eof() {
			return nil, false, ErrUnterminated
		}
		value := string(c.src[valStart:c.off])
		c.bump()

		if _, dup := attrs[key]; dup {
			return nil, false, fmt.Errorf("%w: attribute %q repeated", ErrMalformedTag, key)
		}
		attrs[key] = value
	}
}

package fixture

import (
	"fmt"

	"fortio.org/safecast"

	"hugotest/internal/source"
)

// cursor walks fixture bytes and keeps the current line and column.
type cursor struct {
	src  []byte
	off  int
	line int
	col  int
}

func newCursor(src []byte) *cursor {
	return &cursor{src: src, line: 1, col: 1}
}

func (c *cursor) eof() bool {
	return c.off >= len(c.src)
}

func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.off]
}

func (c *cursor) peekAt(n int) byte {
	if c.off+n >= len(c.src) {
		return 0
	}
	return c.src[c.off+n]
}

// bump advances one byte. A CRLF pair counts as a single line break on its
// '\n', so spans agree across line-ending conventions.
func (c *cursor) bump() byte {
	if c.eof() {
		return 0
	}
	b := c.src[c.off]
	c.off++
	if b == '\n' {
		c.line++
		c.col = 1
	} else {
		c.col++
	}
	return b
}

func (c *cursor) advance(n int) {
	for i := 0; i < n && !c.eof(); i++ {
		c.bump()
	}
}

func (c *cursor) skipSpace() {
	for !c.eof() && isSpace(c.peek()) {
		c.bump()
	}
}

// hasPrefixFold reports whether the remaining input starts with s, ignoring
// ASCII case.
func (c *cursor) hasPrefixFold(s string) bool {
	if len(c.src)-c.off < len(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if lowerASCII(c.src[c.off+i]) != lowerASCII(s[i]) {
			return false
		}
	}
	return true
}

func (c *cursor) pos() source.LineCol {
	line, err := safecast.Conv[uint32](c.line)
	if err != nil {
		panic(fmt.Errorf("line overflow: %w", err))
	}
	col, err := safecast.Conv[uint32](c.col)
	if err != nil {
		panic(fmt.Errorf("column overflow: %w", err))
	}
	return source.LineCol{Line: line, Col: col}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

func isAttrKeyByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '-', b == '_', b == ':', b == '.':
		return true
	}
	return false
}

func lowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

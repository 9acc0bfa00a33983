package fixture

import (
	"errors"
	"fmt"

	"hugotest/internal/source"
)

var (
	// ErrUnterminated reports a region or tag that never closes.
	ErrUnterminated = errors.New("unterminated test region")
	// ErrUnmatchedClose reports a closing tag without an open region.
	ErrUnmatchedClose = errors.New("closing tag without matching open tag")
	// ErrNested reports an opening tag inside another region.
	ErrNested = errors.New("test regions cannot be nested")
	// ErrMissingName reports a region without a name attribute.
	ErrMissingName = errors.New("test region has no name")
	// ErrDuplicateName reports two regions sharing a name.
	ErrDuplicateName = errors.New("duplicate test region name")
	// ErrMalformedTag reports attribute syntax that cannot be parsed.
	ErrMalformedTag = errors.New("malformed tag")
	// ErrRegionMismatch reports regions that differ between source and build output.
	ErrRegionMismatch = errors.New("regions differ between source and build output")
)

// ParseError is a hard failure while extracting regions.
type ParseError struct {
	Path string
	Pos  source.LineCol
	Err  error
	Msg  string
}

func (e *ParseError) Error() string {
	msg := e.Err.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Path == "" {
		return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Col, msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Pos.Line, e.Pos.Col, msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Package correlate attributes parsed diagnostics to the test regions that
// caused them.
//
// Two strategies exist. Line-span correlation matches an ERROR record to the
// region whose line span contains it. Id pairing serves builder versions
// that report no positions: a WARN carrying "id|expected text" is paired
// with an ERROR, and regions claim pairs by their error id.
package correlate

import (
	"fmt"
	"strings"

	"hugotest/internal/diag"
)

// Mode selects the correlation strategy.
type Mode uint8

const (
	ModeAuto Mode = iota
	ModeLineSpan
	ModeIDPairing
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeLineSpan:
		return "line"
	case ModeIDPairing:
		return "id"
	}
	return "unknown"
}

// ParseMode converts a configuration value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "line", "line-span":
		return ModeLineSpan, nil
	case "id", "id-pairing":
		return ModeIDPairing, nil
	}
	return ModeAuto, fmt.Errorf("invalid correlation mode %q (expected: auto|line|id)", s)
}

// Resolve replaces ModeAuto with the strategy suited to format. Records
// without positions can only be paired by id.
func (m Mode) Resolve(format diag.Format) Mode {
	if m != ModeAuto {
		return m
	}
	if format == diag.FormatLegacy {
		return ModeIDPairing
	}
	return ModeLineSpan
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Strategy selects how WARN records are paired with ERROR records.
type Strategy uint8

const (
	// PairNext pairs a WARN with the record immediately following it when
	// that record is an ERROR.
	PairNext Strategy = iota
	// PairByMessage pairs a WARN with the first later unconsumed ERROR whose
	// message equals the WARN text after the separator.
	PairByMessage
)

func (s Strategy) String() string {
	if s == PairByMessage {
		return "message"
	}
	return "next"
}

// ParseStrategy converts a configuration value into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "next":
		return PairNext, nil
	case "message":
		return PairByMessage, nil
	}
	return PairNext, fmt.Errorf("invalid pairing strategy %q (expected: next|message)", s)
}

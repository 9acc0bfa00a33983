package diag

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
)

// Format identifies a log line layout of the builder.
type Format uint8

const (
	// FormatLegacy is "LEVEL TS... path: message" without positions.
	FormatLegacy Format = iota + 1
	// FormatPositional is `LEVEL TS... "path:line:col": message`.
	FormatPositional
)

// positionalSince is the first builder release that quotes positions.
var positionalSince = semver.MustParse("0.114.0")

func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatPositional:
		return "positional"
	}
	return "unknown"
}

// ParseFormat converts a configuration value into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy":
		return FormatLegacy, nil
	case "positional":
		return FormatPositional, nil
	}
	return 0, fmt.Errorf("invalid diagnostic format %q (expected: legacy|positional)", s)
}

// FormatForVersion picks the layout used by the given builder version.
// A nil version means the probe failed; the newer layout is assumed.
func FormatForVersion(v *semver.Version) Format {
	if v == nil {
		return FormatPositional
	}
	if v.LessThan(positionalSince) {
		return FormatLegacy
	}
	return FormatPositional
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

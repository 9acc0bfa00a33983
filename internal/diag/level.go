package diag

import (
	"fmt"
	"strings"
)

// Level is the severity reported by the builder.
type Level uint8

const (
	// LevelInfo lines are never retained.
	LevelInfo Level = iota
	// LevelWarn lines are retained only when they carry the sentinel.
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ParseLevel recognizes the level token at the start of a log line.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(s) {
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	lv, ok := ParseLevel(string(b))
	if !ok {
		return fmt.Errorf("unknown level %q", string(b))
	}
	*l = lv
	return nil
}

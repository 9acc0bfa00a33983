package diag

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"hugotest/internal/source"
)

// DefaultSentinel marks a WARN line as an intentionally expected test
// diagnostic.
const DefaultSentinel = "hugotest-expected-error"

// progressPrefix is printed by the builder before the first log line.
const progressPrefix = "Building sites … "

var (
	datePattern = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?$`)
)

// Parser converts single log lines into records. The zero value is not
// usable; construct it with NewParser.
type Parser struct {
	format      Format
	sentinel    string
	contentRoot string
	strip       *regexp.Regexp
}

// NewParser returns a parser for one build run. contentRoot is the absolute
// directory every attributed file must resolve under.
func NewParser(format Format, sentinel, contentRoot string) *Parser {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	quoted := regexp.QuoteMeta(sentinel)
	return &Parser{
		format:      format,
		sentinel:    strings.ToLower(sentinel),
		contentRoot: contentRoot,
		strip:       regexp.MustCompile(`(?i)\s*'?` + quoted + `'?\s*`),
	}
}

// Format returns the layout the parser was built for.
func (p *Parser) Format() Format {
	return p.format
}

// ParseLine returns the record for line, or false when the line is not a
// retained diagnostic. Lines that pass the level filter but match no known
// layout come back as unattributable records.
func (p *Parser) ParseLine(line string) (Record, bool) {
	line = strings.TrimRight(line, "\r")
	line = strings.TrimPrefix(line, progressPrefix)

	levelToken, rest, _ := strings.Cut(line, " ")
	level, ok := ParseLevel(levelToken)
	if !ok || !p.retain(level, rest) {
		return Record{}, false
	}

	rec := Record{Level: level, Raw: line}
	rest = skipTimestamps(rest)

	var (
		file    string
		msg     string
		matched bool
	)
	switch p.format {
	case FormatPositional:
		file, rec.Line, rec.Column, msg, matched = parsePositional(rest)
	default:
		file, msg, matched = parseLegacy(rest)
	}
	if !matched {
		rec.Message = p.stripSentinel(rest)
		return rec, true
	}

	rec.Message = p.stripSentinel(msg)
	if rel, ok := p.resolve(file); ok {
		rec.File = rel
	}
	return rec, true
}

// retain is the cheap filter applied before structural parsing.
func (p *Parser) retain(level Level, rest string) bool {
	switch level {
	case LevelError:
		return true
	case LevelWarn:
		return strings.Contains(strings.ToLower(rest), p.sentinel)
	}
	return false
}

func (p *Parser) stripSentinel(msg string) string {
	return strings.TrimSpace(p.strip.ReplaceAllString(msg, " "))
}

func (p *Parser) resolve(file string) (string, bool) {
	if p.contentRoot != "" {
		return source.Under(p.contentRoot, file)
	}
	if filepath.IsAbs(file) {
		return "", false
	}
	rel := source.NormalizePath(file)
	if rel == "" || rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// skipTimestamps drops any leading date and time tokens.
func skipTimestamps(s string) string {
	for {
		s = strings.TrimLeft(s, " \t")
		tok, rest, _ := strings.Cut(s, " ")
		if !datePattern.MatchString(tok) && !timePattern.MatchString(tok) {
			return s
		}
		s = rest
	}
}

// parseLegacy reads "path: message".
func parseLegacy(s string) (file, msg string, ok bool) {
	tok, rest, _ := strings.Cut(s, " ")
	if !strings.HasSuffix(tok, ":") || len(tok) < 2 {
		return "", "", false
	}
	return strings.TrimSuffix(tok, ":"), strings.TrimSpace(rest), true
}

// parsePositional reads `"path:line[:col]": message`.
func parsePositional(s string) (file string, line, col uint32, msg string, ok bool) {
	if !strings.HasPrefix(s, `"`) {
		return "", 0, 0, "", false
	}
	end := strings.Index(s, `":`)
	if end < 0 {
		return "", 0, 0, "", false
	}
	loc := s[1:end]
	msg = strings.TrimSpace(s[end+2:])

	// Positions are peeled from the right so drive letters survive.
	var nums []uint32
	for range 2 {
		idx := strings.LastIndexByte(loc, ':')
		if idx < 0 {
			break
		}
		n, err := strconv.ParseUint(loc[idx+1:], 10, 32)
		if err != nil {
			break
		}
		nums = append([]uint32{uint32(n)}, nums...)
		loc = loc[:idx]
	}
	if len(nums) == 0 || loc == "" {
		return "", 0, 0, "", false
	}
	line = nums[0]
	if len(nums) == 2 {
		col = nums[1]
	}
	return loc, line, col, msg, true
}

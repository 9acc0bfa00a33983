package diag

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Group is the ordered sequence of records attributed to one file.
type Group struct {
	File    string
	Records []Record
}

// Errors returns the ERROR records of the group in emission order.
func (g *Group) Errors() []Record {
	if g == nil {
		return nil
	}
	out := make([]Record, 0, len(g.Records))
	for _, r := range g.Records {
		if r.Level == LevelError {
			out = append(out, r)
		}
	}
	return out
}

// HasErrors reports whether the group holds at least one ERROR record.
func (g *Group) HasErrors() bool {
	if g == nil {
		return false
	}
	for i := range g.Records {
		if g.Records[i].Level >= LevelError {
			return true
		}
	}
	return false
}

// Len returns the number of records.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Records)
}

// Output is the parsed transcript of one build run.
type Output struct {
	groups         map[string]*Group
	Unattributable []Record
}

// NewOutput returns an empty Output.
func NewOutput() *Output {
	return &Output{groups: make(map[string]*Group)}
}

// Add appends rec to its file group, or to the unattributable list.
func (o *Output) Add(rec Record) {
	if !rec.Attributable() {
		o.Unattributable = append(o.Unattributable, rec)
		return
	}
	g, ok := o.groups[rec.File]
	if !ok {
		g = &Group{File: rec.File}
		o.groups[rec.File] = g
	}
	g.Records = append(g.Records, rec)
}

// Group returns the records for file.
func (o *Output) Group(file string) (*Group, bool) {
	g, ok := o.groups[file]
	return g, ok
}

// Files returns the attributed file paths in sorted order.
func (o *Output) Files() []string {
	files := make([]string, 0, len(o.groups))
	for f := range o.groups {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Len returns the number of attributed records.
func (o *Output) Len() int {
	n := 0
	for _, g := range o.groups {
		n += len(g.Records)
	}
	return n
}

// Quarantine moves the groups of files that are not known fixtures into the
// unattributable list.
func (o *Output) Quarantine(known func(file string) bool) {
	for _, file := range o.Files() {
		if known(file) {
			continue
		}
		g := o.groups[file]
		o.Unattributable = append(o.Unattributable, g.Records...)
		delete(o.groups, file)
	}
}

// ParseOutput reads a build transcript line by line.
func (p *Parser) ParseOutput(r io.Reader) (*Output, error) {
	out := NewOutput()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if rec, ok := p.ParseLine(line); ok {
			out.Add(rec)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read build output: %w", err)
	}
	return out, nil
}

// HasMarkers reports whether transcript contains at least one ERROR line.
// The build phase uses it to tell diagnostic failures from crashes.
func HasMarkers(transcript string) bool {
	for line := range strings.Lines(transcript) {
		line = strings.TrimPrefix(strings.TrimSpace(line), progressPrefix)
		if tok, _, _ := strings.Cut(line, " "); strings.EqualFold(tok, "ERROR") {
			return true
		}
	}
	return false
}

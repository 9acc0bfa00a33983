package correlate

import (
	"hugotest/internal/diag"
	"hugotest/internal/fixture"
)

// Match is the diagnostic attributed to one region.
type Match struct {
	Region string
	// Actual is the message the builder emitted for the region.
	Actual string
	// Record is the ERROR record in line-span mode; in id-pairing mode it is
	// rebuilt from the pair.
	Record diag.Record
	// Expected is the WARN text of the pair in id-pairing mode.
	Expected string
}

// Result is the outcome of correlating one fixture.
type Result struct {
	Mode    Mode
	matches map[string]Match
	// Unknown holds diagnostics no region accounts for.
	Unknown []diag.Record
	// Ignored holds bookkeeping records and second matches of a region.
	Ignored []diag.Record
}

func newResult(mode Mode) *Result {
	return &Result{Mode: mode, matches: make(map[string]Match)}
}

// Match returns the diagnostic attributed to the named region.
func (r *Result) Match(region string) (Match, bool) {
	if r == nil {
		return Match{}, false
	}
	m, ok := r.matches[region]
	return m, ok
}

// Len returns the number of matched regions.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.matches)
}

// claim records m unless its region already has a match.
func (r *Result) claim(m Match) bool {
	if _, taken := r.matches[m.Region]; taken {
		r.Ignored = append(r.Ignored, m.Record)
		return false
	}
	r.matches[m.Region] = m
	return true
}

// Unexpected returns the matched records of regions that declare no
// expectation: the build failed inside a region meant to render.
func (r *Result) Unexpected(regions []fixture.Region) []diag.Record {
	if r == nil {
		return nil
	}
	var out []diag.Record
	for i := range regions {
		if regions[i].Expectation != nil {
			continue
		}
		if m, ok := r.matches[regions[i].Name]; ok {
			out = append(out, m.Record)
		}
	}
	return out
}

// Correlate runs the strategy selected by mode. records is the emission
// ordered group of one file; pairs is only consulted in id-pairing mode
// and is built from records when nil.
func Correlate(mode Mode, regions []fixture.Region, file string, records []diag.Record, pairs []diag.Pair, strategy Strategy) *Result {
	if mode != ModeIDPairing {
		return ByLineSpan(regions, records)
	}
	var stray []diag.Record
	if pairs == nil {
		pairs, stray = BuildPairs(records, strategy)
	} else {
		stray = Stray(records, pairs)
	}
	res := ByID(regions, file, pairs)
	res.Unknown = append(res.Unknown, stray...)
	return res
}

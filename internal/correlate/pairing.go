package correlate

import (
	"strings"

	"hugotest/internal/diag"
	"hugotest/internal/fixture"
)

// IDSeparator separates the error id from the expected text in a WARN.
const IDSeparator = "|"

// BuildPairs groups the emission ordered records of one file into
// expected/actual pairs. A WARN that finds no ERROR yields an unmatched
// pair. ERROR records that no WARN claims are returned as stray.
func BuildPairs(records []diag.Record, strategy Strategy) (pairs []diag.Pair, stray []diag.Record) {
	consumed := make([]bool, len(records))
	for i, rec := range records {
		if consumed[i] || rec.Level != diag.LevelWarn {
			continue
		}
		consumed[i] = true
		pair := diag.Pair{Expected: rec.Message}
		if j := partnerOf(records, consumed, i, strategy); j >= 0 {
			consumed[j] = true
			pair.Actual = records[j].Message
			pair.Matched = true
		}
		pairs = append(pairs, pair)
	}
	for i, rec := range records {
		if !consumed[i] && rec.Level == diag.LevelError {
			stray = append(stray, rec)
		}
	}
	return pairs, stray
}

func partnerOf(records []diag.Record, consumed []bool, warn int, strategy Strategy) int {
	switch strategy {
	case PairByMessage:
		_, want, _ := strings.Cut(records[warn].Message, IDSeparator)
		for j := warn + 1; j < len(records); j++ {
			if !consumed[j] && records[j].Level == diag.LevelError && records[j].Message == want {
				return j
			}
		}
	default:
		if next := warn + 1; next < len(records) && !consumed[next] && records[next].Level == diag.LevelError {
			return next
		}
	}
	return -1
}

// ByID lets each region with an error id claim the first unconsumed pair
// whose expected text starts with "id|". Regions are visited in
// appearance order, so regions expecting the same text receive distinct
// pairs. A claimed pair without an ERROR leaves the region unmatched.
// Unclaimed pairs carrying a known id are ignored; other unclaimed pairs
// with an ERROR go to Unknown.
func ByID(regions []fixture.Region, file string, pairs []diag.Pair) *Result {
	res := newResult(ModeIDPairing)
	consumed := make([]bool, len(pairs))
	known := make(map[string]struct{}, len(regions))
	for i := range regions {
		id := regions[i].ErrorID()
		if id == "" {
			continue
		}
		known[id] = struct{}{}
		prefix := id + IDSeparator
		for j, p := range pairs {
			if consumed[j] || !strings.HasPrefix(p.Expected, prefix) {
				continue
			}
			consumed[j] = true
			if p.Matched {
				res.claim(Match{
					Region:   regions[i].Name,
					Actual:   p.Actual,
					Expected: p.Expected,
					Record:   pairRecord(file, p),
				})
			}
			break
		}
	}
	for j, p := range pairs {
		if consumed[j] {
			continue
		}
		id, _, _ := strings.Cut(p.Expected, IDSeparator)
		if _, ok := known[id]; ok && p.Matched {
			res.Ignored = append(res.Ignored, pairRecord(file, p))
			continue
		}
		if p.Matched {
			res.Unknown = append(res.Unknown, pairRecord(file, p))
		} else {
			res.Ignored = append(res.Ignored, diag.Record{Level: diag.LevelWarn, File: file, Message: p.Expected})
		}
	}
	return res
}

func pairRecord(file string, p diag.Pair) diag.Record {
	return diag.Record{Level: diag.LevelError, File: file, Message: p.Actual}
}

// Stray returns the ERROR records of records that no matched pair accounts
// for. It recovers the stray list when pairs were persisted.
func Stray(records []diag.Record, pairs []diag.Pair) []diag.Record {
	claimed := make(map[string]int, len(pairs))
	for _, p := range pairs {
		if p.Matched {
			claimed[p.Actual]++
		}
	}
	var out []diag.Record
	for _, rec := range records {
		if rec.Level != diag.LevelError {
			continue
		}
		if claimed[rec.Message] > 0 {
			claimed[rec.Message]--
			continue
		}
		out = append(out, rec)
	}
	return out
}

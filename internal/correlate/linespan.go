package correlate

import (
	"sort"

	"hugotest/internal/diag"
	"hugotest/internal/fixture"
)

// ByLineSpan attributes each ERROR record to the region whose span contains
// its line. Records are visited in emission order, so the first diagnostic
// of a region wins and later ones are ignored. ERROR records outside every
// span, without a line, or on a line shared by two regions go to Unknown.
func ByLineSpan(regions []fixture.Region, records []diag.Record) *Result {
	res := newResult(ModeLineSpan)
	spans := sortedSpans(regions)
	for _, rec := range records {
		if rec.Level != diag.LevelError {
			res.Ignored = append(res.Ignored, rec)
			continue
		}
		idx := spans.find(rec.Line)
		if idx < 0 {
			res.Unknown = append(res.Unknown, rec)
			continue
		}
		res.claim(Match{Region: regions[idx].Name, Actual: rec.Message, Record: rec})
	}
	return res
}

type spanIndex struct {
	order   []int
	regions []fixture.Region
}

func sortedSpans(regions []fixture.Region) spanIndex {
	order := make([]int, len(regions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return regions[order[a]].StartLine < regions[order[b]].StartLine
	})
	return spanIndex{order: order, regions: regions}
}

// find returns the index of the only region containing line, or -1 when
// no region or more than one does.
func (s spanIndex) find(line uint32) int {
	if line == 0 {
		return -1
	}
	// first region starting after line
	n := sort.Search(len(s.order), func(i int) bool {
		return s.regions[s.order[i]].StartLine > line
	})
	if n == 0 {
		return -1
	}
	idx := s.order[n-1]
	if !s.regions[idx].Contains(line) {
		return -1
	}
	// regions never nest, so only the previous one can share the line
	if n > 1 && s.regions[s.order[n-2]].Contains(line) {
		return -1
	}
	return idx
}

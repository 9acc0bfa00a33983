package fixture

import (
	"fmt"
	"maps"
)

// Merge joins the regions parsed from a fixture source with the regions
// found in its rendered build output. Spans and attributes come from src,
// content from rendered. Every region must exist on both sides.
func Merge(src, rendered *Fixture) (*Fixture, error) {
	out := newFixture(src.Path)
	for i := range src.Regions {
		sr := src.Regions[i]
		rr, ok := rendered.Region(sr.Name)
		if !ok {
			return nil, &ParseError{
				Path: src.Path,
				Pos:  sr.Span.Start,
				Err:  ErrRegionMismatch,
				Msg:  fmt.Sprintf("%q not found in %s", sr.Name, rendered.Path),
			}
		}

		merged := sr
		merged.Content = rr.Content
		merged.Attrs = maps.Clone(sr.Attrs)
		for k, v := range rr.Attrs {
			if _, ok := merged.Attrs[k]; !ok {
				merged.Attrs[k] = v
			}
		}
		merged.Expectation = resolveExpectation(merged.Attrs, rr.Content, sr.Content)
		out.add(merged)
	}

	for i := range rendered.Regions {
		name := rendered.Regions[i].Name
		if _, ok := src.Region(name); !ok {
			return nil, &ParseError{
				Path: rendered.Path,
				Pos:  rendered.Regions[i].Span.Start,
				Err:  ErrRegionMismatch,
				Msg:  fmt.Sprintf("%q has no counterpart in %s", name, src.Path),
			}
		}
	}
	return out, nil
}

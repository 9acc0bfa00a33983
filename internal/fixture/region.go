// Package fixture extracts named test regions from Hugo content files.
//
// A fixture is a content file that wraps each test case in a custom tag:
//
//	<test name="renders a link">
//	  {{< link href="/a" >}}
//	</test>
//
// Recognized attributes on the tag are "name" (required, unique within the
// fixture), "error-id" and "expected-error". Older fixtures carry the
// expectation as a marker element inside the body instead:
//
//	<div id="expected-error" data-id="E1">bad ref</div>
package fixture

import (
	"sort"

	"hugotest/internal/source"
)

const (
	// TagName is the custom tag delimiting a test region.
	TagName = "test"
	// AttrName holds the region name.
	AttrName = "name"
	// AttrErrorID holds the identifier of the expected diagnostic.
	AttrErrorID = "error-id"
	// AttrExpectedError holds the expected diagnostic message.
	AttrExpectedError = "expected-error"

	markerTag    = "div"
	markerID     = "expected-error"
	markerDataID = "data-id"
	markerError  = "data-error"
)

// Expectation describes the diagnostic a region expects the build to emit.
type Expectation struct {
	ID      string
	Message string
	// Legacy is set when the expectation came from an embedded marker element.
	Legacy bool
}

// Region is one named test case inside a fixture.
type Region struct {
	Name    string
	Content string
	Attrs   map[string]string
	// StartLine and EndLine are the 1-based lines of the opening and closing
	// tag in the original source.
	StartLine uint32
	EndLine   uint32
	Span      source.Span

	Expectation *Expectation
}

// Contains reports whether line lies within the region's span.
func (r *Region) Contains(line uint32) bool {
	return line >= r.StartLine && line <= r.EndLine
}

// ErrorID returns the configured error identifier, if any.
func (r *Region) ErrorID() string {
	if r.Expectation != nil && r.Expectation.ID != "" {
		return r.Expectation.ID
	}
	return r.Attrs[AttrErrorID]
}

// Fixture is the ordered set of regions found in one file.
type Fixture struct {
	Path    string
	Regions []Region
	index   map[string]int
}

func newFixture(path string) *Fixture {
	return &Fixture{
		Path:    path,
		Regions: make([]Region, 0),
		index:   make(map[string]int),
	}
}

func (f *Fixture) add(r Region) bool {
	if _, dup := f.index[r.Name]; dup {
		return false
	}
	f.index[r.Name] = len(f.Regions)
	f.Regions = append(f.Regions, r)
	return true
}

// Len returns the number of regions.
func (f *Fixture) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Regions)
}

// Region looks up a region by name.
func (f *Fixture) Region(name string) (*Region, bool) {
	if f == nil {
		return nil, false
	}
	idx, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return &f.Regions[idx], true
}

// Names returns the region names in appearance order.
func (f *Fixture) Names() []string {
	if f == nil {
		return nil
	}
	names := make([]string, len(f.Regions))
	for i := range f.Regions {
		names[i] = f.Regions[i].Name
	}
	return names
}

// AttrKeys returns the attribute keys of r in sorted order.
func (r *Region) AttrKeys() []string {
	keys := make([]string, 0, len(r.Attrs))
	for k := range r.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

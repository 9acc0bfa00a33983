package trace

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// FieldFixture is the span field naming the fixture a span processed.
const FieldFixture = "fixture"

// RingTracer holds the newest events of an error-level run so a failed
// run can print what led up to the failure.
type RingTracer struct {
	mu      sync.Mutex
	buf     []Event
	next    int
	wrapped bool
	dropped uint64
	level   Level
}

// NewRingTracer returns a ring holding capacity events; a non-positive
// capacity selects 4096.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{buf: make([]Event, capacity), level: level}
}

// Emit stores a copy of ev. Heartbeats pass any level so a stuck build is
// visible in the dump.
func (t *RingTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.wrapped {
		t.dropped++
	}
	stored := *ev
	stored.Seq = NextSeq()
	t.buf[t.next] = stored
	t.next++
	if t.next == len(t.buf) {
		t.next = 0
		t.wrapped = true
	}
}

// Snapshot returns the held events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.wrapped {
		return append([]Event(nil), t.buf[:t.next]...)
	}
	out := make([]Event, 0, len(t.buf))
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}

// Dropped returns how many events were overwritten.
func (t *RingTracer) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// FailedFixtures lists, in event order, the fixtures whose span ended
// with an error detail.
func (t *RingTracer) FailedFixtures() []string {
	var out []string
	seen := make(map[string]bool)
	for _, ev := range t.Snapshot() {
		if ev.Kind != KindSpanEnd || ev.Scope != ScopeFixture || !strings.HasPrefix(ev.Detail, "error") {
			continue
		}
		name := ev.Fields[FieldFixture]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Dump writes the failed fixtures, the number of dropped events and then
// every held event to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	if failed := t.FailedFixtures(); len(failed) > 0 {
		if _, err := fmt.Fprintf(w, "# failed fixtures: %s\n", strings.Join(failed, ", ")); err != nil {
			return err
		}
	}
	if n := t.Dropped(); n > 0 {
		if _, err := fmt.Fprintf(w, "# %d earlier events dropped\n", n); err != nil {
			return err
		}
	}
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error { return nil }

func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level { return t.level }

func (t *RingTracer) Enabled() bool { return t.level > LevelOff }

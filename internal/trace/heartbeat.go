package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits periodic events while a long operation runs, so a hung
// build shows up as heartbeats without a closing span.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	name     string
	stopCh   chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// StartHeartbeat starts emitting heartbeats named name every interval.
// It returns nil when tracing is disabled or interval is not positive.
func StartHeartbeat(t Tracer, name string, interval time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   t,
		interval: interval,
		name:     name,
		stopCh:   make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	started := time.Now()
	var beats uint64
	for {
		select {
		case <-ticker.C:
			beats++
			h.tracer.Emit(&Event{
				Time:   time.Now(),
				Kind:   KindHeartbeat,
				Scope:  ScopePhase,
				Name:   h.name,
				Detail: fmt.Sprintf("#%d after %s", beats, time.Since(started).Round(time.Second)),
			})
		case <-h.stopCh:
			return
		}
	}
}

// Stop ends the heartbeat goroutine and waits for it. Safe on nil.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stopCh) })
	h.wg.Wait()
}

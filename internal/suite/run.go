package suite

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"hugotest/internal/diag"
	"hugotest/internal/observ"
)

// Report collects the outcome of a materialization run.
type Report struct {
	Outcomes []*Outcome
	// Unknown and Unexpected aggregate the per-fixture buckets in fixture
	// order.
	Unknown    []diag.Record
	Unexpected []diag.Record
	Elapsed    time.Duration
}

// Suites returns the number of fixtures that produced a suite.
func (r *Report) Suites() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil && !o.Skipped {
			n++
		}
	}
	return n
}

// Cached returns the number of suites served from the cache.
func (r *Report) Cached() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Cached {
			n++
		}
	}
	return n
}

// Timings sums the per-fixture timings.
func (r *Report) Timings() observ.Report {
	reports := make([]observ.Report, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		reports = append(reports, o.Timing)
	}
	return observ.Aggregate(reports...)
}

// Err reports diagnostics no region accounts for. It returns nil when every
// diagnostic was claimed.
func (r *Report) Err() error {
	records := make([]diag.Record, 0, len(r.Unknown)+len(r.Unexpected))
	records = append(records, r.Unknown...)
	records = append(records, r.Unexpected...)
	return diag.CheckAttributed(records)
}

// MaterializeAll runs Process over fixtures with at most jobs workers.
// Per-fixture failures are recorded on their outcome and joined into the
// returned error; the report is always complete.
func MaterializeAll(ctx context.Context, sctx *Context, fixtures []string, jobs int, sink ProgressSink) (*Report, error) {
	start := time.Now()
	rep := &Report{Outcomes: make([]*Outcome, len(fixtures))}
	if len(fixtures) == 0 {
		return rep, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	for _, f := range fixtures {
		emit(sink, Event{File: f, Stage: StageExtract, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(fixtures)))

	for i, f := range fixtures {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				rep.Outcomes[i] = &Outcome{Path: f, Err: gctx.Err()}
				return gctx.Err()
			default:
			}

			emit(sink, Event{File: f, Stage: StageExtract, Status: StatusWorking})
			fstart := time.Now()
			out, err := Process(gctx, sctx, f)
			if out == nil {
				out = &Outcome{Path: f}
			}
			out.Err = err
			rep.Outcomes[i] = out

			evt := Event{File: f, Stage: StageMaterialize, Status: StatusDone, Elapsed: time.Since(fstart)}
			switch {
			case err != nil:
				evt.Status = StatusError
				evt.Err = err
			case out.Skipped:
				evt.Status = StatusSkipped
			case out.Cached:
				evt.Status = StatusCached
			}
			emit(sink, evt)
			// a broken fixture must not stop the others
			return nil
		})
	}
	waitErr := g.Wait()

	sort.SliceStable(rep.Outcomes, func(i, j int) bool {
		return rep.Outcomes[i].Path < rep.Outcomes[j].Path
	})
	var errs []error
	for _, o := range rep.Outcomes {
		if o.Err != nil {
			name := o.Rel
			if name == "" {
				name = o.Path
			}
			errs = append(errs, fmt.Errorf("%s: %w", name, o.Err))
			continue
		}
		rep.Unknown = append(rep.Unknown, o.Unknown...)
		rep.Unexpected = append(rep.Unexpected, o.Unexpected...)
	}
	rep.Elapsed = time.Since(start)

	if waitErr != nil && ctx.Err() != nil {
		return rep, ctx.Err()
	}
	return rep, errors.Join(errs...)
}

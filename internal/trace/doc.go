// Package trace records what a hugotest run is doing: the setup phase,
// the single site build, diagnostic parsing and the processing of every
// fixture.
//
// Enable it from the command line:
//
//	hugotest test --trace=- --trace-level=detail
//
// Levels control verbosity:
//
//   - LevelOff: no tracing
//   - LevelError: events are kept in memory and dumped only when the run fails
//   - LevelPhase: run and phase boundaries (setup, build, parse, materialize)
//   - LevelDetail: one span per fixture
//   - LevelDebug: everything, including per-region events
//
// Tracers travel through the pipeline in a context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span, ctx := trace.Start(ctx, trace.ScopePhase, "build")
//	defer span.End("")
package trace

package suite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"hugotest/internal/cache"
	"hugotest/internal/cachekey"
	"hugotest/internal/correlate"
	"hugotest/internal/diag"
	"hugotest/internal/fixture"
	"hugotest/internal/hugo"
	"hugotest/internal/materialize"
	"hugotest/internal/observ"
	"hugotest/internal/trace"
)

// ErrArtifactMissing is returned when a rendered fixture has no output page.
var ErrArtifactMissing = errors.New("build artifact not found")

// Outcome is the result of processing one fixture.
type Outcome struct {
	Path     string // absolute fixture path
	Rel      string // content-relative slash path
	Artifact string
	Key      cachekey.Key
	Suite    materialize.Suite
	Cached   bool
	// Skipped is set for fixtures the builder does not render.
	Skipped    bool
	SkipReason string
	// Unknown holds diagnostics of the fixture no region accounts for.
	Unknown []diag.Record
	// Unexpected holds diagnostics that fell into regions expecting none.
	Unexpected []diag.Record
	Timing     observ.Report
	Err        error
}

// Process extracts, correlates and materializes one fixture. State is local
// to the call; sctx is only read.
func Process(ctx context.Context, sctx *Context, fixturePath string) (_ *Outcome, err error) {
	span, ctx := trace.Start(ctx, trace.ScopeFixture, "fixture")
	timer := observ.NewTimer()
	out := &Outcome{Path: fixturePath}
	defer func() {
		out.Timing = timer.Report()
		detail := outcomeDetail(out)
		if err != nil {
			detail = "error: " + err.Error()
		}
		span.With(trace.FieldFixture, out.Rel).End(detail)
	}()

	rel, err := sctx.Rel(fixturePath)
	if err != nil {
		return out, err
	}
	out.Rel = rel

	idx := timer.Begin("read")
	src, err := os.ReadFile(fixturePath)
	if err != nil {
		timer.End(idx, "error")
		return out, fmt.Errorf("failed to read fixture: %w", err)
	}
	fm, err := fixture.ParseFrontMatter(src)
	if err != nil {
		timer.End(idx, "error")
		return out, err
	}
	if !fm.Rendered() {
		timer.End(idx, "skipped")
		out.Skipped = true
		out.SkipReason = "not rendered (draft or build.render = never)"
		return out, nil
	}

	artifactPath, err := hugo.ArtifactPath(sctx.ContentDir, sctx.OutputDir, rel)
	if err != nil {
		timer.End(idx, "error")
		return out, err
	}
	out.Artifact = artifactPath
	artifact, err := os.ReadFile(artifactPath)
	if err != nil {
		timer.End(idx, "error")
		if errors.Is(err, os.ErrNotExist) {
			return out, fmt.Errorf("%w: %s", ErrArtifactMissing, artifactPath)
		}
		return out, fmt.Errorf("failed to read build artifact: %w", err)
	}
	timer.End(idx, "")

	out.Key = cachekey.Build(cachekey.Inputs{
		Source:       src,
		FixturePath:  fixturePath,
		ArtifactPath: artifactPath,
		Artifact:     artifact,
		Config:       sctx.KeyConfig(),
	})

	sc := sctx.SideChannel()
	records := sc.Records(rel)
	pairs := sc.FilePairs(rel)
	digest := cache.DiagDigest(records, pairs)

	idx = timer.Begin("cache")
	entry, hit, err := sctx.Cache.Get(out.Key, digest)
	if err != nil {
		trace.Point(trace.FromContext(ctx), trace.ScopeFixture, "cache-error", err.Error())
	}
	if hit {
		timer.End(idx, "hit")
		out.Cached = true
		out.Suite = entry.Suite
		out.Unknown = entry.Unknown
		out.Unexpected = entry.Unexpected
		return out, nil
	}
	timer.End(idx, "miss")

	idx = timer.Begin("extract")
	merged, err := extract(fixturePath, src, artifactPath, artifact)
	if err != nil {
		timer.End(idx, "error")
		return out, err
	}
	timer.End(idx, fmt.Sprintf("%d regions", merged.Len()))

	idx = timer.Begin("correlate")
	res := correlate.Correlate(sctx.Mode, merged.Regions, rel, records, pairs, sctx.Pairing)
	out.Unknown = res.Unknown
	out.Unexpected = res.Unexpected(merged.Regions)
	timer.End(idx, fmt.Sprintf("%d matched", res.Len()))

	idx = timer.Begin("materialize")
	out.Suite = materialize.Suite{
		Name:      hugo.GroupName(artifactPath),
		Fixture:   rel,
		Snapshots: sctx.SnapshotFile(rel),
		Tests:     materialize.Materialize(merged.Regions, res),
	}
	timer.End(idx, "")

	if err := sctx.Cache.Put(out.Key, &cache.Entry{
		Fixture:    rel,
		Suite:      out.Suite,
		DiagDigest: digest,
		Unknown:    out.Unknown,
		Unexpected: out.Unexpected,
		Created:    time.Now(),
	}); err != nil {
		trace.Point(trace.FromContext(ctx), trace.ScopeFixture, "cache-error", err.Error())
	}
	return out, nil
}

func extract(fixturePath string, src []byte, artifactPath string, artifact []byte) (*fixture.Fixture, error) {
	srcFx, err := fixture.Extract(fixturePath, src)
	if err != nil {
		return nil, err
	}
	renderedFx, err := fixture.Extract(artifactPath, artifact)
	if err != nil {
		return nil, err
	}
	return fixture.Merge(srcFx, renderedFx)
}

func outcomeDetail(o *Outcome) string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.Cached:
		return "cached"
	}
	return fmt.Sprintf("%d tests", len(o.Suite.Tests))
}

package suite

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver"

	"hugotest/internal/cache"
	"hugotest/internal/config"
	"hugotest/internal/correlate"
	"hugotest/internal/diag"
	"hugotest/internal/hugo"
	"hugotest/internal/source"
	"hugotest/internal/trace"
)

// heartbeatInterval paces trace heartbeats while the builder runs.
const heartbeatInterval = 5 * time.Second

// SetupReport summarizes the setup phase.
type SetupReport struct {
	Executable     string
	HugoVersion    string
	Format         diag.Format
	Mode           correlate.Mode
	Build          hugo.Result
	Files          int
	Records        int
	Unattributable int
	Timings        Timings
}

// Setup builds the site once, parses the captured output and persists the
// diagnostics for the per-fixture passes. fixtures are absolute paths; a
// diagnostic naming any other file is unattributable. Any unattributable
// diagnostic fails setup with a *diag.UnattributableError after the
// side-channel file has been written.
func Setup(ctx context.Context, cfg *config.Config, fixtures []string, sink ProgressSink) (*Context, *SetupReport, error) {
	span, ctx := trace.Start(ctx, trace.ScopePhase, "setup")
	defer span.End("")

	rep := &SetupReport{}
	contentDir := cfg.ContentDir()
	outputDir := cfg.OutputDir()

	exe, err := hugo.Locate(cfg.Executable)
	if err != nil {
		return nil, rep, err
	}
	rep.Executable = exe

	format, version, err := resolveFormat(ctx, cfg, exe)
	if err != nil {
		return nil, rep, err
	}
	rep.Format = format
	if version != nil {
		rep.HugoVersion = version.String()
	}
	mode, err := correlate.ParseMode(cfg.Mode)
	if err != nil {
		return nil, rep, err
	}
	mode = mode.Resolve(format)
	rep.Mode = mode
	pairing, err := correlate.ParseStrategy(cfg.Pairing)
	if err != nil {
		return nil, rep, err
	}
	fingerprint, err := cfg.Fingerprint()
	if err != nil {
		return nil, rep, fmt.Errorf("failed to serialize configuration: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, rep, fmt.Errorf("failed to create output dir: %w", err)
	}

	emit(sink, Event{Stage: StageBuild, Status: StatusWorking})
	res, err := runBuild(ctx, cfg, exe)
	rep.Build = res
	rep.Timings.Set(StageBuild, res.Duration)
	if err != nil {
		emit(sink, Event{Stage: StageBuild, Status: StatusError, Err: err, Elapsed: res.Duration})
		return nil, rep, err
	}
	emit(sink, Event{Stage: StageBuild, Status: StatusDone, Elapsed: res.Duration})

	parseSpan, _ := trace.Start(ctx, trace.ScopePhase, "parse")
	parser := diag.NewParser(format, cfg.Sentinel, contentDir)
	out, err := parser.ParseOutput(strings.NewReader(res.Transcript))
	if err != nil {
		parseSpan.End("error")
		return nil, rep, err
	}
	known := make(map[string]bool, len(fixtures))
	for _, f := range fixtures {
		if rel, ok := source.Under(contentDir, f); ok {
			known[rel] = true
		}
	}
	out.Quarantine(func(file string) bool { return known[file] })
	rep.Timings.Set(StageParse, parseSpan.With("records", fmt.Sprint(out.Len())).End(""))
	emit(sink, Event{Stage: StageParse, Status: StatusDone, Elapsed: rep.Timings.Duration(StageParse)})

	snapshotDir, err := filepath.Rel(cfg.TestRoot(), cfg.SnapshotRoot())
	if err != nil {
		return nil, rep, fmt.Errorf("snapshot dir: %w", err)
	}
	sc := &diag.SideChannel{
		Root:        cfg.TestRoot(),
		ContentDir:  contentDir,
		OutputDir:   outputDir,
		SnapshotDir: path.Clean(filepath.ToSlash(snapshotDir)),
		Format:      format,
		Mode:        mode.String(),
		Pairing:     pairing.String(),
		Sentinel:    cfg.Sentinel,
		Fingerprint: string(fingerprint),
		HugoVersion: rep.HugoVersion,
	}
	sc.SetOutput(out)
	if mode == correlate.ModeIDPairing {
		sc.Pairs = make(map[string][]diag.Pair)
		for _, file := range out.Files() {
			g, _ := out.Group(file)
			if pairs, _ := correlate.BuildPairs(g.Records, pairing); len(pairs) > 0 {
				sc.Pairs[file] = pairs
			}
		}
	}
	scPath := SideChannelPath(outputDir)
	if err := diag.WriteSideChannel(scPath, sc); err != nil {
		return nil, rep, err
	}

	rep.Files = len(out.Files())
	rep.Records = out.Len()
	rep.Unattributable = len(out.Unattributable)

	sctx, err := contextFromSideChannel(scPath, sc)
	if err != nil {
		return nil, rep, err
	}
	if !cfg.NoCache {
		sctx.Cache, err = OpenCache(cfg)
		if err != nil {
			return nil, rep, err
		}
	}
	if err := diag.CheckAttributed(out.Unattributable); err != nil {
		return sctx, rep, err
	}
	return sctx, rep, nil
}

func resolveFormat(ctx context.Context, cfg *config.Config, exe string) (diag.Format, *semver.Version, error) {
	version, probeErr := hugo.ProbeVersion(ctx, exe)
	if cfg.Format != "" && cfg.Format != "auto" {
		format, err := diag.ParseFormat(cfg.Format)
		return format, version, err
	}
	if probeErr != nil {
		return 0, nil, fmt.Errorf("%w (set format in %s to skip detection)", probeErr, config.FileName)
	}
	trace.Point(trace.FromContext(ctx), trace.ScopePhase, "hugo-version", version.String())
	return diag.FormatForVersion(version), version, nil
}

func runBuild(ctx context.Context, cfg *config.Config, exe string) (hugo.Result, error) {
	span, ctx := trace.Start(ctx, trace.ScopePhase, "build")
	hb := trace.StartHeartbeat(trace.FromContext(ctx), "build", heartbeatInterval)
	defer hb.Stop()

	cfgPath, cleanup, err := hugo.WriteConfig(cfg.Hugo)
	if err != nil {
		span.End("error")
		return hugo.Result{}, err
	}
	defer cleanup()

	res, err := hugo.Build(ctx, hugo.Request{
		Executable: exe,
		ConfigPath: cfgPath,
		Dir:        cfg.TestRoot(),
		Timeout:    cfg.Timeout.Duration,
	})
	span.With("exit", fmt.Sprint(res.ExitCode)).End(fmt.Sprintf("failed=%t", res.Failed))
	return res, err
}

// OpenCache opens the configured cache directory, or the per-user one.
func OpenCache(cfg *config.Config) (*cache.Disk, error) {
	if cfg.CacheDir == "" {
		return cache.OpenUser("hugotest")
	}
	dir := cfg.CacheDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cfg.Root, filepath.FromSlash(dir))
	}
	return cache.Open(dir)
}

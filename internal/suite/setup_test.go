package suite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"hugotest/internal/config"
	"hugotest/internal/correlate"
	"hugotest/internal/diag"
	"hugotest/internal/hugo"
	"hugotest/internal/materialize"
)

const idSource = `---
title: ids
---
<test name="broken ref" error-id="E1" expected-error="bad ref">
{{< ref "missing" >}}
</test>
`

const idArtifact = `<html><body>
<test name="broken ref" error-id="E1" expected-error="bad ref"></test>
</body></html>
`

// siteWithBuilder lays out a project whose builder is a shell script. The
// script answers "version" with hugoVersion, renders artifact as the page
// of refs.md and then runs body.
func siteWithBuilder(t *testing.T, hugoVersion, src, artifact, body string) (*config.Config, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script builder needs a POSIX shell")
	}
	root := t.TempDir()
	fixture := filepath.Join(root, "site", "refs.md")
	writeFile(t, fixture, src)
	writeFile(t, filepath.Join(root, config.FileName), "test_dir = \"site\"\ncache_dir = \"cache\"\n")

	exe := filepath.Join(root, "bin", "hugo")
	script := `#!/bin/sh
if [ "$1" = "version" ]; then
  echo "hugo v` + hugoVersion + ` linux/amd64 BuildDate=unknown"
  exit 0
fi
mkdir -p .output/refs
cat > .output/refs/index.html <<'HTML'
` + artifact + `HTML
` + body + "\n"
	writeFile(t, exe, script)
	if err := os.Chmod(exe, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvExecutable, exe)
	t.Setenv(config.EnvTestDir, "")

	cfg, err := config.Load(root)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg, fixture
}

func materializeOne(t *testing.T, sctx *Context, fixture string) []materialize.Test {
	t.Helper()
	rep, err := MaterializeAll(context.Background(), sctx, []string{fixture}, 1, nil)
	if err != nil {
		t.Fatalf("MaterializeAll: %v", err)
	}
	if err := rep.Err(); err != nil {
		t.Fatalf("unexpected stray diagnostics: %v", err)
	}
	return rep.Outcomes[0].Suite.Tests
}

func TestSetup_PositionalLineSpan(t *testing.T) {
	cfg, fixture := siteWithBuilder(t, "0.120.0", refsSource, refsArtifact,
		`echo 'ERROR "refs.md:9:3": bad ref' >&2
exit 1`)

	sctx, rep, err := Setup(context.Background(), cfg, []string{fixture}, nil)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if !rep.Build.Failed || rep.Build.ExitCode != 1 {
		t.Errorf("expected a failed build with diagnostics, got %+v", rep.Build)
	}
	if rep.Format != diag.FormatPositional || rep.Mode != correlate.ModeLineSpan || rep.HugoVersion != "0.120.0" {
		t.Errorf("resolved %s/%s for hugo %s", rep.Format, rep.Mode, rep.HugoVersion)
	}
	if rep.Records != 1 || rep.Unattributable != 0 {
		t.Errorf("records=%d unattributable=%d, want 1/0", rep.Records, rep.Unattributable)
	}

	loaded, err := LoadContext(SideChannelPath(cfg.OutputDir()))
	if err != nil {
		t.Fatalf("side channel not readable: %v", err)
	}
	tests := materializeOne(t, loaded, fixture)
	if len(tests) != 2 || tests[1].Kind != materialize.KindErrorAssertion || !tests[1].Passed() {
		t.Fatalf("unexpected tests: %+v", tests)
	}
	if sctx.Cache == nil {
		t.Error("setup should open the configured cache")
	}
}

func TestSetup_LegacyIDPairing(t *testing.T) {
	cfg, fixture := siteWithBuilder(t, "0.100.0", idSource, idArtifact,
		`echo "WARN 2021/09/23 13:08:34 refs.md: 'hugotest-expected-error' E1|bad ref" >&2
echo "ERROR 2021/09/23 13:08:34 refs.md: bad ref" >&2
exit 1`)

	sctx, rep, err := Setup(context.Background(), cfg, []string{fixture}, nil)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if rep.Format != diag.FormatLegacy || rep.Mode != correlate.ModeIDPairing {
		t.Fatalf("resolved %s/%s, want legacy/id", rep.Format, rep.Mode)
	}
	if pairs := sctx.SideChannel().FilePairs("refs.md"); len(pairs) != 1 || !pairs[0].Matched {
		t.Fatalf("pairs not persisted: %+v", pairs)
	}
	tests := materializeOne(t, sctx, fixture)
	if len(tests) != 1 || tests[0].Actual != "bad ref" || !tests[0].Passed() {
		t.Fatalf("unexpected tests: %+v", tests)
	}
}

func TestSetup_MissingError(t *testing.T) {
	cfg, fixture := siteWithBuilder(t, "0.120.0", refsSource, refsArtifact, "exit 0")

	sctx, rep, err := Setup(context.Background(), cfg, []string{fixture}, nil)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if rep.Build.Failed || rep.Records != 0 {
		t.Fatalf("clean build reported diagnostics: %+v", rep)
	}
	tests := materializeOne(t, sctx, fixture)
	if len(tests) != 2 || tests[1].Kind != materialize.KindMissingError {
		t.Fatalf("unexpected tests: %+v", tests)
	}
	if want := materialize.MissingErrorMessage("bad ref"); tests[1].Failure != want {
		t.Errorf("failure = %q, want %q", tests[1].Failure, want)
	}
}

func TestSetup_BuildErrorWithoutMarkers(t *testing.T) {
	cfg, fixture := siteWithBuilder(t, "0.120.0", refsSource, refsArtifact,
		`echo "Error: module \"theme\" not found" >&2
exit 1`)

	sctx, _, err := Setup(context.Background(), cfg, []string{fixture}, nil)
	var berr *hugo.BuildError
	if !errors.As(err, &berr) {
		t.Fatalf("expected *hugo.BuildError, got %v", err)
	}
	if berr.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", berr.ExitCode)
	}
	if sctx != nil {
		t.Error("no context may be returned for a crashed build")
	}
	if _, err := os.Stat(SideChannelPath(cfg.OutputDir())); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("side channel must not be written after a crash: %v", err)
	}
}

func TestSetup_UnattributableAfterSideChannel(t *testing.T) {
	cfg, fixture := siteWithBuilder(t, "0.120.0", refsSource, refsArtifact,
		`echo 'ERROR "refs.md:9:3": bad ref' >&2
echo 'ERROR "other.md:1:1": not a fixture' >&2
echo 'ERROR render failed: boom' >&2
exit 1`)

	sctx, rep, err := Setup(context.Background(), cfg, []string{fixture}, nil)
	var uerr *diag.UnattributableError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *diag.UnattributableError, got %v", err)
	}
	if len(uerr.Records) != 2 || rep.Unattributable != 2 {
		t.Fatalf("expected 2 unattributable records, got %+v", uerr.Records)
	}
	if sctx == nil {
		t.Fatal("context must be returned with the unattributable error")
	}

	sc, err := diag.ReadSideChannel(sctx.SideChannelPath)
	if err != nil {
		t.Fatalf("side channel must be written before failing: %v", err)
	}
	if len(sc.Unattributable) != 2 {
		t.Errorf("side channel unattributable = %+v", sc.Unattributable)
	}
	if _, ok := sc.Files["other.md"]; ok {
		t.Error("records of non-fixture files must be quarantined")
	}
	if got := sc.Records("refs.md"); len(got) != 1 || got[0].Line != 9 {
		t.Errorf("fixture records = %+v", got)
	}
}

func TestSetup_ExplicitFormatSkipsProbe(t *testing.T) {
	cfg, fixture := siteWithBuilder(t, "not-a-version", refsSource, refsArtifact, "exit 0")

	if _, _, err := Setup(context.Background(), cfg, []string{fixture}, nil); err == nil {
		t.Fatal("an unreadable version must fail when the format is auto")
	}
	cfg.Format = "positional"
	if _, rep, err := Setup(context.Background(), cfg, []string{fixture}, nil); err != nil || rep.Format != diag.FormatPositional {
		t.Fatalf("configured format must skip detection: %v", err)
	}
}

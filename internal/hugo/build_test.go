package hugo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeHugo writes an executable shell script standing in for the builder.
func fakeHugo(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script builder needs a POSIX shell")
	}
	exe := filepath.Join(t.TempDir(), "hugo")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return exe
}

func TestBuild_Success(t *testing.T) {
	exe := fakeHugo(t, `echo "args: $*"
echo "WARN a.md: 'hugotest-expected-error' E1|bad ref" >&2`)

	res, err := Build(context.Background(), Request{
		Executable: exe,
		ConfigPath: "/tmp/site.json",
		Dir:        t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if res.Failed || res.ExitCode != 0 {
		t.Fatalf("clean exit reported as failure: %+v", res)
	}
	if !strings.Contains(res.Stdout, "args: --config /tmp/site.json") {
		t.Errorf("config flag not passed: %q", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "E1|bad ref") || !strings.Contains(res.Transcript, "E1|bad ref") {
		t.Errorf("stderr not captured: %+v", res)
	}
}

func TestBuild_FailureWithoutMarkers(t *testing.T) {
	exe := fakeHugo(t, `echo "Error: unable to locate config file" >&2
exit 1`)

	res, err := Build(context.Background(), Request{Executable: exe, Dir: t.TempDir()})
	var berr *BuildError
	if !errors.As(err, &berr) {
		t.Fatalf("expected *BuildError, got %v", err)
	}
	if berr.ExitCode != 1 || res.ExitCode != 1 {
		t.Errorf("exit code = %d/%d, want 1", berr.ExitCode, res.ExitCode)
	}
	if got := err.Error(); got != "hugo build failed (exit 1): Error: unable to locate config file" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestBuild_FailureWithMarkers(t *testing.T) {
	exe := fakeHugo(t, `echo "Building sites … ERROR 2021/09/23 13:08:34 refs.md: bad ref" >&2
exit 1`)

	res, err := Build(context.Background(), Request{Executable: exe, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("a failing build with diagnostics must not be an error: %v", err)
	}
	if !res.Failed || res.ExitCode != 1 {
		t.Fatalf("expected Failed with exit 1, got %+v", res)
	}
	if !strings.Contains(res.Transcript, "refs.md: bad ref") {
		t.Errorf("transcript lost the diagnostic: %q", res.Transcript)
	}
}

func TestBuild_Timeout(t *testing.T) {
	exe := fakeHugo(t, "exec sleep 5")

	start := time.Now()
	_, err := Build(context.Background(), Request{
		Executable: exe,
		Dir:        t.TempDir(),
		Timeout:    100 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("build was not killed at the timeout (took %s)", elapsed)
	}
}

func TestBuild_Canceled(t *testing.T) {
	exe := fakeHugo(t, "exec sleep 5")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, Request{Executable: exe, Dir: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestProbeVersion(t *testing.T) {
	exe := fakeHugo(t, `echo "hugo v0.121.1-00b46fed8e47+extended linux/amd64 BuildDate=2024-01-05"`)

	v, err := ProbeVersion(context.Background(), exe)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "0.121.1" {
		t.Fatalf("version = %s, want 0.121.1", v)
	}
}

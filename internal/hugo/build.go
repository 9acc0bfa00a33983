package hugo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"hugotest/internal/diag"
)

// ErrTimeout is returned when a build exceeds its timeout.
var ErrTimeout = errors.New("hugo build timed out")

// Request configures one build.
type Request struct {
	Executable string
	ConfigPath string
	// Dir is the working directory: the fixture root.
	Dir     string
	Args    []string
	Timeout time.Duration
}

// Result is the captured output of a build.
type Result struct {
	Stdout string
	Stderr string
	// Transcript interleaves both streams in arrival order.
	Transcript string
	ExitCode   int
	// Failed is set when the builder exited non-zero but printed
	// diagnostics; the diagnostics carry the failure.
	Failed   bool
	Duration time.Duration
}

// BuildError is a build failure without recognizable diagnostics.
type BuildError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *BuildError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("hugo build failed (exit %d): %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("hugo build failed (exit %d): %s", e.ExitCode, msg)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// lockedBuffer serializes writes from the stdout and stderr copiers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Build runs the builder once and captures its output. A non-zero exit is
// only an error when the transcript holds no diagnostic markers.
func Build(ctx context.Context, req Request) (Result, error) {
	var res Result
	if req.Executable == "" {
		return res, errors.New("missing hugo executable")
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(req.Args)+2)
	if req.ConfigPath != "" {
		args = append(args, "--config", req.ConfigPath)
	}
	args = append(args, req.Args...)

	// #nosec G204 -- executable comes from configuration
	cmd := exec.CommandContext(ctx, req.Executable, args...)
	cmd.Dir = req.Dir
	var stdout, stderr bytes.Buffer
	transcript := &lockedBuffer{}
	cmd.Stdout = io.MultiWriter(&stdout, transcript)
	cmd.Stderr = io.MultiWriter(&stderr, transcript)

	start := time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Transcript = transcript.String()
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr == nil {
		return res, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%w after %s", ErrTimeout, req.Timeout)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) || !diag.HasMarkers(res.Transcript) {
		return res, &BuildError{ExitCode: res.ExitCode, Stderr: res.Stderr, Err: runErr}
	}
	res.Failed = true
	return res, nil
}

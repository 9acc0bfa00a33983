// Package hugo drives the external site builder: it locates the
// executable, probes its version, writes the generated configuration and
// captures the output of a build.
package hugo

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver"
)

// ErrNotFound is returned when the executable cannot be located.
var ErrNotFound = errors.New("hugo executable not found")

// Locate resolves executable through PATH (or verifies an explicit path).
func Locate(executable string) (string, error) {
	if strings.TrimSpace(executable) == "" {
		executable = "hugo"
	}
	path, err := exec.LookPath(executable)
	if err != nil {
		return "", fmt.Errorf("%w: %s (set HUGOTEST_EXECUTABLE or executable in hugotest.toml): %w", ErrNotFound, executable, err)
	}
	return path, nil
}

var versionPattern = regexp.MustCompile(`\bv?(\d+\.\d+(?:\.\d+)?)`)

// ParseVersion extracts the version from `hugo version` output, e.g.
// "hugo v0.121.1-00b46fed8e47+extended linux/amd64 BuildDate=...".
func ParseVersion(out string) (*semver.Version, error) {
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		return nil, fmt.Errorf("no version in %q", strings.TrimSpace(out))
	}
	v, err := semver.NewVersion(m[1])
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", m[1], err)
	}
	return v, nil
}

// ProbeVersion runs `exe version` and parses its output.
func ProbeVersion(ctx context.Context, exe string) (*semver.Version, error) {
	// #nosec G204 -- exe is the configured builder
	out, err := exec.CommandContext(ctx, exe, "version").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s version: %w", exe, err)
	}
	return ParseVersion(string(out))
}

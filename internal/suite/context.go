// Package suite runs the hugotest pipeline: one site build in a setup
// phase, then the per-fixture extraction, correlation and
// materialization.
package suite

import (
	"fmt"
	"path"
	"path/filepath"

	"hugotest/internal/cache"
	"hugotest/internal/cachekey"
	"hugotest/internal/correlate"
	"hugotest/internal/diag"
	"hugotest/internal/source"
)

// Context is what the setup phase hands to every per-fixture pass. It is
// read-only after construction and safe to share between workers.
type Context struct {
	// Root is the builder's working directory.
	Root            string
	ContentDir      string
	OutputDir       string
	SideChannelPath string
	// SnapshotDir is slash separated and relative to Root.
	SnapshotDir string

	Format      diag.Format
	Mode        correlate.Mode
	Pairing     correlate.Strategy
	Sentinel    string
	Fingerprint []byte
	HugoVersion string

	// Cache is optional.
	Cache *cache.Disk

	side *diag.SideChannel
}

// SideChannel returns the diagnostics of the build run.
func (c *Context) SideChannel() *diag.SideChannel {
	return c.side
}

// KeyConfig is the configuration part of cache keys: the configured
// fingerprint plus the values resolved at setup, so "auto" settings that
// resolve differently after a Hugo upgrade never share entries.
func (c *Context) KeyConfig() []byte {
	return []byte(cachekey.Sum(
		c.Fingerprint,
		[]byte(c.HugoVersion),
		[]byte(c.Format.String()),
		[]byte(c.Mode.String()),
		[]byte(c.Pairing.String()),
		[]byte(c.Sentinel),
	))
}

// Rel returns the content-relative slash path of fixture.
func (c *Context) Rel(fixture string) (string, error) {
	rel, ok := source.Under(c.ContentDir, fixture)
	if !ok {
		return "", fmt.Errorf("%s is not under the content dir %s", fixture, c.ContentDir)
	}
	return rel, nil
}

// SnapshotFile returns the Root-relative snapshot file of a fixture.
func (c *Context) SnapshotFile(rel string) string {
	return path.Join(c.SnapshotDir, rel+".toml")
}

// LoadContext rebuilds a Context from a side-channel file written by
// Setup. It is how a per-fixture pass started in a fresh process finds the
// build results.
func LoadContext(sideChannelPath string) (*Context, error) {
	sc, err := diag.ReadSideChannel(sideChannelPath)
	if err != nil {
		return nil, err
	}
	return contextFromSideChannel(sideChannelPath, sc)
}

func contextFromSideChannel(scPath string, sc *diag.SideChannel) (*Context, error) {
	mode, err := correlate.ParseMode(sc.Mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scPath, err)
	}
	pairing, err := correlate.ParseStrategy(sc.Pairing)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scPath, err)
	}
	abs, err := filepath.Abs(scPath)
	if err != nil {
		return nil, err
	}
	return &Context{
		Root:            sc.Root,
		ContentDir:      sc.ContentDir,
		OutputDir:       sc.OutputDir,
		SideChannelPath: abs,
		SnapshotDir:     sc.SnapshotDir,
		Format:          sc.Format,
		Mode:            mode.Resolve(sc.Format),
		Pairing:         pairing,
		Sentinel:        sc.Sentinel,
		Fingerprint:     []byte(sc.Fingerprint),
		HugoVersion:     sc.HugoVersion,
		side:            sc,
	}, nil
}

// SideChannelPath returns where Setup writes the side-channel file for an
// output directory.
func SideChannelPath(outputDir string) string {
	return filepath.Join(outputDir, diag.SideChannelName)
}

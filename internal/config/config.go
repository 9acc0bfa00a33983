// Package config loads hugotest.toml and the environment overrides that
// shape a test run.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/imdario/mergo"
)

// FileName is the project configuration file.
const FileName = "hugotest.toml"

// Environment overrides.
const (
	EnvTestDir    = "HUGOTEST_TEST_DIR"
	EnvExecutable = "HUGOTEST_EXECUTABLE"
)

// Duration is a time.Duration decoded from strings like "90s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "0" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if v < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the resolved configuration of one run.
type Config struct {
	// Root is the project directory; relative paths resolve against it.
	Root string `toml:"-"`
	// Path is the loaded configuration file, empty when none exists.
	Path string `toml:"-"`

	TestDir     string   `toml:"test_dir"`
	Executable  string   `toml:"executable"`
	Format      string   `toml:"format"`
	Mode        string   `toml:"mode"`
	Pairing     string   `toml:"pairing"`
	Sentinel    string   `toml:"sentinel"`
	Timeout     Duration `toml:"timeout"`
	Jobs        int      `toml:"jobs"`
	CacheDir    string   `toml:"cache_dir"`
	NoCache     bool     `toml:"no_cache"`
	SnapshotDir string   `toml:"snapshot_dir"`
	Include     []string `toml:"include"`
	Ignore      []string `toml:"ignore"`

	// Hugo is the builder configuration, deep-merged over HugoDefaults.
	Hugo map[string]any `toml:"hugo"`
}

// Default returns the configuration used when no file exists.
func Default(root string) *Config {
	return &Config{
		Root:        root,
		TestDir:     "tests",
		Executable:  "hugo",
		Format:      "auto",
		Mode:        "auto",
		Pairing:     "next",
		Sentinel:    "hugotest-expected-error",
		Jobs:        runtime.GOMAXPROCS(0),
		SnapshotDir: "__snapshots__",
		Include:     []string{"**/*.md"},
		Ignore:      []string{"**/*.ignore.md", "**/menu/**/_index.md"},
	}
}

// HugoDefaults returns a fresh copy of the builder settings every run
// starts from.
func HugoDefaults(root string) map[string]any {
	return map[string]any{
		"baseURL":      "/",
		"contentDir":   ".",
		"publishDir":   ".output",
		"resourceDir":  ".output/.tmp",
		"dataDir":      "data",
		"layoutDir":    "layouts",
		"themesDir":    root,
		"disableKinds": []any{"taxonomy", "term", "RSS", "sitemap", "robotsTXT", "404"},
	}
}

// Find walks up from startDir to locate hugotest.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load resolves the configuration for startDir: the nearest hugotest.toml
// (if any) over the defaults, then environment overrides. Without a file
// startDir itself is the root.
func Load(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	var cfg *Config
	if ok {
		cfg, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		root, err := filepath.Abs(startDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve start directory: %w", err)
		}
		cfg = Default(root)
		if err := cfg.finish(); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// LoadFile decodes path over the defaults. Unknown keys outside the
// [hugo] table are rejected.
func LoadFile(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg := Default(filepath.Dir(abs))
	cfg.Path = abs
	meta, err := toml.DecodeFile(abs, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", abs, err)
	}
	var unknown []string
	for _, key := range meta.Undecoded() {
		if len(key) > 0 && key[0] == "hugo" {
			continue
		}
		unknown = append(unknown, key.String())
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%s: unknown keys: %s", abs, strings.Join(unknown, ", "))
	}
	if err := cfg.finish(); err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	return cfg, nil
}

// ApplyEnv overrides the test directory and executable from the
// environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvTestDir); ok && strings.TrimSpace(v) != "" {
		c.TestDir = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvExecutable); ok && strings.TrimSpace(v) != "" {
		c.Executable = strings.TrimSpace(v)
	}
}

// finish merges the builder settings and validates the scalar fields.
func (c *Config) finish() error {
	merged := HugoDefaults(c.Root)
	if c.Hugo != nil {
		if err := mergo.Merge(&merged, c.Hugo, mergo.WithOverride); err != nil {
			return fmt.Errorf("failed to merge [hugo] settings: %w", err)
		}
	}
	for _, key := range []string{"layoutDir", "themesDir"} {
		if s, ok := merged[key].(string); ok && s != "" && !filepath.IsAbs(s) {
			merged[key] = filepath.Join(c.Root, filepath.FromSlash(s))
		}
	}
	c.Hugo = merged

	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	if c.Jobs == 0 {
		c.Jobs = runtime.GOMAXPROCS(0)
	}
	if strings.TrimSpace(c.Sentinel) == "" {
		return errors.New("sentinel must not be empty")
	}
	return nil
}

// TestRoot returns the absolute test directory, the builder's working
// directory.
func (c *Config) TestRoot() string {
	if filepath.IsAbs(c.TestDir) {
		return filepath.Clean(c.TestDir)
	}
	return filepath.Join(c.Root, filepath.FromSlash(c.TestDir))
}

func (c *Config) hugoDir(key, fallback string) string {
	s, ok := c.Hugo[key].(string)
	if !ok || s == "" {
		s = fallback
	}
	if filepath.IsAbs(s) {
		return filepath.Clean(s)
	}
	return filepath.Join(c.TestRoot(), filepath.FromSlash(s))
}

// ContentDir returns the absolute content root fixtures live under.
func (c *Config) ContentDir() string {
	return c.hugoDir("contentDir", ".")
}

// OutputDir returns the absolute publish directory of the build.
func (c *Config) OutputDir() string {
	return c.hugoDir("publishDir", ".output")
}

// SnapshotRoot returns the absolute snapshot directory.
func (c *Config) SnapshotRoot() string {
	if filepath.IsAbs(c.SnapshotDir) {
		return filepath.Clean(c.SnapshotDir)
	}
	return filepath.Join(c.TestRoot(), filepath.FromSlash(c.SnapshotDir))
}

// HugoJSON serializes the merged builder settings; map keys are sorted.
func (c *Config) HugoJSON() ([]byte, error) {
	return json.Marshal(c.Hugo)
}

// Fingerprint is the canonical serialized configuration that feeds cache
// keys: everything that changes the build output or its correlation.
func (c *Config) Fingerprint() ([]byte, error) {
	return json.Marshal(struct {
		Hugo       map[string]any `json:"hugo"`
		Executable string         `json:"executable"`
		Format     string         `json:"format"`
		Mode       string         `json:"mode"`
		Pairing    string         `json:"pairing"`
		Sentinel   string         `json:"sentinel"`
	}{c.Hugo, c.Executable, c.Format, c.Mode, c.Pairing, c.Sentinel})
}

// Package cache persists materialized suites between runs.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"hugotest/internal/cachekey"
	"hugotest/internal/diag"
	"hugotest/internal/materialize"
)

// Current schema version - increment when Entry format changes
const schemaVersion uint16 = 1

// ErrInvalidKey is returned for keys that cachekey.Build cannot produce.
var ErrInvalidKey = errors.New("invalid cache key")

// Disk stores one msgpack file per cache key.
// Thread-safe for concurrent access.
type Disk struct {
	mu  sync.RWMutex
	dir string
}

// Entry is the cached outcome of processing one fixture.
type Entry struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	Fixture string
	Suite   materialize.Suite

	// DiagDigest fingerprints the diagnostics the suite was correlated
	// with; the side-channel file is not part of the cache key.
	DiagDigest string

	Unknown    []diag.Record
	Unexpected []diag.Record

	Created time.Time
}

// Open returns a cache rooted at dir, creating it when needed.
func Open(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// OpenUser opens the cache at the standard per-user location.
func OpenUser(app string) (*Disk, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		var err error
		base, err = os.UserCacheDir()
		if err != nil {
			return nil, err
		}
	}
	return Open(filepath.Join(base, app))
}

// Dir returns the cache root.
func (c *Disk) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Disk) pathFor(key cachekey.Key) string {
	// two-level fan-out keeps directories small
	k := string(key)
	return filepath.Join(c.dir, "suites", k[:2], k+".mp")
}

// Put serializes and writes an entry.
func (c *Disk) Put(key cachekey.Key, e *Entry) error {
	if c == nil {
		return nil
	}
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e.Schema = schemaVersion
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := msgpack.NewEncoder(f).Encode(e); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Get reads the entry for key. It reports a miss for absent entries,
// entries of another schema and entries whose diagnostics digest differs
// from diagDigest.
func (c *Disk) Get(key cachekey.Key, diagDigest string) (*Entry, bool, error) {
	if c == nil || !key.Valid() {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() { _ = f.Close() }()

	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	if e.Schema != schemaVersion || e.DiagDigest != diagDigest {
		return nil, false, nil
	}
	return &e, true, nil
}

// DropAll invalidates the cache.
func (c *Disk) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o750)
}

// DiagDigest fingerprints the records and pairs a fixture is correlated
// with.
func DiagDigest(records []diag.Record, pairs []diag.Pair) string {
	parts := make([][]byte, 0, len(records)+len(pairs))
	for _, r := range records {
		parts = append(parts, []byte(fmt.Sprintf("%s\x1f%d\x1f%d\x1f%s", r.Level, r.Line, r.Column, r.Message)))
	}
	for _, p := range pairs {
		parts = append(parts, []byte(fmt.Sprintf("pair\x1f%t\x1f%s\x1f%s", p.Matched, p.Expected, p.Actual)))
	}
	return cachekey.Sum(parts...)
}

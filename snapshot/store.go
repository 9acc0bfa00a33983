// Package snapshot stores expected test output in one TOML file per
// fixture. Generated fixture tests use it through Open and Match; the
// hugotest runner uses Load and Check directly.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
)

// FormatVersion is written at the top of every snapshot file.
const FormatVersion = 1

// Mode decides what Check does with absent or differing snapshots.
type Mode uint8

const (
	// ModeDefault writes absent snapshots and reports differing ones.
	ModeDefault Mode = iota
	// ModeUpdate overwrites differing snapshots.
	ModeUpdate
	// ModeCI never writes; absent snapshots fail.
	ModeCI
)

func (m Mode) String() string {
	switch m {
	case ModeUpdate:
		return "update"
	case ModeCI:
		return "ci"
	}
	return "default"
}

// Outcome is the verdict of one Check.
type Outcome uint8

const (
	Matched Outcome = iota
	Mismatched
	Written
	Updated
	Missing
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Mismatched:
		return "mismatched"
	case Written:
		return "written"
	case Updated:
		return "updated"
	case Missing:
		return "missing"
	}
	return "unknown"
}

// Failed reports whether the outcome fails the test.
func (o Outcome) Failed() bool {
	return o == Mismatched || o == Missing
}

// Result carries the outcome and, for a mismatch, the stored value.
type Result struct {
	Outcome Outcome
	Stored  string
}

type file struct {
	Version   int               `toml:"version"`
	Snapshots map[string]string `toml:"snapshots"`
}

// Store is the snapshot file of one fixture. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]string
	seen    map[string]bool
	dirty   bool
}

// Load reads the snapshot file at path. A missing file yields an empty
// store.
func Load(path string) (*Store, error) {
	s := &Store{path: path, entries: make(map[string]string), seen: make(map[string]bool)}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("invalid snapshot file %s: unknown key %q", path, undecoded[0].String())
	}
	if f.Version > FormatVersion {
		return nil, fmt.Errorf("snapshot file %s has version %d, newer than %d", path, f.Version, FormatVersion)
	}
	for k, v := range f.Snapshots {
		s.entries[k] = v
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Len returns the number of stored snapshots.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Check compares value with the snapshot stored under title and records
// title as seen.
func (s *Store) Check(title, value string, mode Mode) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen[title] = true
	stored, ok := s.entries[title]
	switch {
	case ok && stored == value:
		return Result{Outcome: Matched}
	case !ok && mode == ModeCI:
		return Result{Outcome: Missing}
	case !ok:
		s.entries[title] = value
		s.dirty = true
		return Result{Outcome: Written}
	case mode == ModeUpdate:
		s.entries[title] = value
		s.dirty = true
		return Result{Outcome: Updated, Stored: stored}
	}
	return Result{Outcome: Mismatched, Stored: stored}
}

// Obsolete returns the stored titles no Check has asked for, sorted.
func (s *Store) Obsolete() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.entries {
		if !s.seen[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Prune drops obsolete snapshots and returns how many were removed.
func (s *Store) Prune() int {
	obsolete := s.Obsolete()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range obsolete {
		delete(s.entries, k)
	}
	if len(obsolete) > 0 {
		s.dirty = true
	}
	return len(obsolete)
}

// Save writes the store when it changed. An emptied store removes its file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	if len(s.entries) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		s.dirty = false
		return nil
	}

	var buf bytes.Buffer
	// the encoder sorts map keys
	if err := toml.NewEncoder(&buf).Encode(file{Version: FormatVersion, Snapshots: s.entries}); err != nil {
		return fmt.Errorf("failed to encode snapshots: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snap-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	s.dirty = false
	return nil
}

package snapshot

import (
	"os"
	"strconv"
	"testing"
)

const (
	// EnvUpdate set to a true value makes Open stores overwrite snapshots.
	EnvUpdate = "HUGOTEST_UPDATE"
	// EnvCI set to a true value makes absent snapshots fail.
	EnvCI = "CI"
)

// ModeFromEnv derives the mode of generated tests from the environment.
// Update wins over CI.
func ModeFromEnv(lookup func(string) (string, bool)) Mode {
	if envBool(lookup, EnvUpdate) {
		return ModeUpdate
	}
	if envBool(lookup, EnvCI) {
		return ModeCI
	}
	return ModeDefault
}

func envBool(lookup func(string) (string, bool), key string) bool {
	v, ok := lookup(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// T is the store of a running test function.
type T struct {
	store *Store
	mode  Mode
}

// Open loads the snapshot file at path for the duration of t. Changes are
// saved when t and its subtests finish.
func Open(t testing.TB, path string) *T {
	t.Helper()
	s, err := Load(path)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	st := &T{store: s, mode: ModeFromEnv(os.LookupEnv)}
	t.Cleanup(func() {
		if err := s.Save(); err != nil {
			t.Errorf("snapshot: failed to save %s: %v", path, err)
		}
	})
	return st
}

// Match checks value against the snapshot stored under title and fails t
// on a mismatch or, in CI mode, on an absent snapshot.
func (st *T) Match(t testing.TB, title, value string) {
	t.Helper()
	res := st.store.Check(title, value, st.mode)
	switch res.Outcome {
	case Mismatched:
		t.Fatalf("snapshot %q mismatch\n--- stored\n%s\n+++ actual\n%s\n(set %s=1 to update)", title, res.Stored, value, EnvUpdate)
	case Missing:
		t.Fatalf("snapshot %q is missing in %s", title, st.store.Path())
	}
}

// Store returns the underlying store.
func (st *T) Store() *Store { return st.store }

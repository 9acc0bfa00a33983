package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snaps", "refs.md.toml")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := s.Check("plain", `<a>x</a>\n`, ModeDefault); got.Outcome != Written {
		t.Fatalf("first check = %v, want written", got.Outcome)
	}
	if got := s.Check("b", "1", ModeDefault); got.Outcome != Written {
		t.Fatalf("first check = %v, want written", got.Outcome)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "version = 1") {
		t.Errorf("file should start with the version:\n%s", text)
	}
	if strings.Index(text, "b = ") > strings.Index(text, "plain = ") {
		t.Errorf("keys not sorted:\n%s", text)
	}

	s, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Check("plain", `<a>x</a>\n`, ModeCI); got.Outcome != Matched {
		t.Fatalf("reload check = %v, want matched", got.Outcome)
	}
	got := s.Check("b", "2", ModeDefault)
	if got.Outcome != Mismatched || got.Stored != "1" || !got.Outcome.Failed() {
		t.Fatalf("mismatch check = %+v", got)
	}
	if got := s.Check("new", "x", ModeCI); got.Outcome != Missing {
		t.Fatalf("CI check = %v, want missing", got.Outcome)
	}
	if got := s.Check("b", "2", ModeUpdate); got.Outcome != Updated || got.Stored != "1" {
		t.Fatalf("update check = %+v", got)
	}
}

func TestStoreObsolete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.toml")
	s, _ := Load(path)
	s.Check("keep", "1", ModeDefault)
	s.Check("gone", "2", ModeDefault)
	s.Check("also gone", "3", ModeDefault)
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Check("keep", "1", ModeDefault)
	if got := strings.Join(s.Obsolete(), ","); got != "also gone,gone" {
		t.Fatalf("Obsolete = %q", got)
	}
	if n := s.Prune(); n != 2 || s.Len() != 1 {
		t.Fatalf("Prune = %d, Len = %d", n, s.Len())
	}
}

func TestStoreSaveEmptyRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.toml")
	s, _ := Load(path)
	s.Check("x", "1", ModeDefault)
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	s, _ = Load(path)
	s.Prune()
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("empty store should remove its file, stat err = %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.toml")
	if err := os.WriteFile(path, []byte("version = 1\nextra = true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestModeFromEnv(t *testing.T) {
	tests := []struct {
		env  map[string]string
		want Mode
	}{
		{nil, ModeDefault},
		{map[string]string{EnvCI: "true"}, ModeCI},
		{map[string]string{EnvCI: "true", EnvUpdate: "1"}, ModeUpdate},
		{map[string]string{EnvUpdate: "nope"}, ModeDefault},
	}
	for _, tc := range tests {
		lookup := func(k string) (string, bool) {
			v, ok := tc.env[k]
			return v, ok
		}
		if got := ModeFromEnv(lookup); got != tc.want {
			t.Errorf("ModeFromEnv(%v) = %v, want %v", tc.env, got, tc.want)
		}
	}
}

func TestOpenMatch(t *testing.T) {
	t.Setenv(EnvUpdate, "")
	t.Setenv(EnvCI, "")
	path := filepath.Join(t.TempDir(), "refs.toml")

	t.Run("write", func(t *testing.T) {
		snaps := Open(t, path)
		snaps.Match(t, "plain", "x")
	})
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Check("plain", "x", ModeCI); got.Outcome != Matched {
		t.Fatalf("saved snapshot = %v, want matched", got.Outcome)
	}
}

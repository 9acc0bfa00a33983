package diag

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SideChannelVersion is bumped whenever the file layout changes.
const SideChannelVersion = 1

// SideChannelName is the file written next to the build output.
const SideChannelName = "output.err.json"

// Entry is the persisted form of a Record.
type Entry struct {
	Level  Level  `json:"level"`
	Log    string `json:"log"`
	Line   uint32 `json:"line,omitempty"`
	Column uint32 `json:"column,omitempty"`
	Raw    string `json:"raw,omitempty"`
}

// SideChannel carries the diagnostics of one build run from the setup phase
// to every per-fixture pass. It is written once and never mutated.
type SideChannel struct {
	Version     int    `json:"version"`
	ContentDir  string `json:"contentDir"`
	OutputDir   string `json:"outputDir"`
	Format      Format `json:"format"`
	Mode        string `json:"mode"`
	Pairing     string `json:"pairing,omitempty"`
	Sentinel    string `json:"sentinel"`
	Fingerprint string `json:"fingerprint"`
	// Root is the builder's working directory; SnapshotDir is relative to it.
	Root        string `json:"root"`
	SnapshotDir string `json:"snapshotDir"`
	HugoVersion string `json:"hugoVersion,omitempty"`

	Files          map[string][]Entry `json:"files"`
	Pairs          map[string][]Pair  `json:"pairs,omitempty"`
	Unattributable []Entry            `json:"unattributable,omitempty"`
}

func toEntry(r Record, keepRaw bool) Entry {
	e := Entry{Level: r.Level, Log: r.Message, Line: r.Line, Column: r.Column}
	if keepRaw {
		e.Raw = r.Raw
	}
	return e
}

// SetOutput stores the records of out.
func (sc *SideChannel) SetOutput(out *Output) {
	sc.Files = make(map[string][]Entry)
	for _, file := range out.Files() {
		g, _ := out.Group(file)
		entries := make([]Entry, len(g.Records))
		for i, r := range g.Records {
			entries[i] = toEntry(r, false)
		}
		sc.Files[file] = entries
	}
	sc.Unattributable = sc.Unattributable[:0]
	for _, r := range out.Unattributable {
		sc.Unattributable = append(sc.Unattributable, toEntry(r, true))
	}
}

// Records returns the persisted records of file in emission order.
func (sc *SideChannel) Records(file string) []Record {
	if sc == nil {
		return nil
	}
	entries := sc.Files[file]
	out := make([]Record, len(entries))
	for i, e := range entries {
		out[i] = Record{Level: e.Level, File: file, Line: e.Line, Column: e.Column, Message: e.Log}
	}
	return out
}

// FilePairs returns the id pairs persisted for file, or nil when the run
// did not use id pairing.
func (sc *SideChannel) FilePairs(file string) []Pair {
	if sc == nil {
		return nil
	}
	return sc.Pairs[file]
}

// UnattributableRecords returns the quarantined records.
func (sc *SideChannel) UnattributableRecords() []Record {
	out := make([]Record, len(sc.Unattributable))
	for i, e := range sc.Unattributable {
		out[i] = Record{Level: e.Level, Line: e.Line, Column: e.Column, Message: e.Log, Raw: e.Raw}
	}
	return out
}

// WriteSideChannel atomically writes sc to path.
func WriteSideChannel(path string, sc *SideChannel) error {
	sc.Version = SideChannelVersion
	if sc.Files == nil {
		sc.Files = make(map[string][]Entry)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create side-channel dir: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".output.err-*")
	if err != nil {
		return fmt.Errorf("failed to create side-channel file: %w", err)
	}
	tmp := f.Name()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sc); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to encode side-channel file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write side-channel file: %w", err)
	}
	return nil
}

// ErrNoSideChannel is returned when the setup phase has not run.
var ErrNoSideChannel = errors.New("side-channel file not found; run the build phase first")

// ReadSideChannel loads a side-channel file.
func ReadSideChannel(path string) (*SideChannel, error) {
	// #nosec G304 -- path comes from the suite context
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoSideChannel)
		}
		return nil, err
	}
	var sc SideChannel
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%s: invalid side-channel file: %w", path, err)
	}
	if sc.Version != SideChannelVersion {
		return nil, fmt.Errorf("%s: unsupported side-channel version %d (want %d)", path, sc.Version, SideChannelVersion)
	}
	if sc.Files == nil {
		sc.Files = make(map[string][]Entry)
	}
	return &sc, nil
}

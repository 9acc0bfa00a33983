package diag

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSideChannelRoundTrip(t *testing.T) {
	out := NewOutput()
	out.Add(Record{Level: LevelWarn, File: "a.md", Message: "E1|bad ref"})
	out.Add(Record{Level: LevelError, File: "a.md", Line: 12, Column: 4, Message: "bad ref"})
	out.Add(Record{Level: LevelError, Message: "lost", Raw: "ERROR lost"})

	sc := &SideChannel{ContentDir: "/site/tests", Format: FormatPositional, Mode: "line"}
	sc.SetOutput(out)

	path := filepath.Join(t.TempDir(), ".output", SideChannelName)
	if err := WriteSideChannel(path, sc); err != nil {
		t.Fatalf("WriteSideChannel returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"level": "ERROR"`) || !strings.Contains(string(data), `"format": "positional"`) {
		t.Fatalf("unexpected file layout:\n%s", data)
	}

	got, err := ReadSideChannel(path)
	if err != nil {
		t.Fatalf("ReadSideChannel returned error: %v", err)
	}
	recs := got.Records("a.md")
	if len(recs) != 2 || recs[1].Line != 12 || recs[1].Column != 4 || recs[1].File != "a.md" {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if len(got.Records("missing.md")) != 0 {
		t.Fatal("unknown files must have no records")
	}
	if u := got.UnattributableRecords(); len(u) != 1 || u[0].Raw != "ERROR lost" {
		t.Fatalf("unexpected unattributable records: %+v", u)
	}
}

func TestReadSideChannel_Missing(t *testing.T) {
	_, err := ReadSideChannel(filepath.Join(t.TempDir(), SideChannelName))
	if !errors.Is(err, ErrNoSideChannel) {
		t.Fatalf("expected ErrNoSideChannel, got %v", err)
	}
}

func TestUnattributableError(t *testing.T) {
	if CheckAttributed(nil) != nil {
		t.Fatal("no records must not produce an error")
	}
	err := CheckAttributed([]Record{
		{Level: LevelError, File: "b.md", Line: 3, Message: "second"},
		{Level: LevelError, Raw: "ERROR oops\r\nmore", Message: "oops"},
		{Level: LevelError, File: "a.md", Line: 9, Column: 2, Message: "first"},
	})
	var uerr *UnattributableError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *UnattributableError, got %T", err)
	}
	want := "ERROR <unattributable> ERROR oops more\n" +
		"ERROR a.md:9:2 first\n" +
		"ERROR b.md:3 second"
	if !strings.HasSuffix(err.Error(), want) {
		t.Fatalf("unexpected error text:\n%s", err.Error())
	}
	if !strings.HasPrefix(err.Error(), "3 diagnostics") {
		t.Fatalf("unexpected error prefix: %s", err.Error())
	}
}

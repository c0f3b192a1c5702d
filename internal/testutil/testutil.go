// Package testutil provides fixtures for tests that read or write run
// directories.
package testutil

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/smollog/internal/payload"
	"github.com/Iron-Ham/smollog/internal/record"
)

// Root is the log root fixtures are written under.
const Root = "/logs"

// NewFs returns an empty in-memory filesystem.
func NewFs(t *testing.T) afero.Fs {
	t.Helper()
	return afero.NewMemMapFs()
}

// WriteRun creates root/run and writes one record per payload, labelled
// "rec", with sequence numbers starting at zero. It returns the run
// directory.
func WriteRun(t *testing.T, fs afero.Fs, root, run string, payloads ...any) string {
	t.Helper()

	dir := filepath.Join(root, run)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create run dir: %v", err)
	}
	for i, p := range payloads {
		v, err := payload.Normalize(p)
		if err != nil {
			t.Fatalf("failed to normalize payload %d: %v", i, err)
		}
		rec := &record.Record{
			Sequence: uint64(i),
			Label:    "rec",
			Timing:   record.Timing{SinceStart: float64(i), SinceLast: 1},
			Payload:  v,
		}
		WriteRecord(t, fs, dir, rec)
	}
	return dir
}

// WriteRecord renders rec into dir under its default file name.
func WriteRecord(t *testing.T, fs afero.Fs, dir string, rec *record.Record) string {
	t.Helper()

	data, err := rec.Render()
	if err != nil {
		t.Fatalf("failed to render record: %v", err)
	}
	path := filepath.Join(dir, rec.FileName(record.DefaultPadWidth))
	WriteFile(t, fs, path, string(data))
	return path
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// ReadRecords parses every .json file in dir, in listing order.
func ReadRecords(t *testing.T, fs afero.Fs, dir string) []*record.Record {
	t.Helper()

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		t.Fatalf("failed to list %s: %v", dir, err)
	}
	var recs []*record.Record
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := afero.ReadFile(fs, filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("failed to read %s: %v", e.Name(), err)
		}
		rec, err := record.Parse(data)
		if err != nil {
			t.Fatalf("failed to parse %s: %v", e.Name(), err)
		}
		recs = append(recs, rec)
	}
	return recs
}

// FixedClock returns a clock that starts at start and advances by step on
// every call.
func FixedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

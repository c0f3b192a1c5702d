package session

import (
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func setupTestRun(t *testing.T, fs afero.Fs, root, name string, records int) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create run dir: %v", err)
	}
	for i := range records {
		path := filepath.Join(dir, filepath.Base(name)+"-"+string(rune('a'+i))+RecordExt)
		if err := afero.WriteFile(fs, path, []byte(`{"_payload":null}`), 0644); err != nil {
			t.Fatalf("failed to write record: %v", err)
		}
	}
}

func TestRunDirName(t *testing.T) {
	ts := time.Date(2026, 10, 18, 9, 5, 7, 999_000_000, time.FixedZone("X", 2*3600))
	if got := RunDirName(ts); got != "2026-10-18 07-05-07" {
		t.Errorf("RunDirName() = %q, want %q", got, "2026-10-18 07-05-07")
	}
}

func TestParseRunDirName(t *testing.T) {
	want := time.Date(2026, 10, 18, 7, 5, 7, 0, time.UTC)

	tests := []struct {
		name string
		ok   bool
	}{
		{"2026-10-18 07-05-07", true},
		{"2026-10-18 07-05-07-3", true},
		{"not a run", false},
		{"2026-10-18T07-05-07", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRunDirName(tt.name)
			if ok != tt.ok {
				t.Fatalf("ParseRunDirName() ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(want) {
				t.Errorf("ParseRunDirName() = %v, want %v", got, want)
			}
		})
	}
}

func TestListRuns(t *testing.T) {
	fs := afero.NewMemMapFs()
	setupTestRun(t, fs, "/logs", "2026-10-18 07-05-07", 3)
	setupTestRun(t, fs, "/logs", "2026-10-18 08-00-00", 0)
	if err := afero.WriteFile(fs, "/logs/logs.tsv", []byte("h\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/logs/2026-10-18 07-05-07/notes.txt", []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	runs, err := ListRuns(fs, "/logs")
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	byName := make(map[string]*RunInfo)
	for _, r := range runs {
		byName[r.Name] = r
	}
	first := byName["2026-10-18 07-05-07"]
	if first == nil || first.Records != 3 {
		t.Errorf("expected 3 records in first run, got %+v", first)
	}
	if first != nil && first.Started.Hour() != 7 {
		t.Errorf("Started = %v", first.Started)
	}

	empty, err := FindEmptyRuns(fs, "/logs")
	if err != nil {
		t.Fatalf("FindEmptyRuns() error = %v", err)
	}
	if len(empty) != 1 || empty[0].Name != "2026-10-18 08-00-00" {
		t.Errorf("FindEmptyRuns() = %+v", empty)
	}
}

func TestCompareRunNames(t *testing.T) {
	names := []string{
		"scratch",
		"2026-10-18 07-05-07-10",
		"2026-10-19 00-00-00",
		"2026-10-18 07-05-07-2",
		"2026-10-18 07-05-07",
		"2026-10-18 07-05-07-x",
	}
	slices.SortFunc(names, CompareRunNames)

	want := []string{
		"2026-10-18 07-05-07",
		"2026-10-18 07-05-07-2",
		"2026-10-18 07-05-07-10",
		"2026-10-19 00-00-00",
		"2026-10-18 07-05-07-x",
		"scratch",
	}
	if !slices.Equal(names, want) {
		t.Errorf("sorted = %q, want %q", names, want)
	}
}

func TestListRuns_CollisionOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	setupTestRun(t, fs, "/logs", "2026-10-18 07-05-07-10", 1)
	setupTestRun(t, fs, "/logs", "2026-10-18 07-05-07-2", 1)
	setupTestRun(t, fs, "/logs", "2026-10-18 07-05-07", 1)

	runs, err := ListRuns(fs, "/logs")
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	var got []string
	for _, r := range runs {
		got = append(got, r.Name)
	}
	want := []string{"2026-10-18 07-05-07", "2026-10-18 07-05-07-2", "2026-10-18 07-05-07-10"}
	if !slices.Equal(got, want) {
		t.Errorf("ListRuns() order = %q, want %q", got, want)
	}
}

func TestListRuns_MissingRoot(t *testing.T) {
	runs, err := ListRuns(afero.NewMemMapFs(), "/nowhere")
	if err != nil {
		t.Errorf("ListRuns() error = %v, want nil", err)
	}
	if runs != nil {
		t.Errorf("ListRuns() = %v, want nil", runs)
	}
}

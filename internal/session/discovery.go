package session

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// DefaultRoot is the directory run directories are created under.
const DefaultRoot = ".logs"

// RunDirLayout is the time layout of run directory names before ':' is
// replaced with '-'.
const RunDirLayout = "2006-01-02 15:04:05"

// RecordExt is the extension of persisted record files.
const RecordExt = ".json"

// RunInfo summarizes one run directory.
type RunInfo struct {
	Name    string    `json:"name"`
	Dir     string    `json:"dir"`
	Started time.Time `json:"started"`
	Records int       `json:"records"`
}

// RunDirName returns the run directory name for a session started at t:
// the UTC time truncated to whole seconds, with the date and time
// separated by a space and ':' replaced by '-'.
func RunDirName(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format(RunDirLayout), ":", "-")
}

// ParseRunDirName recovers the start time encoded in a run directory name.
// A collision suffix ("-2") is ignored.
func ParseRunDirName(name string) (time.Time, bool) {
	if len(name) < len(RunDirLayout) {
		return time.Time{}, false
	}
	stamp := name[:len(RunDirLayout)]
	// Put the colons back in the time part only.
	date, clock, ok := strings.Cut(stamp, " ")
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(RunDirLayout, date+" "+strings.ReplaceAll(clock, "-", ":"))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// runSuffix returns the collision suffix of a run directory name: 1 for the
// first run of a second, N for "-N".
func runSuffix(name string) (int, bool) {
	rest := name[len(RunDirLayout):]
	if rest == "" {
		return 1, true
	}
	n, err := strconv.Atoi(strings.TrimPrefix(rest, "-"))
	if err != nil || !strings.HasPrefix(rest, "-") {
		return 0, false
	}
	return n, true
}

// CompareRunNames orders run directory names by start time, then by
// collision suffix, so "-10" follows "-9". Names that are not run
// directories compare as plain strings after every run directory.
func CompareRunNames(a, b string) int {
	ta, okA := ParseRunDirName(a)
	tb, okB := ParseRunDirName(b)
	var na, nb int
	if okA {
		na, okA = runSuffix(a)
	}
	if okB {
		nb, okB = runSuffix(b)
	}
	switch {
	case okA && okB:
		if c := ta.Compare(tb); c != 0 {
			return c
		}
		return cmp.Compare(na, nb)
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}

// uniqueRunDir returns root/name, adding "-N" until the path does not exist.
func uniqueRunDir(fs afero.Fs, root, name string) (string, error) {
	dir := filepath.Join(root, name)
	for i := 2; ; i++ {
		exists, err := afero.Exists(fs, dir)
		if err != nil {
			return "", fmt.Errorf("failed to check run directory: %w", err)
		}
		if !exists {
			return dir, nil
		}
		dir = filepath.Join(root, fmt.Sprintf("%s-%d", name, i))
	}
}

// ListRuns returns information about every run directory under root, oldest
// first. A missing root yields no runs and no error.
func ListRuns(fs afero.Fs, root string) ([]*RunInfo, error) {
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []*RunInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := GetRunInfo(fs, root, entry.Name())
		if err != nil {
			// Skip runs we can't read
			continue
		}
		runs = append(runs, info)
	}
	slices.SortFunc(runs, func(a, b *RunInfo) int { return CompareRunNames(a.Name, b.Name) })
	return runs, nil
}

// GetRunInfo counts the records in one run directory.
func GetRunInfo(fs afero.Fs, root, name string) (*RunInfo, error) {
	dir := filepath.Join(root, name)
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == RecordExt {
			count++
		}
	}

	started, _ := ParseRunDirName(name)
	return &RunInfo{
		Name:    name,
		Dir:     dir,
		Started: started,
		Records: count,
	}, nil
}

// FindEmptyRuns returns the run directories under root that hold no records.
func FindEmptyRuns(fs afero.Fs, root string) ([]*RunInfo, error) {
	runs, err := ListRuns(fs, root)
	if err != nil {
		return nil, err
	}

	var empty []*RunInfo
	for _, r := range runs {
		if r.Records == 0 {
			empty = append(empty, r)
		}
	}
	return empty, nil
}

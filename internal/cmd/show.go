package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/smollog/internal/config"
	"github.com/Iron-Ham/smollog/internal/console"
	"github.com/Iron-Ham/smollog/internal/errors"
	"github.com/Iron-Ham/smollog/internal/record"
	"github.com/Iron-Ham/smollog/internal/session"
)

var showCmd = &cobra.Command{
	Use:   "show [run]",
	Short: "Print the records of a run",
	Long: `Print the records of one run directory the way the console mirror
shows them while logging.

By default, shows the most recent run.

Examples:
  # Show every record of the latest run
  smollog show

  # Show the last 5 records of a specific run
  smollog show "2026-10-18 07-05-07" -n 5

  # Only records whose label matches a pattern
  smollog show --grep "^fetch"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

var (
	showRoot string
	showTail int
	showGrep string
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&showRoot, "dir", "d", "", "Log root (default: session.root_dir)")
	showCmd.Flags().IntVarP(&showTail, "tail", "n", 0, "Number of records to show (0 for all)")
	showCmd.Flags().StringVar(&showGrep, "grep", "", "Only show records whose label matches pattern (regex)")
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	root := cfg.Session.RootDir
	if showRoot != "" {
		root = showRoot
	}

	var pattern *regexp.Regexp
	if showGrep != "" {
		if pattern, err = regexp.Compile(showGrep); err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	run, err := resolveRun(root, args)
	if err != nil {
		return err
	}

	recs, err := readRun(cmd, filepath.Join(root, run))
	if err != nil {
		return err
	}
	if pattern != nil {
		filtered := recs[:0]
		for _, rec := range recs {
			if pattern.MatchString(rec.Label) {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}
	if showTail > 0 && len(recs) > showTail {
		recs = recs[len(recs)-showTail:]
	}

	mirror := console.New(cmd.OutOrStdout(), console.Options{Color: cfg.Console.Color, MaxWidth: cfg.Console.MaxWidth})
	for _, rec := range recs {
		mirror.Record(rec.Name(cfg.Session.PadWidth), rec.CallSite, rec.Timing.SinceStart, rec.Payload)
	}
	return nil
}

// resolveRun returns the named run, or the most recent one. A named run must
// be a plain directory name under root.
func resolveRun(root string, args []string) (string, error) {
	if len(args) == 1 {
		name := args[0]
		if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
			return "", errors.NewValidationError("run must be a directory name inside the log root").
				WithField("run").WithValue(name)
		}
		return name, nil
	}
	runs, err := session.ListRuns(appFs, root)
	if err != nil {
		return "", fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		return "", errors.NewNotFoundError("run", root)
	}
	return runs[len(runs)-1].Name, nil
}

// readRun parses the records of dir in sequence order. Files that do not
// parse are reported and skipped.
func readRun(cmd *cobra.Command, dir string) ([]*record.Record, error) {
	entries, err := afero.ReadDir(appFs, dir)
	if err != nil {
		return nil, errors.NewNotFoundError("run directory", dir).WithCause(err)
	}
	slices.SortFunc(entries, func(a, b os.FileInfo) int { return record.CompareFileNames(a.Name(), b.Name()) })

	var recs []*record.Record
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != session.RecordExt {
			continue
		}
		data, err := afero.ReadFile(appFs, filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		rec, err := record.Parse(data)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: %v\n", e.Name(), err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

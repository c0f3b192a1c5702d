package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/smollog/internal/config"
	"github.com/Iron-Ham/smollog/internal/session"
	"github.com/Iron-Ham/smollog/internal/util"
)

var runsCmd = &cobra.Command{
	Use:   "runs [dir]",
	Short: "List run directories",
	Long: `List the run directories under the log root with their record counts.

Use --empty to show only runs that hold no records, and --prune to remove
them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

var (
	runsEmpty bool
	runsPrune bool
)

// maxRunNameWidth keeps the listing aligned for suffixed run names.
const maxRunNameWidth = 24

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().BoolVar(&runsEmpty, "empty", false, "Only list runs with no records")
	runsCmd.Flags().BoolVar(&runsPrune, "prune", false, "Remove runs with no records")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	root := cfg.Session.RootDir
	if len(args) == 1 {
		root = args[0]
	}

	var runs []*session.RunInfo
	if runsEmpty || runsPrune {
		runs, err = session.FindEmptyRuns(appFs, root)
	} else {
		runs, err = session.ListRuns(appFs, root)
	}
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if runsPrune {
		removed := 0
		for _, r := range runs {
			if err := appFs.RemoveAll(r.Dir); err != nil {
				fmt.Fprintf(out, "  failed to remove %s: %v\n", r.Name, err)
				continue
			}
			removed++
		}
		fmt.Fprintf(out, "Removed %d empty run(s)\n", removed)
		return nil
	}

	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "Runs in %s\n", root)
	fmt.Fprintln(out, strings.Repeat("─", 60))

	if len(runs) == 0 {
		fmt.Fprintln(out, "\nNo runs found.")
		return nil
	}

	fmt.Fprintf(out, "\nFound %d run(s):\n\n", len(runs))
	for _, r := range runs {
		started := "unknown start"
		if !r.Started.IsZero() {
			started = r.Started.Local().Format(time.RFC822)
		}
		fmt.Fprintf(out, "  %-*s %5d record(s)  %s\n",
			maxRunNameWidth, util.TruncateString(r.Name, maxRunNameWidth), r.Records, started)
	}
	return nil
}

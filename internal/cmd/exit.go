package cmd

import (
	"fmt"
	"io"

	"github.com/Iron-Ham/smollog/internal/errors"
)

// Process exit codes returned by Report.
const (
	ExitOK    = 0
	ExitError = 1
	// ExitFatal marks a misconfiguration that no retry will fix.
	ExitFatal = 2
)

// Report prints err to w and returns the exit code for it.
func Report(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(w, "Error: %v\n", err)

	var le errors.LoggerError
	if errors.As(err, &le) {
		if errors.IsRetryable(err) {
			fmt.Fprintln(w, "The operation was interrupted and can be retried.")
		}
		if !errors.IsUserFacing(err) {
			fmt.Fprintln(w, "This is an internal error; see the diagnostics log for details.")
		}
	}

	if errors.IsFatal(err) {
		return ExitFatal
	}
	return ExitError
}

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/smollog/internal/callsite"
	"github.com/Iron-Ham/smollog/internal/config"
	"github.com/Iron-Ham/smollog/internal/payload"
	"github.com/Iron-Ham/smollog/internal/session"
)

var logCmd = &cobra.Command{
	Use:   "log <label> [json]",
	Short: "Record one payload",
	Long: `Record one labelled JSON payload in a new run directory.

The payload is read from the second argument, or from stdin when it is
omitted. Key order is preserved.

Examples:
  smollog log "user loaded" '{"id": 7, "name": "ada"}'
  curl -s https://example.com/api | smollog log response
  smollog log step '[1, 2, 3]' --field build=42`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLog,
}

var (
	logRoot      string
	logFields    []string
	logNoPersist bool
	logQuiet     bool
)

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().StringVarP(&logRoot, "dir", "d", "", "Log root (default: session.root_dir)")
	logCmd.Flags().StringArrayVarP(&logFields, "field", "f", nil, "Extra field as key=value; the value is parsed as JSON when possible")
	logCmd.Flags().BoolVar(&logNoPersist, "no-persist", false, "Print the record without writing it")
	logCmd.Flags().BoolVarP(&logQuiet, "quiet", "q", false, "Do not mirror the record to the console")
}

func runLog(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	raw, err := readPayload(cmd, args)
	if err != nil {
		return err
	}
	v, err := payload.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	opts := cfg.SessionOptions()
	if logRoot != "" {
		opts.Root = logRoot
	}
	if logNoPersist {
		opts.Persist = false
	}
	if logQuiet {
		opts.MirrorToConsole = false
	}
	opts.Fs = appFs
	opts.Console = cmd.OutOrStdout()
	opts.Resolver = callsite.None()
	opts.Logger = logger

	s, err := session.New(opts)
	if err != nil {
		return err
	}

	for _, kv := range logFields {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --field %q: expected key=value", kv)
		}
		s, err = s.With(key, fieldValue(value))
		if err != nil {
			return err
		}
	}

	_, err = s.Log(args[0], v)
	return err
}

func readPayload(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 2 {
		return []byte(args[1]), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read payload from stdin: %w", err)
	}
	return data, nil
}

// fieldValue parses s as JSON, falling back to the literal string.
func fieldValue(s string) any {
	if v, err := payload.Parse([]byte(s)); err == nil {
		return v
	}
	return s
}

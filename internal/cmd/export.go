package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/smollog/internal/config"
	"github.com/Iron-Ham/smollog/internal/errors"
	"github.com/Iron-Ham/smollog/internal/flatten"
	"github.com/Iron-Ham/smollog/internal/util"
)

var exportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Flatten every record into one TSV table",
	Long: `Flatten the records of every run directory under the log root into a
single tab-separated table written next to the run directories.

The columns come from the first record of the first run directory. Records
with a different shape produce rows of a different width; pass --strict to
fail on them instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

var (
	exportOutput   string
	exportStrict   bool
	exportCompress bool
)

// maxSourceWidth bounds how much of a record path is shown per ragged row.
const maxSourceWidth = 72

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Artifact file name (default: export.output)")
	exportCmd.Flags().BoolVar(&exportStrict, "strict", false, "Fail on records whose shape differs from the first")
	exportCmd.Flags().BoolVar(&exportCompress, "compress", false, "Write the artifact zstd-compressed")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	root := cfg.Session.RootDir
	if len(args) == 1 {
		root = args[0]
	}
	applyExportFlags(cmd, cfg)
	if errs := cfg.Validate(); len(errs) > 0 {
		return config.ValidationErrors(errs)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	opts := cfg.FlattenOptions()
	opts.Logger = logger

	out := cmd.OutOrStdout()
	path, table, err := flatten.New(appFs, opts).Export(root)
	if errors.Is(err, errors.ErrNoData) {
		fmt.Fprintf(out, "No records found under %s\n", root)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Exported %d row(s) x %d column(s) to %s\n", len(table.Rows), len(table.Headers), path)
	if ragged := table.Ragged(); len(ragged) > 0 {
		fmt.Fprintf(out, "%d row(s) do not match the header width:\n", len(ragged))
		for _, i := range ragged {
			fmt.Fprintf(out, "  %s (%d cells)\n", util.TruncateString(table.Sources[i], maxSourceWidth), len(table.Rows[i]))
		}
	}
	return nil
}

// applyExportFlags lets explicitly set flags override the config file.
func applyExportFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Export.Output = exportOutput
	}
	if flags.Changed("strict") {
		cfg.Export.Strict = exportStrict
	}
	if flags.Changed("compress") {
		cfg.Export.Compress = exportCompress
	}
}

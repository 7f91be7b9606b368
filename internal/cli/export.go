package cli

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbourn/daily-verse/internal/domain"
	"github.com/tbourn/daily-verse/internal/locale"
	"github.com/tbourn/daily-verse/internal/repo"
	"github.com/tbourn/daily-verse/internal/services"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Out string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the prayer request log as CSV",
		Long: `Export the prayer request log (REQUESTS_PATH) as CSV, using the same
header and quoting as GET /export.csv.

Example:
  daily-verse export > requests.csv
  daily-verse export --out /tmp/prayer_requests.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	svc := &services.ExportService{
		Requests: repo.NewJSONFile[domain.PrayerRequest](cfg.RequestsPath),
		Labels:   locale.For(cfg.Locale),
	}

	if opts.Out == "" {
		w := bufio.NewWriter(cmd.OutOrStdout())
		if err := svc.WriteCSV(cmd.Context(), w); err != nil {
			return WrapExitError(ExitFailure, "export", err)
		}
		return w.Flush()
	}

	// Build the document first so a failed export leaves no file behind.
	data, err := svc.ExportCSV(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "export", err)
	}
	if err := os.WriteFile(opts.Out, data, 0o644); err != nil {
		return WrapExitError(ExitFailure, "write "+opts.Out, err)
	}
	return nil
}

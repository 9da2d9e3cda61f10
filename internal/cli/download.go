package cli

import (
	"fmt"

	"github.com/ppiankov/openinfo/internal/pipeline"
	"github.com/spf13/cobra"
)

var downloadReport string

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch and measure the documents of every stored record",
	Long: `Download visits every stored record, fetches attachments that are not yet on
disk, measures them with pdfinfo, tiffinfo, mediainfo or the built-in
spreadsheet readers, and rewrites the record's page, row and duration totals.

Documents already on disk are not fetched again, and measured documents are
not analyzed again.`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVar(&downloadReport, "report", "", "write the run report as JSON to this path")
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd, cfg)

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	report, runErr := p.Download(ctx)
	if err := p.RenderReport(report, reportPath(downloadReport, cfg.Output.ReportPath), cfg.Output.Verbose); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("download failed: %w", runErr)
	}
	return nil
}

// reportPath prefers the flag over the configured path
func reportPath(flag, configured string) string {
	if flag != "" {
		return flag
	}
	return configured
}

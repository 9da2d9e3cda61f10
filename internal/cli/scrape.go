package cli

import (
	"fmt"

	"github.com/ppiankov/openinfo/internal/model"
	"github.com/ppiankov/openinfo/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	scrapeDate   string
	scrapeReport string
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Walk the monthly listings and store accepted records",
	Long: `Scrape walks every listing page of the selected months, cross-validates each
row against its detail page, and upserts accepted records into the datastore.

Rows that fail validation are reported and skipped. A change in page structure
aborts the run.

Example:
  openinfo scrape                 # every month on the portal
  openinfo scrape --date 2015     # every month of 2015
  openinfo scrape --date 2015-11 --report scrape.json`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVar(&scrapeDate, "date", "", "restrict to a year (YYYY) or month (YYYY-MM)")
	scrapeCmd.Flags().StringVar(&scrapeReport, "report", "", "write the run report as JSON to this path")
}

func runScrape(cmd *cobra.Command, args []string) error {
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

	report, runErr := p.Scrape(ctx, scrapeDate)
	if err := p.RenderReport(report, reportPath(scrapeReport, cfg.Output.ReportPath), cfg.Output.Verbose); err != nil {
		return err
	}
	if model.IsFatal(runErr) {
		return fmt.Errorf("scrape aborted, portal markup changed: %w", runErr)
	}
	if runErr != nil {
		return fmt.Errorf("scrape failed: %w", runErr)
	}
	return nil
}

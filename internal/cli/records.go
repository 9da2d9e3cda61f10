package cli

import (
	"github.com/ppiankov/openinfo/internal/pipeline"
	"github.com/spf13/cobra"
)

var recordsLimit int

// recordsCmd represents the records command
var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List stored records, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		records, err := p.Records(ctx, recordsLimit)
		if err != nil {
			return err
		}
		pipeline.NewRenderer(cmd.OutOrStdout()).RenderRecords(records)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordsCmd)

	recordsCmd.Flags().IntVar(&recordsLimit, "limit", 50, "maximum records to list (0 for all)")
}

package main

import (
	"github.com/spf13/cobra"

	"profilesync/pkg/runner"
	"profilesync/pkg/targets"
)

// targetsCmd represents the pending-targets drain command
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Drain the pending rows of the Target tab",
	Long: `Read the Target tab, process every row whose status is pending, and
mark each row completed or failed with a remark. Designed to run on a
schedule: each invocation drains whatever is pending and exits.`,
	Example: `  # Process all pending targets
  profilesync targets

  # Process at most 20 pending targets
  profilesync targets --max-per-run 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync("targets", func(a *app) (runner.Source, runner.StatusUpdater) {
			queue := targets.NewQueue(a.client, a.writer, a.cfg.Sheets.TargetTab, a.cfg.Sync.MaxPerRun, a.log)
			return queue, queue
		})
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)

	targetsCmd.Flags().StringVar(&spreadsheetID, "spreadsheet-id", "", "spreadsheet to sync into")
	targetsCmd.Flags().IntVar(&maxPerRun, "max-per-run", -1, "cap on targets processed per run")
}

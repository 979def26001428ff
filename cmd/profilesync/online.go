package main

import (
	"github.com/spf13/cobra"

	"profilesync/pkg/runner"
	"profilesync/pkg/targets"
)

var (
	// Shared sync command flags
	spreadsheetID string
	maxPerRun     int
)

// onlineCmd represents the online sweep command
var onlineCmd = &cobra.Command{
	Use:   "online",
	Short: "Sweep the currently online users into the spreadsheet",
	Long: `Fetch the site's online-users listing and synchronize every listed
profile into the spreadsheet. Profiles not seen before are appended, known
ones are updated in place when anything changed.`,
	Example: `  # Sweep online users with default settings
  profilesync online

  # Limit the sweep to 50 profiles
  profilesync online --max-per-run 50`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync("online", func(a *app) (runner.Source, runner.StatusUpdater) {
			source := targets.NewOnlineSource(a.fetcher, a.cfg.Sync.MaxPerRun, a.log)
			return source, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(onlineCmd)

	onlineCmd.Flags().StringVar(&spreadsheetID, "spreadsheet-id", "", "spreadsheet to sync into")
	onlineCmd.Flags().IntVar(&maxPerRun, "max-per-run", -1, "cap on profiles processed per run")
}

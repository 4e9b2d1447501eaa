package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rekindle",
	Short: "Reconnect suggestions from relationship signals and calendar availability",
	Long:  "Rekindle recommends when to catch up with people you care about, and when a few of them could share one gathering, by matching relationship signals against open calendar windows. Single Go binary.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(importCmd)
}

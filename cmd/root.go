package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "venuebot",
	Short: "Telegram bot that finds food venues near a shared location",
	Long: `venuebot relays Telegram location messages to the Foursquare venues API
and answers /venueN and /tipsN follow-ups from the last search.

Run "venuebot serve" for the Telegram ingress and "venuebot serve --worker"
(or WORKER=1) for the queue worker.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

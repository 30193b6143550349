package cli

import (
	"github.com/spf13/cobra"

	"bridge-wrapped/internal/app"
)

var (
	statsYear  int
	statsJSON  bool
	statsShare bool
)

var statsCmd = &cobra.Command{
	Use:   "stats <address>",
	Short: "Compute the wrapped summary for one wallet and year",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Stats(cmd.Context(), cmd.OutOrStdout(), app.StatsOptions{
			Address: args[0],
			Year:    statsYear,
			JSON:    statsJSON,
			Share:   statsShare,
		})
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsYear, "year", 0, "Calendar year (UTC); defaults to app.default_year")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the full result as JSON")
	statsCmd.Flags().BoolVar(&statsShare, "share", false, "Post a summary to the configured Telegram chat")
}

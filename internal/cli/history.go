package cli

import (
	"github.com/spf13/cobra"

	"bridge-wrapped/internal/app"
)

var (
	historyLimit   int
	historyAddress string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent aggregation runs from the run log",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().History(cmd.Context(), cmd.OutOrStdout(), app.HistoryOptions{
			Limit:   historyLimit,
			Address: historyAddress,
		})
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to display")
	historyCmd.Flags().StringVar(&historyAddress, "address", "", "Only show runs for this wallet")
}

package cli

import (
	"github.com/spf13/cobra"

	"bridge-wrapped/internal/app"
)

var (
	exportYear    int
	exportPNGPath string
	exportCSVPath string
)

var exportCmd = &cobra.Command{
	Use:   "export <address>",
	Short: "Export a wallet's year as a transaction CSV and/or monthly PNG chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Export(cmd.Context(), app.ExportOptions{
			Address: args[0],
			Year:    exportYear,
			PNGPath: exportPNGPath,
			CSVPath: exportCSVPath,
		})
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportYear, "year", 0, "Calendar year (UTC); defaults to app.default_year")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write the monthly activity chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write the deduplicated transactions")
}

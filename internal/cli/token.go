package cli

import (
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <address>...",
	Short: "Resolve ERC-20 metadata for contract addresses",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Token(cmd.Context(), cmd.OutOrStdout(), args)
	},
}

package cmd

import (
	"tiffsrv/internal/core/service"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <name>...",
	Short: "Delete converted images and print the results as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := wire(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		results, status := service.ApplyBatch(cmd.Context(), args, cfg.BatchConcurrency, s.deleter.Delete)

		return report(cmd.OutOrStdout(), results, status)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

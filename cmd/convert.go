package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"tiffsrv/internal/core/domain"
	"tiffsrv/internal/core/service"

	"github.com/spf13/cobra"
)

var errBatchFailed = errors.New("one or more images failed")

var convertCmd = &cobra.Command{
	Use:   "convert [flags] <name>...",
	Short: "Convert images once and print the results as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := wire(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		compression, _ := cmd.Flags().GetString("compression")
		quality, _ := cmd.Flags().GetString("quality")
		tileSize, _ := cmd.Flags().GetString("tilesize")
		params := cfg.Defaults.Resolve(compression, quality, tileSize)

		results, status := service.ApplyBatch(cmd.Context(), args, cfg.BatchConcurrency,
			func(ctx context.Context, name string) *domain.ConversionResult {
				return s.converter.Convert(ctx, name, params)
			})

		return report(cmd.OutOrStdout(), results, status)
	},
}

func report(w io.Writer, results any, status domain.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}

	if status != domain.OutcomeOK {
		return errBatchFailed
	}

	return nil
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().String("compression", "", "compression scheme (none, deflate, jpeg, webp, lzw, zstd)")
	convertCmd.Flags().String("quality", "", "compression quality")
	convertCmd.Flags().String("tilesize", "", "tile edge length in pixels")
}

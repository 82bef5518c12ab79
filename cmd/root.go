package cmd

import (
	"os"
	"tiffsrv/internal/config"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tiffsrv",
	Short: "Convert source images into tiled pyramid TIFFs",
	Long: `tiffsrv turns images below an input prefix into tiled multi-resolution TIFFs below an output
prefix. Missing sources can be fetched from an S3 compatible bucket.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("could not read .env file")
		}

		v := viper.New()
		if err := v.BindPFlag("log.level", cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
			return err
		}

		c, err := config.Load(v, configFile)
		if err != nil {
			return err
		}

		if c.LogConsole {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		}
		zerolog.SetGlobalLevel(c.LogLevel)

		cfg = c
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional TOML config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
}

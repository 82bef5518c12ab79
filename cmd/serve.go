package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"tiffsrv/internal/adapters/handler"
	"tiffsrv/internal/core/service"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP conversion end-point",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		s, err := wire(ctx, cfg)
		if err != nil {
			return err
		}

		h := handler.NewHTTP(s.converter, s.deleter, service.NewTokenAuthorizer(cfg.Token), cfg.Defaults,
			cfg.BatchConcurrency)

		srv := &http.Server{
			Addr:              cfg.Address,
			Handler:           h.Routes(s.metrics.Handler()),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errs := make(chan error, 1)
		go func() {
			log.Info().
				Str("address", cfg.Address).
				Str("input", cfg.Paths.Input).
				Str("output", cfg.Paths.Output).
				Msg("server listening")
			errs <- srv.ListenAndServe()
		}()

		select {
		case err := <-errs:
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down")

		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()

		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

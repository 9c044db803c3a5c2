package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	serverhttp "sekolah-service/server/http"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.EnsureSchema(ctx); err != nil {
				return err
			}

			r := serverhttp.NewRouter(a.cfg, a.svc, a.backups, a.logger)
			srv := &http.Server{Addr: a.cfg.Addr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
			a.logger.Info().Str("addr", a.cfg.Addr()).Msg("server starting")

			errc := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			// graceful shutdown
			a.logger.Info().Msg("server shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
			a.logger.Info().Msg("bye")
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schools and import log tables if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.store.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			caps := a.store.Capabilities()
			a.logger.Info().
				Bool("import_logs", caps.ImportLogs).
				Bool("strategy_column", caps.StrategyColumn).
				Bool("normalization_log", caps.NormalizationLog).
				Msg("schema ready")
			return nil
		},
	}
}

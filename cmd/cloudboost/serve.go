package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/app"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and background worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Error("failed to close resources", "error", err)
				}
			}()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var wg sync.WaitGroup
			workerCtx, cancelWorker := context.WithCancel(context.Background())
			if cfg.Worker.Enabled {
				wg.Add(1)
				go func() {
					defer wg.Done()
					a.Dispatcher.Start(workerCtx)
				}()
			}

			server := &http.Server{
				Addr:         cfg.Addr(),
				Handler:      a.Handler,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", "addr", server.Addr, "environment", cfg.Environment, "version", cfg.Version)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				cancelWorker()
				wg.Wait()
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			err = server.Shutdown(shutdownCtx)

			cancelWorker()
			wg.Wait()
			if err != nil {
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solewatch/solewatch/internal/api"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with a periodic refresh loop.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFromContext(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := api.NewServer(a.Cache, api.Config{
				DefaultUpcomingDays: a.Config.Cache.DefaultUpcomingDays,
			}, a.Logger)

			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// The ticker only re-evaluates staleness; the coordinator decides
			// whether a refresh is actually warranted.
			go func() {
				a.Cache.Get(ctx, false)
				ticker := time.NewTicker(a.Config.RefreshCheckInterval())
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						a.Cache.Get(ctx, false)
					}
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				a.Logger.Info("http server listening", zap.Int("port", a.Config.Server.Port))
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				a.Logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("http shutdown: %w", err)
				}
				return nil
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("http server: %w", err)
			}
		},
	}
}

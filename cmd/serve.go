package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadikovi/pulsar/api"
	"github.com/sadikovi/pulsar/cache"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the exploration API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			policy, err := loadPolicy()
			if err != nil {
				return fmt.Errorf("load policy: %w", err)
			}

			c := cache.New(ctx, cfg.RedisURL, logger)
			sessions := api.NewSessionManager(cfg.SessionTTL, logger)
			defer sessions.Close()

			handlers := api.NewHandlers(store, c, cfg.CacheTTL, sessions, policy, logger)

			if addr == "" {
				addr = cfg.ListenAddr
			}
			srv := api.NewServer(addr, handlers, logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("[serve] Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides PULSAR_ADDR)")
	return cmd
}

package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/facereader/facereader/internal/config"
	"github.com/facereader/facereader/internal/facemap"
	"github.com/facereader/facereader/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(getConfig func() *config.Config) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for the face reading interface",
		Long: `Starts the facereader web interface and JSON API.

Photos and readings live in memory only and disappear when the server stops.
The analysis provider is chosen with ANALYSIS_PROVIDER (gemini, openai, ollama).`,
		Example: `  # Start server on default port 8888
  facereader serve

  # Start server on custom port
  facereader serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			svc, catalog, err := newAnalysisService(cfg)
			if err != nil {
				return err
			}
			fm, err := facemap.Load(catalog)
			if err != nil {
				return err
			}
			handler, err := handlers.New(cfg, catalog, svc, fm)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go handler.PruneVisitors(ctx)

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("facereader interface available", "addr", addr, "url", "http://localhost"+addr, "provider", svc.Provider(), "model", cfg.Model())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				// Give in-flight readings time to finish
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (overrides PORT)")

	return cmd
}

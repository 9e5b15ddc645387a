package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"promoscan/internal/server"
)

var (
	addr   string
	apiKey string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start an HTTP server that triggers runs and serves the latest promotions",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	cmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("PROMOSCAN_API_KEY"), "API key required on /api endpoints, defaults to PROMOSCAN_API_KEY env var")
	return cmd
}

func serve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if apiKey != "" {
		cfg.Server.APIKey = apiKey
	}

	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	var history server.History
	if p.history != nil {
		history = p.history
	}
	handler := server.NewHandler(p.runner.Run, history, cfg.Output.Path, cfg.Output.Format)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewServer(handler, cfg.Server.APIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"battlelog/internal/backend"
	"battlelog/internal/config"
	"battlelog/internal/logging"
	"battlelog/internal/server"
	"battlelog/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the command gateway over HTTP",
	Long: `Runs the command backend over the local SQLite database and serves it at
POST /invoke, so other battlelog instances can use gateway.mode: http.

Also serves GET /healthz, GET /commands and, when server.metrics is on,
GET /metrics. Logging settings are reloaded when config.yaml changes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "Listen address (default: server.listen)")
}

func runServe(cmd *cobra.Command, args []string) error {
	listen, _ := cmd.Flags().GetString("listen")
	if listen == "" {
		listen = cfg.Server.Listen
	}

	st, err := store.Open(cfg.Store.Driver, cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	srv := server.New(backend.NewHandler(st), server.Options{Metrics: cfg.Server.Metrics, Registry: reg})

	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if w, err := config.Watch(path, func(c *config.Config) {
		logging.Apply(c.Logging.Settings())
		logger.Info("Config reloaded", zap.String("path", path), zap.String("level", c.Logging.Level))
	}); err != nil {
		logger.Warn("Config watching disabled", zap.Error(err))
	} else {
		defer w.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(listen)
	}()
	logger.Info("Serving command gateway",
		zap.String("listen", listen),
		zap.String("db", st.Path()),
		zap.Bool("metrics", cfg.Server.Metrics))

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}

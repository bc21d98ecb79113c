package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/inboxkeeper/internal/core/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ingest and process on an interval, exposing health and metrics",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Duration("interval", 0, "override serve.interval")
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("interval") {
		cfg.Serve.Interval, _ = cmd.Flags().GetDuration("interval")
	}

	engine, err := loadEngine("")
	if err != nil {
		return err
	}
	store, database, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	health, err := server.NewHealthServer(cfg.Serve.HealthAddr)
	if err != nil {
		return err
	}
	metricsServer := server.NewMetricsServer(cfg.Serve.MetricsAddr)

	cycle := func(ctx context.Context) error {
		if _, err := ingestOnce(ctx, store); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		if _, err := processOnce(ctx, store, engine); err != nil {
			return fmt.Errorf("process: %w", err)
		}
		return nil
	}
	scheduler, err := server.NewScheduler(cfg.Serve.Interval, cycle, health, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting inboxkeeper",
		zap.String("version", Version),
		zap.String("health_addr", cfg.Serve.HealthAddr),
		zap.String("metrics_addr", cfg.Serve.MetricsAddr),
		zap.Duration("interval", cfg.Serve.Interval))

	errChan := make(chan error, 2)
	go func() { errChan <- health.Start() }()
	go func() { errChan <- metricsServer.Start() }()

	done := make(chan struct{})
	go func() {
		_ = scheduler.Run(ctx)
		close(done)
	}()

	var serveErr error
	select {
	case serveErr = <-errChan:
		stop()
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	}
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown", zap.Error(err))
	}
	if err := health.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown", zap.Error(err))
	}
	return serveErr
}

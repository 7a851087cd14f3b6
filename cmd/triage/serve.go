package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/guildcare/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the triage HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Close(closeCtx)
	}()

	c.logger.Info("starting triage service",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("built", date),
	)

	gateway := api.NewGateway(cfg.API, cfg.Metrics, c.manager, c.ledger, c.health.HTTPHandler(), c.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- gateway.Start()
	}()

	select {
	case <-ctx.Done():
		c.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api gateway stopped: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := gateway.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop api gateway: %w", err)
	}
	c.logger.Info("triage service stopped")
	return nil
}

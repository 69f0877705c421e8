package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammEngine/internal/chain"
	"ammEngine/internal/config"
	"ammEngine/internal/metrics"
	"ammEngine/internal/simulate"
	"ammEngine/internal/storage"
	"ammEngine/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.EventsOut == "" && cfg.PGDSN == "" {
		return fmt.Errorf("events-out or pg-dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := simulate.Deps{}
	if cfg.EventsOut != "" {
		deps.Events = append(deps.Events, storage.NewJsonlStorage(cfg.EventsOut))
	}
	if cfg.SnapshotsOut != "" {
		deps.Snapshots = append(deps.Snapshots, storage.NewJsonlStorage(cfg.SnapshotsOut))
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		deps.Events = append(deps.Events, store)
		deps.Snapshots = append(deps.Snapshots, store)
	}

	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		deps.Feed = chain.NewAggregatorFeed(chainClient, chain.FeedConfig{
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, logger)
	}

	// without --metrics-out the runner records on the default registry
	registry := prometheus.NewRegistry()
	if cfg.MetricsOut != "" {
		deps.Metrics = metrics.New(registry)
	}

	runner := simulate.NewRunner(simulate.RunConfig{
		In:                cfg.In,
		ErrorsOut:         cfg.ErrorsOut,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
	}, deps, logger)

	logger.Info("simulate config",
		zap.String("in", cfg.In),
		zap.String("events_out", cfg.EventsOut),
		zap.String("errors_out", cfg.ErrorsOut),
		zap.String("snapshots_out", cfg.SnapshotsOut),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("chain_feed", cfg.RPCURL != ""),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	summary, runErr := runner.Run(ctx)

	if cfg.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsOut, registry); err != nil {
			logger.Warn("write metrics", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d batches, %d committed, %d rejected, %d events\n",
		summary.RunID, summary.Batches, summary.Committed, summary.Rejected, summary.Events)
	return nil
}

package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"ammEngine/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product AMM engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-file", "", "optional rotated log file, in addition to stderr")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Apply a JSONL operation scenario to a fresh engine",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("in", "", "input operations JSONL")
	simulateCmd.Flags().String("events-out", "./data/events.jsonl", "output events JSONL")
	simulateCmd.Flags().String("errors-out", "./data/errors.jsonl", "rejected batches JSONL")
	simulateCmd.Flags().String("snapshots-out", "./data/pools.jsonl", "final pool snapshots JSONL")
	simulateCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	simulateCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events and snapshots")
	simulateCmd.Flags().String("rpc", "", "optional RPC URL; oracle refs are read as Chainlink aggregators")
	simulateCmd.Flags().Int("max-retries", 5, "maximum RPC retry attempts")
	simulateCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	simulateCmd.Flags().String("metrics-out", "", "optional Prometheus textfile written at exit")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap against given reserves",
		RunE:  runQuote,
	}

	quoteCmd.Flags().Uint64("reserve-in", 0, "reserve of the input asset")
	quoteCmd.Flags().Uint64("reserve-out", 0, "reserve of the output asset")
	quoteCmd.Flags().Uint64("amount", 0, "amount in, or amount out with --exact-out")
	quoteCmd.Flags().Bool("exact-out", false, "treat --amount as the desired output")
	quoteCmd.Flags().Uint64("fee-numerator", 3, "fee numerator")
	quoteCmd.Flags().Uint64("fee-denominator", 1000, "fee denominator")

	root.AddCommand(quoteCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate engine events into window metrics",
		RunE:  runReport,
	}

	reportCmd.Flags().String("in", "", "input events JSONL")
	reportCmd.Flags().String("out", "", "output window metrics JSONL (when no pg-dsn)")
	reportCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	reportCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	reportCmd.Flags().Int("batch-size", 1000, "batch size for metric writes")
	reportCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	reportCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	reportCmd.Flags().String("run-id", "", "only aggregate events of this run")

	root.AddCommand(reportCmd)

	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Read the latest price of Chainlink aggregator feeds",
		RunE:  runFeed,
	}

	feedCmd.Flags().String("rpc", "", "RPC URL")
	feedCmd.Flags().String("feeds", "", "feeds to read (comma-separated name=address)")
	feedCmd.Flags().Uint64("max-age", 300, "maximum sample age in seconds")
	feedCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	feedCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")

	root.AddCommand(feedCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Logging) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.File == "" {
		return zcfg.Build()
	}

	rotated := zapcore.NewCore(
		zapcore.NewJSONEncoder(zcfg.EncoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}),
		level,
	)
	return zcfg.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, rotated)
	}))
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

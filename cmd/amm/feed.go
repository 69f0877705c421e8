package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammEngine/internal/chain"
	"ammEngine/internal/config"
	"ammEngine/internal/oracle"
)

func runFeed(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFeed(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if len(cfg.Feeds) == 0 {
		return fmt.Errorf("feed list is required")
	}

	names := make([]string, 0, len(cfg.Feeds))
	for name, addr := range cfg.Feeds {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("feed %s: invalid address %q", name, addr)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	logger.Info("feed start", zap.String("chain_id", chainID.String()), zap.Int("feeds", len(names)))

	feed := chain.NewAggregatorFeed(chainClient, chain.FeedConfig{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)

	out := cmd.OutOrStdout()
	now := time.Now().Unix()
	var failed int
	for _, name := range names {
		ref := common.HexToAddress(cfg.Feeds[name])
		sample, err := oracle.Query(ctx, feed, ref, now, cfg.MaxAge)
		if err != nil {
			failed++
			logger.Warn("feed query", zap.String("feed", name), zap.String("address", ref.Hex()), zap.Error(err))
			continue
		}
		normalized, err := oracle.Normalize(sample.Price, sample.Exponent)
		if err != nil {
			failed++
			logger.Warn("feed normalize", zap.String("feed", name), zap.Error(err))
			continue
		}
		fmt.Fprintf(out, "%s price=%d expo=%d normalized=%d age=%ds\n",
			name, sample.Price, sample.Exponent, normalized, now-sample.PublishTime)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d feeds failed", failed, len(names))
	}
	return nil
}

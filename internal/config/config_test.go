package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func simulateFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	flags.String("in", "", "")
	flags.String("events-out", "./data/events.jsonl", "")
	flags.Int("max-retries", 5, "")
	flags.Duration("retry-backoff", 500*time.Millisecond, "")
	flags.String("log-level", "info", "")
	return flags
}

func TestLoadSimulatePrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "amm.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("in: ./from-file.jsonl\nmax-retries: 2\nlog-level: debug\n"), 0o644))

	t.Setenv("AMM_MAX_RETRIES", "7")
	flags := simulateFlags()
	require.NoError(t, flags.Parse([]string{"--events-out", "/tmp/out.jsonl"}))

	cfg, err := LoadSimulate(cfgFile, flags)
	require.NoError(t, err)
	require.Equal(t, "./from-file.jsonl", cfg.In)
	require.Equal(t, "/tmp/out.jsonl", cfg.EventsOut)
	require.Equal(t, 7, cfg.MaxRetries)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	require.True(t, cfg.CheckpointEnabled)
}

func TestLoadQuoteDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("quote", pflag.ContinueOnError)
	flags.Uint64("amount", 0, "")
	flags.Bool("exact-out", false, "")
	require.NoError(t, flags.Parse([]string{"--amount", "1000", "--exact-out"}))

	cfg, err := LoadQuote(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	cfg, err = LoadQuote("", flags)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), cfg.Amount)
	require.True(t, cfg.ExactOut)
	require.Equal(t, uint64(3), cfg.FeeNumerator)
	require.Equal(t, uint64(1000), cfg.FeeDenominator)
}

func TestLoadFeedParsesFeedMap(t *testing.T) {
	t.Setenv("AMM_FEEDS", "eth-usd=0x01, btc-usd = 0x02,broken")
	cfg, err := LoadFeed("", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"eth-usd": "0x01", "btc-usd": "0x02"}, cfg.Feeds)
	require.Equal(t, uint64(300), cfg.MaxAge)
}

func TestLoadReportDefaults(t *testing.T) {
	cfg, err := LoadReport("", nil)
	require.NoError(t, err)
	require.Equal(t, "5m", cfg.Window)
	require.Equal(t, 1000, cfg.BatchSize)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("1700000000")
	require.NoError(t, err)
	require.Equal(t, uint64(1700000000), ts)

	ts, err = ParseTimestamp("2023-11-14T22:13:20Z")
	require.NoError(t, err)
	require.Equal(t, uint64(1700000000), ts)

	ts, err = ParseTimestamp("")
	require.NoError(t, err)
	require.Zero(t, ts)

	_, err = ParseTimestamp("yesterday")
	require.Error(t, err)
}

func TestSplitAndClean(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitAndClean(" a,,b ,"))
	require.Nil(t, splitAndClean(""))
}

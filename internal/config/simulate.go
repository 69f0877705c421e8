package config

import (
	"time"

	"github.com/spf13/pflag"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	In                string
	EventsOut         string
	ErrorsOut         string
	SnapshotsOut      string
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	RPCURL            string
	MaxRetries        int
	RetryBackoff      time.Duration
	MetricsOut        string
	Logging           Logging
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"events-out":         "./data/events.jsonl",
		"errors-out":         "./data/errors.jsonl",
		"snapshots-out":      "./data/pools.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	return SimulateConfig{
		In:                v.GetString("in"),
		EventsOut:         v.GetString("events-out"),
		ErrorsOut:         v.GetString("errors-out"),
		SnapshotsOut:      v.GetString("snapshots-out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		RPCURL:            v.GetString("rpc"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		MetricsOut:        v.GetString("metrics-out"),
		Logging:           loggingFrom(v),
	}, nil
}

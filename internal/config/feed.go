package config

import (
	"time"

	"github.com/spf13/pflag"
)

// FeedConfig holds configuration for the feed command.
type FeedConfig struct {
	RPCURL       string
	Feeds        map[string]string
	MaxAge       uint64
	MaxRetries   int
	RetryBackoff time.Duration
	Logging      Logging
}

// LoadFeed merges config file, environment variables, and flags into FeedConfig.
func LoadFeed(cfgFile string, flags *pflag.FlagSet) (FeedConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"max-age":       uint64(300),
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return FeedConfig{}, err
	}

	return FeedConfig{
		RPCURL:       v.GetString("rpc"),
		Feeds:        getStringMap(v, "feeds"),
		MaxAge:       v.GetUint64("max-age"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		Logging:      loggingFrom(v),
	}, nil
}

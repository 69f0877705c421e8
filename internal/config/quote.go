package config

import "github.com/spf13/pflag"

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	ReserveIn      uint64
	ReserveOut     uint64
	Amount         uint64
	ExactOut       bool
	FeeNumerator   uint64
	FeeDenominator uint64
	Logging        Logging
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"fee-numerator":   uint64(3),
		"fee-denominator": uint64(1000),
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	return QuoteConfig{
		ReserveIn:      v.GetUint64("reserve-in"),
		ReserveOut:     v.GetUint64("reserve-out"),
		Amount:         v.GetUint64("amount"),
		ExactOut:       v.GetBool("exact-out"),
		FeeNumerator:   v.GetUint64("fee-numerator"),
		FeeDenominator: v.GetUint64("fee-denominator"),
		Logging:        loggingFrom(v),
	}, nil
}

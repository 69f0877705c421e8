package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ammEngine/internal/config"
	"ammEngine/internal/pricing"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	fee := pricing.Fee{Numerator: cfg.FeeNumerator, Denominator: cfg.FeeDenominator}
	if err := fee.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.ExactOut {
		amountIn, err := pricing.GetAmountIn(cfg.Amount, cfg.ReserveIn, cfg.ReserveOut, fee)
		if err != nil {
			return err
		}
		feeAmount, err := fee.DisplayFee(amountIn)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "amount_in=%d amount_out=%d fee=%d\n", amountIn, cfg.Amount, feeAmount)
		return nil
	}

	amountOut, err := pricing.GetAmountOut(cfg.Amount, cfg.ReserveIn, cfg.ReserveOut, fee)
	if err != nil {
		return err
	}
	feeAmount, err := fee.DisplayFee(cfg.Amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "amount_in=%d amount_out=%d fee=%d\n", cfg.Amount, amountOut, feeAmount)
	return nil
}

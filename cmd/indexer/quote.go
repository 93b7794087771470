package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deviationScope/internal/chain"
	"deviationScope/internal/config"
	"deviationScope/internal/rates"
	"deviationScope/internal/stable"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var indexIn, indexOut int
	switch cfg.Direction {
	case "a-to-b":
		indexIn, indexOut = 0, 1
	case "b-to-a":
		indexIn, indexOut = 1, 0
	default:
		return fmt.Errorf("direction: unknown value %q", cfg.Direction)
	}

	amounts := make([]*big.Int, 0, 4)
	for _, item := range []struct{ key, value string }{
		{"amp", cfg.Amp},
		{"balance-a", cfg.BalanceA},
		{"balance-b", cfg.BalanceB},
		{"amount-in", cfg.AmountIn},
	} {
		amount, err := config.ParseAmount(item.key, item.value)
		if err != nil {
			return err
		}
		amounts = append(amounts, amount)
	}
	amp, balanceA, balanceB, amountIn := amounts[0], amounts[1], amounts[2], amounts[3]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var oracle rates.Oracle
	if cfg.RateA == "" || cfg.RateB == "" {
		if cfg.RPCURL == "" {
			return fmt.Errorf("rpc url is required when a rate is not given")
		}
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		oracle = rates.NewChainOracle(chainClient)
	}

	rateA, err := quoteRate(ctx, oracle, "rate-a", cfg.RateA, "rate-provider-a", cfg.RateProviderA)
	if err != nil {
		return err
	}
	rateB, err := quoteRate(ctx, oracle, "rate-b", cfg.RateB, "rate-provider-b", cfg.RateProviderB)
	if err != nil {
		return err
	}

	amountOut, err := stable.OutGivenExactInWithRates(amp, indexIn, indexOut, amountIn, balanceA, balanceB, rateA, rateB)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}

	logger.Debug("quote",
		zap.String("direction", cfg.Direction),
		zap.String("amp", amp.String()),
		zap.String("rate_a", rateA.String()),
		zap.String("rate_b", rateB.String()),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", amountOut.String()),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "amount_out=%s rate_a=%s rate_b=%s\n", amountOut, rateA, rateB)
	return nil
}

// quoteRate returns the configured rate, or reads it from the provider.
func quoteRate(ctx context.Context, oracle rates.Oracle, rateKey, rate, providerKey, provider string) (*big.Int, error) {
	if rate != "" {
		return config.ParseAmount(rateKey, rate)
	}
	addr, err := config.ParseAddress(providerKey, provider)
	if err != nil {
		return nil, err
	}
	value, err := oracle.GetRate(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rateKey, err)
	}
	return value, nil
}

package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// QuoteConfig holds configuration for the quote command. Empty rates are
// read from the rate providers over RPC.
type QuoteConfig struct {
	RPCURL        string
	Amp           string
	BalanceA      string
	BalanceB      string
	RateA         string
	RateB         string
	RateProviderA string
	RateProviderB string
	AmountIn      string
	Direction     string
	Log           LogConfig
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("amp", DefaultAmp)
		v.SetDefault("rate-provider-a", DefaultRateProviderA)
		v.SetDefault("rate-provider-b", DefaultRateProviderB)
		v.SetDefault("direction", "a-to-b")
		v.SetDefault("log-level", "warn")
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	return QuoteConfig{
		RPCURL:        v.GetString("rpc"),
		Amp:           v.GetString("amp"),
		BalanceA:      v.GetString("balance-a"),
		BalanceB:      v.GetString("balance-b"),
		RateA:         v.GetString("rate-a"),
		RateB:         v.GetString("rate-b"),
		RateProviderA: v.GetString("rate-provider-a"),
		RateProviderB: v.GetString("rate-provider-b"),
		AmountIn:      v.GetString("amount-in"),
		Direction:     v.GetString("direction"),
		Log:           loadLog(v),
	}, nil
}

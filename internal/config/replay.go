package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"deviationScope/internal/ledger"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	RPCURL        string
	Input         string
	PGDSN         string
	StateFile     string
	CursorName    string
	ResetCursor   bool
	RecordsOut    string
	PoolID        string
	TokenA        string
	TokenB        string
	RateProviderA string
	RateProviderB string
	Amp           string
	RateAtBlock   bool
	SaveEvery     int
	MaxRetries    int
	RetryBackoff  time.Duration
	MetricsAddr   string
	Log           LogConfig
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("in", "./data/typed_events.jsonl")
		v.SetDefault("cursor-name", "ledger")
		v.SetDefault("pool-id", DefaultPoolID)
		v.SetDefault("token-a", DefaultTokenA)
		v.SetDefault("token-b", DefaultTokenB)
		v.SetDefault("rate-provider-a", DefaultRateProviderA)
		v.SetDefault("rate-provider-b", DefaultRateProviderB)
		v.SetDefault("amp", DefaultAmp)
		v.SetDefault("rate-at-block", false)
		v.SetDefault("save-every", 500)
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		RPCURL:        v.GetString("rpc"),
		Input:         v.GetString("in"),
		PGDSN:         v.GetString("pg-dsn"),
		StateFile:     v.GetString("state-file"),
		CursorName:    v.GetString("cursor-name"),
		ResetCursor:   v.GetBool("reset-cursor"),
		RecordsOut:    v.GetString("records-out"),
		PoolID:        v.GetString("pool-id"),
		TokenA:        v.GetString("token-a"),
		TokenB:        v.GetString("token-b"),
		RateProviderA: v.GetString("rate-provider-a"),
		RateProviderB: v.GetString("rate-provider-b"),
		Amp:           v.GetString("amp"),
		RateAtBlock:   v.GetBool("rate-at-block"),
		SaveEvery:     v.GetInt("save-every"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		MetricsAddr:   v.GetString("metrics-addr"),
		Log:           loadLog(v),
	}

	return cfg, nil
}

// Tracker parses the tracked pool settings.
func (c ReplayConfig) Tracker() (ledger.Tracker, error) {
	poolID, err := ledger.ParsePoolID(c.PoolID)
	if err != nil {
		return ledger.Tracker{}, fmt.Errorf("pool-id: %w", err)
	}
	addrs := make([]common.Address, 0, 4)
	for _, item := range []struct{ key, value string }{
		{"token-a", c.TokenA},
		{"token-b", c.TokenB},
		{"rate-provider-a", c.RateProviderA},
		{"rate-provider-b", c.RateProviderB},
	} {
		addr, err := ParseAddress(item.key, item.value)
		if err != nil {
			return ledger.Tracker{}, err
		}
		addrs = append(addrs, addr)
	}
	amp, err := ParseAmount("amp", c.Amp)
	if err != nil {
		return ledger.Tracker{}, err
	}

	tracker := ledger.Tracker{
		PoolID:        poolID,
		TokenA:        addrs[0],
		TokenB:        addrs[1],
		RateProviderA: addrs[2],
		RateProviderB: addrs[3],
		Amp:           amp,
	}
	if err := tracker.Validate(); err != nil {
		return ledger.Tracker{}, err
	}
	return tracker, nil
}

// ParseAddress parses a hex address setting.
func ParseAddress(key, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", key, value)
	}
	return common.HexToAddress(value), nil
}

// ParseAmount parses a base-10 integer setting.
func ParseAmount(key, value string) (*big.Int, error) {
	out, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return out, nil
}

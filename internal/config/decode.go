package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	In     string
	Out    string
	Errors string
	// Vault and PoolID filter decoded logs; empty disables the filter.
	Vault  string
	PoolID string
	Log    LogConfig
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("in", "./data/logs.jsonl")
		v.SetDefault("out", "./data/typed_events.jsonl")
		v.SetDefault("errors", "./data/decode_errors.jsonl")
		v.SetDefault("vault", DefaultVault)
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		In:     v.GetString("in"),
		Out:    v.GetString("out"),
		Errors: v.GetString("errors"),
		Vault:  v.GetString("vault"),
		PoolID: v.GetString("pool-id"),
		Log:    loadLog(v),
	}

	return cfg, nil
}

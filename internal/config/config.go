package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LogConfig holds logger settings shared by every command.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Config holds configuration values for the run command.
type Config struct {
	RPCURL            string
	FromBlock         uint64
	ToBlock           uint64
	Confirmations     uint64
	Addresses         []string
	Topic0            []string
	BatchSize         uint64
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	Log               LogConfig
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("address", []string{DefaultVault})
		v.SetDefault("batch-size", uint64(2000))
		v.SetDefault("out", "./data/logs.jsonl")
		v.SetDefault("checkpoint", "./data/checkpoint.json")
		v.SetDefault("checkpoint-enabled", true)
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Confirmations:     v.GetUint64("confirmations"),
		Addresses:         getStringSlice(v, "address"),
		Topic0:            getStringSlice(v, "topic0"),
		BatchSize:         v.GetUint64("batch-size"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Log:               loadLog(v),
	}

	return cfg, nil
}

// newViper builds a viper instance with the INDEXER env prefix, the given
// defaults, bound flags, and an optional config file.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("log-max-size", 100)
	v.SetDefault("log-max-backups", 5)
	v.SetDefault("log-max-age", 30)
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadLog(v *viper.Viper) LogConfig {
	return LogConfig{
		Level:      v.GetString("log-level"),
		File:       v.GetString("log-file"),
		MaxSizeMB:  v.GetInt("log-max-size"),
		MaxBackups: v.GetInt("log-max-backups"),
		MaxAgeDays: v.GetInt("log-max-age"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

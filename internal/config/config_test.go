package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReplayDefaults(t *testing.T) {
	cfg, err := LoadReplay("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultPoolID, cfg.PoolID)
	assert.Equal(t, DefaultAmp, cfg.Amp)
	assert.False(t, cfg.RateAtBlock)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, "info", cfg.Log.Level)

	tracker, err := cfg.Tracker()
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenA, tracker.TokenA.Hex())
	assert.Equal(t, DefaultRateProviderB, tracker.RateProviderB.Hex())
	assert.Equal(t, "1000000", tracker.Amp.String())
}

func TestLoadReplayFlagsEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("amp: \"200000\"\nrate-at-block: true\nlog-level: debug\n"), 0o644))
	t.Setenv("INDEXER_PG_DSN", "postgres://localhost/ledger")

	flags := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flags.String("token-b", "", "")
	require.NoError(t, flags.Parse([]string{"--token-b", "0x1111111111111111111111111111111111111111"}))

	cfg, err := LoadReplay(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "200000", cfg.Amp)
	assert.True(t, cfg.RateAtBlock)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres://localhost/ledger", cfg.PGDSN)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.TokenB)
}

func TestReplayTrackerRejectsBadValues(t *testing.T) {
	cfg, err := LoadReplay("", nil)
	require.NoError(t, err)

	bad := cfg
	bad.TokenA = "not-an-address"
	_, err = bad.Tracker()
	require.Error(t, err)

	bad = cfg
	bad.Amp = "1e6"
	_, err = bad.Tracker()
	require.Error(t, err)

	bad = cfg
	bad.TokenB = bad.TokenA
	_, err = bad.Tracker()
	require.Error(t, err)
}

func TestLoadRunDefaultsToVault(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultVault}, cfg.Addresses)
	assert.Equal(t, uint64(2000), cfg.BatchSize)
}

func TestGetStringSliceSplitsCommaList(t *testing.T) {
	t.Setenv("INDEXER_TOPIC0", " 0xaa, ,0xbb ")
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaa", "0xbb"}, cfg.Topic0)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"deviationScope/internal/chain"
	"deviationScope/internal/config"
	"deviationScope/internal/indexer"
	"deviationScope/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Balancer stable pool deviation indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch raw Vault logs into JSONL",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "RPC URL")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().Uint64("confirmations", 0, "blocks to stay behind latest when --to is 0")
	runCmd.Flags().StringSlice("address", nil, "contract addresses (comma-separated), default is the Vault")
	runCmd.Flags().StringSlice("topic0", nil, "topic0 signatures (comma-separated), default is the Vault pool events")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	addLogFlags(runCmd.Flags())

	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw Vault logs into typed events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "./data/logs.jsonl", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("vault", config.DefaultVault, "only decode logs emitted by this Vault, empty for any")
	decodeCmd.Flags().String("pool-id", "", "only decode events of this pool id")
	addLogFlags(decodeCmd.Flags())

	root.AddCommand(decodeCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay typed events through the pool ledger",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("rpc", "", "RPC URL for rate provider reads")
	replayCmd.Flags().String("in", "./data/typed_events.jsonl", "input typed events JSONL")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN, empty keeps the ledger in memory")
	replayCmd.Flags().String("state-file", "", "local cursor file, default stores the cursor in Postgres")
	replayCmd.Flags().String("cursor-name", "ledger", "cursor name in the ledger_cursor table")
	replayCmd.Flags().Bool("reset-cursor", false, "ignore the saved cursor and replay from the start")
	replayCmd.Flags().String("records-out", "", "optional JSONL file receiving every committed record")
	replayCmd.Flags().String("pool-id", config.DefaultPoolID, "tracked pool id")
	replayCmd.Flags().String("token-a", config.DefaultTokenA, "tracked token A (solver index 0)")
	replayCmd.Flags().String("token-b", config.DefaultTokenB, "tracked token B (solver index 1)")
	replayCmd.Flags().String("rate-provider-a", config.DefaultRateProviderA, "rate provider of token A")
	replayCmd.Flags().String("rate-provider-b", config.DefaultRateProviderB, "rate provider of token B")
	replayCmd.Flags().String("amp", config.DefaultAmp, "amplification parameter scaled by 1000")
	replayCmd.Flags().Bool("rate-at-block", false, "read rates at the event block (requires archive RPC)")
	replayCmd.Flags().Int("save-every", 500, "save the cursor after this many events")
	replayCmd.Flags().Int("max-retries", 5, "maximum retries of an event after a rate read failure")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")
	addLogFlags(replayCmd.Flags())

	root.AddCommand(replayCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against given pool balances",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("rpc", "", "RPC URL, used when a rate is not given")
	quoteCmd.Flags().String("amp", config.DefaultAmp, "amplification parameter scaled by 1000")
	quoteCmd.Flags().String("balance-a", "", "raw balance of token A")
	quoteCmd.Flags().String("balance-b", "", "raw balance of token B")
	quoteCmd.Flags().String("rate-a", "", "rate of token A at 1e18 scale")
	quoteCmd.Flags().String("rate-b", "", "rate of token B at 1e18 scale")
	quoteCmd.Flags().String("rate-provider-a", config.DefaultRateProviderA, "rate provider of token A")
	quoteCmd.Flags().String("rate-provider-b", config.DefaultRateProviderB, "rate provider of token B")
	quoteCmd.Flags().String("amount-in", "", "raw input amount")
	quoteCmd.Flags().String("direction", "a-to-b", "swap direction: a-to-b or b-to-a")
	addLogFlags(quoteCmd.Flags())

	root.AddCommand(quoteCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLogFlags(flags *pflag.FlagSet) {
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "write logs to this file with rotation instead of stderr")
	flags.Int("log-max-size", 100, "rotated log file size in MB")
	flags.Int("log-max-backups", 5, "rotated log files to keep")
	flags.Int("log-max-age", 30, "days to keep rotated log files")
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	addresses, err := indexer.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return fmt.Errorf("address list is required")
	}

	topic0, err := indexer.ParseTopic0(cfg.Topic0)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	storageSink := storage.NewJsonlStorage(cfg.Out)

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Confirmations:     cfg.Confirmations,
		Addresses:         addresses,
		Topic0:            topic0,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, storageSink, logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("confirmations", cfg.Confirmations),
		zap.Int("addresses", len(addresses)),
		zap.Int("topic0", len(topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

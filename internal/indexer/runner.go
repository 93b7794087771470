package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"deviationScope/internal/model"
	"deviationScope/internal/retry"
	"deviationScope/internal/storage"
)

// LogSource is the chain access the runner needs.
type LogSource interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock uint64
	ToBlock   uint64
	// Confirmations keeps the open-ended head this many blocks behind latest.
	Confirmations     uint64
	Addresses         []common.Address
	Topic0            []common.Hash
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner streams Vault logs from the chain and writes them to storage.
type Runner struct {
	cfg        RunConfig
	chain      LogSource
	storage    storage.Storage
	logger     *zap.Logger
	seen       map[string]struct{}
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source LogSource, storageSink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      source,
		storage:    storageSink,
		logger:     logger,
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Addresses) == 0 {
		return fmt.Errorf("at least one address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	from, to, ok, err := r.resolveRange(ctx)
	if err != nil {
		return err
	}
	if !ok {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	var total int
	for _, blockRange := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.syncRange(ctx, chainID.Uint64(), blockRange)
		if err != nil {
			return err
		}
		total += n
	}

	r.logger.Info("sync complete", zap.Uint64("from", from), zap.Uint64("to", to), zap.Int("logs", total))
	return nil
}

func (r *Runner) resolveRange(ctx context.Context) (uint64, uint64, bool, error) {
	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		var latest uint64
		err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			latest, err = r.chain.LatestBlockNumber(ctx)
			return err
		})
		if err != nil {
			return 0, 0, false, fmt.Errorf("get latest block: %w", err)
		}
		head, ok := SafeHead(latest, r.cfg.Confirmations)
		if !ok {
			return from, latest, false, nil
		}
		to = head
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return 0, 0, false, err
	}
	if ok && cp.LastProcessedBlock >= from {
		from = cp.LastProcessedBlock + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
	}
	return from, to, from <= to, nil
}

func (r *Runner) syncRange(ctx context.Context, chainID uint64, blockRange BlockRange) (int, error) {
	r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

	var logs []types.Log
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, blockRange.From, blockRange.To, r.cfg.Addresses, r.cfg.Topic0)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("filter logs: %w", err)
	}

	ingestedAt := time.Now().UTC()
	records := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			r.logger.Warn("skip removed log", zap.String("tx_hash", log.TxHash.Hex()), zap.Uint("log_index", log.Index))
			continue
		}
		if r.isDuplicate(log) {
			continue
		}

		ts, err := r.blockTimestamp(ctx, log.BlockNumber)
		if err != nil {
			return 0, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}
		records = append(records, toLogRecord(chainID, log, ts, ingestedAt))
	}

	if err := r.storage.PutLogBatch(records); err != nil {
		return 0, fmt.Errorf("store logs: %w", err)
	}
	if err := r.checkpoint.Save(blockRange.To, len(records)); err != nil {
		return 0, err
	}

	r.logger.Info("batch complete", zap.Int("logs", len(records)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	return len(records), nil
}

func (r *Runner) blockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := model.RecordID(log.TxHash.Hex(), uint64(log.Index))
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}

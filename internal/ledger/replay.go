package ledger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"deviationScope/internal/model"
	"deviationScope/internal/retry"
)

// ReplayConfig controls a replay run.
type ReplayConfig struct {
	// SaveEvery saves the cursor after this many applied events.
	SaveEvery    int
	MaxRetries   int
	RetryBackoff time.Duration
	Cursor       CursorStore
	// IgnoreSaved replays from the start but still saves the cursor.
	IgnoreSaved bool
}

// ReplayStats summarizes a replay run.
type ReplayStats struct {
	Total      int
	Applied    int
	Ignored    int
	Duplicates int
	Skipped    int
	Failed     int
	Last       Cursor
}

// Replayer feeds typed Vault events through a Processor in file order.
type Replayer struct {
	cfg       ReplayConfig
	processor *Processor
	logger    *zap.Logger
}

func NewReplayer(cfg ReplayConfig, processor *Processor, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SaveEvery <= 0 {
		cfg.SaveEvery = 500
	}
	return &Replayer{cfg: cfg, processor: processor, logger: logger}
}

// RunFile replays a typed events JSONL file.
func (r *Replayer) RunFile(ctx context.Context, inputPath string) (ReplayStats, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return ReplayStats{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return r.Run(ctx, file)
}

// Run replays typed event records read from input. Records at or before the
// stored cursor are skipped; malformed lines are logged and skipped.
func (r *Replayer) Run(ctx context.Context, input io.Reader) (ReplayStats, error) {
	if r.processor == nil {
		return ReplayStats{}, fmt.Errorf("processor is nil")
	}

	var stats ReplayStats
	start, resumed, err := r.loadCursor(ctx)
	if err != nil {
		return stats, err
	}
	if resumed {
		registered, err := r.processor.poolRegistered(ctx)
		if err != nil {
			return stats, err
		}
		if !registered {
			// The cursor outlived the ledger it was saved against.
			r.logger.Warn("saved cursor has no pool ledger behind it, replaying from the start",
				zap.Uint64("block", start.BlockNumber),
				zap.Uint64("log_index", start.LogIndex),
			)
			start, resumed = Cursor{}, false
		}
	}
	stats.Last = start

	scanner := bufio.NewScanner(input)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	sinceSave := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.Failed++
			r.logger.Warn("decode typed event", zap.Error(err))
			continue
		}

		if resumed && start.Covers(record.BlockNumber, record.LogIndex) {
			stats.Skipped++
			continue
		}

		evt, ok, err := EventFromRecord(record)
		if err != nil {
			stats.Failed++
			r.logger.Warn("parse vault event",
				zap.Error(err),
				zap.String("tx_hash", record.TxHash),
				zap.Uint64("log_index", record.LogIndex),
			)
			continue
		}
		if !ok {
			stats.Ignored++
			continue
		}

		outcome, err := r.applyWithRetry(ctx, evt)
		if err != nil {
			// Leave the cursor at the last good event so a rerun resumes here.
			if saveErr := r.saveCursor(ctx, stats.Last); saveErr != nil {
				r.logger.Warn("save cursor", zap.Error(saveErr))
			}
			return stats, fmt.Errorf("apply %s at block %d: %w", evt.Meta.RecordID(), evt.Meta.BlockNumber, err)
		}

		switch outcome {
		case Applied:
			stats.Applied++
		case Duplicate:
			stats.Duplicates++
		default:
			stats.Ignored++
		}

		stats.Last = Cursor{BlockNumber: record.BlockNumber, LogIndex: record.LogIndex}
		sinceSave++
		if sinceSave >= r.cfg.SaveEvery {
			if err := r.saveCursor(ctx, stats.Last); err != nil {
				return stats, err
			}
			sinceSave = 0
		}
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}

	if err := r.saveCursor(ctx, stats.Last); err != nil {
		return stats, err
	}

	r.logger.Info("replay complete",
		zap.Int("total", stats.Total),
		zap.Int("applied", stats.Applied),
		zap.Int("ignored", stats.Ignored),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Uint64("last_block", stats.Last.BlockNumber),
		zap.Uint64("last_log_index", stats.Last.LogIndex),
	)
	return stats, nil
}

// applyWithRetry retries rate read failures only. Nothing is committed before
// the rates are read, so retrying the whole event is safe.
func (r *Replayer) applyWithRetry(ctx context.Context, evt Event) (Outcome, error) {
	var outcome Outcome
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		outcome, err = r.processor.Apply(ctx, evt)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrRateUnavailable) {
			r.logger.Warn("rate read failed, retrying event",
				zap.String("record_id", evt.Meta.RecordID()),
				zap.Error(err),
			)
			return err
		}
		return retry.Permanent(err)
	})
	return outcome, err
}

func (r *Replayer) loadCursor(ctx context.Context) (Cursor, bool, error) {
	if r.cfg.Cursor == nil || r.cfg.IgnoreSaved {
		return Cursor{}, false, nil
	}
	cursor, ok, err := r.cfg.Cursor.Load(ctx)
	if err != nil {
		return Cursor{}, false, fmt.Errorf("load cursor: %w", err)
	}
	if ok {
		r.logger.Info("resume replay",
			zap.Uint64("block", cursor.BlockNumber),
			zap.Uint64("log_index", cursor.LogIndex),
		)
	}
	return cursor, ok, nil
}

func (r *Replayer) saveCursor(ctx context.Context, cursor Cursor) error {
	if r.cfg.Cursor == nil {
		return nil
	}
	if err := r.cfg.Cursor.Save(ctx, cursor); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"deviationScope/internal/metrics"
	"deviationScope/internal/model"
	"deviationScope/internal/rates"
	"deviationScope/internal/stable"
	"deviationScope/internal/storage"
)

var (
	ErrRateUnavailable = errors.New("rate unavailable")
	ErrNegativeBalance = errors.New("balance would go negative")
)

// Store persists pool ledgers and their append-only records. Commit must
// apply the pool upsert and the record insert together or not at all, and
// return storage.ErrDuplicateRecord when the record id already exists.
type Store interface {
	LoadPool(ctx context.Context, id string) (model.PoolState, bool, error)
	Commit(ctx context.Context, pool model.PoolState, swap *model.SwapRecord, change *model.BalanceChangeRecord) error
}

// Outcome reports what Apply did with an event.
type Outcome int

const (
	Ignored Outcome = iota
	Applied
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Duplicate:
		return "duplicate"
	default:
		return "ignored"
	}
}

type Config struct {
	Tracker Tracker
	// RateAtBlock reads rates at the event block instead of the latest state.
	RateAtBlock bool
}

// Processor turns Vault events into ledger mutations for the tracked pool.
type Processor struct {
	cfg     Config
	store   Store
	oracle  rates.Oracle
	logger  *zap.Logger
	metrics *metrics.Ledger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewProcessor(cfg Config, store Store, oracle rates.Oracle, logger *zap.Logger, m *metrics.Ledger) (*Processor, error) {
	if err := cfg.Tracker.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracker: %w", err)
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if oracle == nil {
		return nil, errors.New("rate oracle is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		cfg:     cfg,
		store:   store,
		oracle:  oracle,
		logger:  logger,
		metrics: m,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Apply processes one event. Events of one pool must be applied in source
// order; different pools may be applied concurrently.
func (p *Processor) Apply(ctx context.Context, evt Event) (Outcome, error) {
	outcome, err := p.apply(ctx, evt)
	if err != nil {
		p.metrics.ObserveEvent(evt.Kind(), "error")
		return outcome, err
	}
	p.metrics.ObserveEvent(evt.Kind(), outcome.String())
	return outcome, nil
}

func (p *Processor) apply(ctx context.Context, evt Event) (Outcome, error) {
	if !p.cfg.Tracker.Tracks(evt.PoolID) {
		p.logger.Debug("ignore untracked pool",
			zap.String("pool_id", evt.PoolID.Hex()),
			zap.String("kind", evt.Kind()),
		)
		return Ignored, nil
	}

	unlock := p.lockPool(evt.PoolID.Hex())
	defer unlock()

	switch payload := evt.Payload.(type) {
	case Registered:
		return p.onRegistered(ctx, evt)
	case Swap:
		return p.onSwap(ctx, evt, payload)
	case BalanceChanged:
		return p.onBalanceChanged(ctx, evt, payload)
	default:
		return Ignored, fmt.Errorf("%w: unsupported payload %T", ErrMalformedEvent, evt.Payload)
	}
}

func (p *Processor) lockPool(id string) func() {
	p.mu.Lock()
	lock, ok := p.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[id] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (p *Processor) onRegistered(ctx context.Context, evt Event) (Outcome, error) {
	id := evt.PoolID.Hex()
	existing, ok, err := p.store.LoadPool(ctx, id)
	if err != nil {
		return Ignored, fmt.Errorf("load pool: %w", err)
	}
	if ok {
		// A registration at or before the last applied event is a replay.
		if existing.Covers(evt.Meta.BlockNumber, evt.Meta.LogIndex) {
			p.logger.Debug("registration already applied",
				zap.String("pool_id", id),
				zap.Uint64("block", evt.Meta.BlockNumber),
				zap.Uint64("log_index", evt.Meta.LogIndex),
			)
			return Duplicate, nil
		}
		p.logger.Warn("pool registered again, resetting ledger",
			zap.String("pool_id", id),
			zap.Uint64("block", evt.Meta.BlockNumber),
		)
	}

	pool := model.NewPoolState(id, evt.Meta.BlockNumber, evt.Meta.Timestamp)
	pool.LastUpdatedLogIndex = evt.Meta.LogIndex
	if err := p.store.Commit(ctx, pool, nil, nil); err != nil {
		return Ignored, fmt.Errorf("commit pool: %w", err)
	}
	p.observe(pool)
	return Applied, nil
}

func (p *Processor) onSwap(ctx context.Context, evt Event, swap Swap) (Outcome, error) {
	if swap.AmountIn == nil || swap.AmountOut == nil || swap.AmountIn.Sign() < 0 || swap.AmountOut.Sign() < 0 {
		return Ignored, fmt.Errorf("%w: swap amounts must be non-negative", ErrMalformedEvent)
	}

	pool, ok, err := p.loadActive(ctx, evt)
	if err != nil || !ok {
		return Ignored, err
	}

	tracker := p.cfg.Tracker
	assetIn := tracker.Classify(swap.TokenIn)
	assetOut := tracker.Classify(swap.TokenOut)

	expected := new(big.Int)
	deviation := new(big.Int)
	var rateA, rateB *big.Int

	if assetIn != AssetOther && assetOut != AssetOther && assetIn != assetOut {
		rateA, rateB, err = p.readRates(ctx, evt.Meta.BlockNumber)
		if err != nil {
			return Ignored, err
		}

		// Quote against the balances as they stood before this event.
		out, err := stable.OutGivenExactInWithRates(tracker.Amp, assetIn.Index(), assetOut.Index(),
			swap.AmountIn, pool.BalanceA, pool.BalanceB, rateA, rateB)
		switch {
		case err == nil:
			expected = out
			deviation = new(big.Int).Sub(expected, swap.AmountOut)
		case errors.Is(err, stable.ErrEmptyPool), errors.Is(err, stable.ErrZeroBalance):
			p.logger.Warn("skip fair value on empty pool side",
				zap.String("pool_id", pool.ID),
				zap.String("tx_hash", evt.Meta.TxHash),
				zap.Uint64("log_index", evt.Meta.LogIndex),
				zap.Error(err),
			)
			p.metrics.ObserveFairValueSkipped("empty_pool")
		default:
			return Ignored, fmt.Errorf("quote swap %s: %w", evt.Meta.RecordID(), err)
		}
	} else {
		p.metrics.ObserveFairValueSkipped("untracked_leg")
	}

	next := pool.Clone()
	if err := addBalance(&next, assetIn, swap.AmountIn); err != nil {
		return Ignored, err
	}
	if err := addBalance(&next, assetOut, new(big.Int).Neg(swap.AmountOut)); err != nil {
		return Ignored, err
	}
	switch assetOut {
	case AssetA:
		next.DeviationA.Add(next.DeviationA, deviation)
	case AssetB:
		next.DeviationB.Add(next.DeviationB, deviation)
	}
	next.LastUpdatedBlock = evt.Meta.BlockNumber
	next.LastUpdatedTimestamp = evt.Meta.Timestamp
	next.LastUpdatedLogIndex = evt.Meta.LogIndex

	record := &model.SwapRecord{
		ID:             evt.Meta.RecordID(),
		PoolID:         next.ID,
		TokenIn:        swap.TokenIn.Hex(),
		TokenOut:       swap.TokenOut.Hex(),
		AmountIn:       new(big.Int).Set(swap.AmountIn),
		AmountOut:      new(big.Int).Set(swap.AmountOut),
		ExpectedOutput: expected,
		Deviation:      deviation,
		BalanceA:       new(big.Int).Set(next.BalanceA),
		BalanceB:       new(big.Int).Set(next.BalanceB),
		RateA:          rateA,
		RateB:          rateB,
		BlockNumber:    evt.Meta.BlockNumber,
		Timestamp:      evt.Meta.Timestamp,
		TxHash:         evt.Meta.TxHash,
		LogIndex:       evt.Meta.LogIndex,
	}

	return p.commit(ctx, next, record, nil)
}

func (p *Processor) onBalanceChanged(ctx context.Context, evt Event, changed BalanceChanged) (Outcome, error) {
	if len(changed.Tokens) != len(changed.Deltas) {
		return Ignored, fmt.Errorf("%w: %d tokens, %d deltas", ErrMalformedEvent, len(changed.Tokens), len(changed.Deltas))
	}

	tracker := p.cfg.Tracker
	indexA := indexOf(changed.Tokens, tracker.TokenA)
	indexB := indexOf(changed.Tokens, tracker.TokenB)
	if indexA < 0 && indexB < 0 {
		return Ignored, nil
	}
	for _, idx := range []int{indexA, indexB} {
		if idx >= 0 && changed.Deltas[idx] == nil {
			return Ignored, fmt.Errorf("%w: nil delta at %d", ErrMalformedEvent, idx)
		}
	}

	pool, ok, err := p.loadActive(ctx, evt)
	if err != nil || !ok {
		return Ignored, err
	}

	next := pool.Clone()
	if indexA >= 0 {
		if err := addBalance(&next, AssetA, changed.Deltas[indexA]); err != nil {
			return Ignored, err
		}
	}
	if indexB >= 0 {
		if err := addBalance(&next, AssetB, changed.Deltas[indexB]); err != nil {
			return Ignored, err
		}
	}
	next.LastUpdatedBlock = evt.Meta.BlockNumber
	next.LastUpdatedTimestamp = evt.Meta.Timestamp
	next.LastUpdatedLogIndex = evt.Meta.LogIndex

	tokens := make([]string, len(changed.Tokens))
	deltas := make([]*big.Int, len(changed.Deltas))
	for i := range changed.Tokens {
		tokens[i] = changed.Tokens[i].Hex()
		if changed.Deltas[i] != nil {
			deltas[i] = new(big.Int).Set(changed.Deltas[i])
		}
	}

	record := &model.BalanceChangeRecord{
		ID:          evt.Meta.RecordID(),
		PoolID:      next.ID,
		Tokens:      tokens,
		Deltas:      deltas,
		BalanceA:    new(big.Int).Set(next.BalanceA),
		BalanceB:    new(big.Int).Set(next.BalanceB),
		BlockNumber: evt.Meta.BlockNumber,
		Timestamp:   evt.Meta.Timestamp,
		TxHash:      evt.Meta.TxHash,
		LogIndex:    evt.Meta.LogIndex,
	}

	return p.commit(ctx, next, nil, record)
}

// poolRegistered reports whether the store holds the tracked pool.
func (p *Processor) poolRegistered(ctx context.Context) (bool, error) {
	_, ok, err := p.store.LoadPool(ctx, p.cfg.Tracker.PoolKey())
	if err != nil {
		return false, fmt.Errorf("load pool: %w", err)
	}
	return ok, nil
}

// loadActive returns the registered pool; ok is false when the tracked pool
// has not been registered yet.
func (p *Processor) loadActive(ctx context.Context, evt Event) (model.PoolState, bool, error) {
	id := evt.PoolID.Hex()
	pool, ok, err := p.store.LoadPool(ctx, id)
	if err != nil {
		return model.PoolState{}, false, fmt.Errorf("load pool: %w", err)
	}
	if !ok {
		p.logger.Warn("event for unregistered pool ignored",
			zap.String("pool_id", id),
			zap.String("kind", evt.Kind()),
			zap.String("tx_hash", evt.Meta.TxHash),
			zap.Uint64("log_index", evt.Meta.LogIndex),
		)
		return model.PoolState{}, false, nil
	}
	return pool, true, nil
}

func (p *Processor) readRates(ctx context.Context, blockNumber uint64) (*big.Int, *big.Int, error) {
	var block *big.Int
	if p.cfg.RateAtBlock {
		block = new(big.Int).SetUint64(blockNumber)
	}

	rateA, err := p.oracle.GetRate(ctx, p.cfg.Tracker.RateProviderA, block)
	if err != nil {
		p.metrics.ObserveRateFailure()
		return nil, nil, fmt.Errorf("%w: asset A: %w", ErrRateUnavailable, err)
	}
	rateB, err := p.oracle.GetRate(ctx, p.cfg.Tracker.RateProviderB, block)
	if err != nil {
		p.metrics.ObserveRateFailure()
		return nil, nil, fmt.Errorf("%w: asset B: %w", ErrRateUnavailable, err)
	}
	return rateA, rateB, nil
}

func (p *Processor) commit(ctx context.Context, pool model.PoolState, swap *model.SwapRecord, change *model.BalanceChangeRecord) (Outcome, error) {
	err := p.store.Commit(ctx, pool, swap, change)
	if errors.Is(err, storage.ErrDuplicateRecord) {
		id := ""
		if swap != nil {
			id = swap.ID
		} else if change != nil {
			id = change.ID
		}
		p.logger.Info("record already applied", zap.String("record_id", id))
		return Duplicate, nil
	}
	if err != nil {
		return Ignored, fmt.Errorf("commit pool: %w", err)
	}
	p.observe(pool)
	return Applied, nil
}

func (p *Processor) observe(pool model.PoolState) {
	p.metrics.ObservePool(AssetA.String(), pool.BalanceA, pool.DeviationA)
	p.metrics.ObservePool(AssetB.String(), pool.BalanceB, pool.DeviationB)
	p.metrics.ObserveBlock(pool.LastUpdatedBlock)
}

func addBalance(pool *model.PoolState, asset Asset, delta *big.Int) error {
	var balance *big.Int
	switch asset {
	case AssetA:
		balance = pool.BalanceA
	case AssetB:
		balance = pool.BalanceB
	default:
		return nil
	}
	next := new(big.Int).Add(balance, delta)
	if next.Sign() < 0 {
		return fmt.Errorf("%w: asset %s %s + %s", ErrNegativeBalance, asset, balance, delta)
	}
	balance.Set(next)
	return nil
}

func indexOf(tokens []common.Address, token common.Address) int {
	for i, t := range tokens {
		if t == token {
			return i
		}
	}
	return -1
}

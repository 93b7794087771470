package storage

import (
	"context"
	"sync"

	"deviationScope/internal/model"
)

// MemoryStore keeps pool ledgers and records in process memory. Commits are
// all-or-nothing under a single lock.
type MemoryStore struct {
	mu             sync.RWMutex
	pools          map[string]model.PoolState
	recordIDs      map[string]struct{}
	swaps          []model.SwapRecord
	balanceChanges []model.BalanceChangeRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:     make(map[string]model.PoolState),
		recordIDs: make(map[string]struct{}),
	}
}

// LoadPool returns a copy of the stored pool state.
func (s *MemoryStore) LoadPool(ctx context.Context, id string) (model.PoolState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.pools[id]
	if !ok {
		return model.PoolState{}, false, nil
	}
	return state.Clone(), true, nil
}

// Commit upserts the pool and appends at most one record.
func (s *MemoryStore) Commit(ctx context.Context, pool model.PoolState, swap *model.SwapRecord, change *model.BalanceChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if swap != nil {
		if _, ok := s.recordIDs[swap.ID]; ok {
			return ErrDuplicateRecord
		}
	}
	if change != nil {
		if _, ok := s.recordIDs[change.ID]; ok {
			return ErrDuplicateRecord
		}
	}

	s.pools[pool.ID] = pool.Clone()
	if swap != nil {
		s.recordIDs[swap.ID] = struct{}{}
		s.swaps = append(s.swaps, *swap)
	}
	if change != nil {
		s.recordIDs[change.ID] = struct{}{}
		s.balanceChanges = append(s.balanceChanges, *change)
	}
	return nil
}

// Swaps returns the stored swap records in commit order.
func (s *MemoryStore) Swaps() []model.SwapRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SwapRecord, len(s.swaps))
	copy(out, s.swaps)
	return out
}

// BalanceChanges returns the stored balance change records in commit order.
func (s *MemoryStore) BalanceChanges() []model.BalanceChangeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.BalanceChangeRecord, len(s.balanceChanges))
	copy(out, s.balanceChanges)
	return out
}

package model

import "math/big"

// PoolState is the running ledger of a tracked pool.
type PoolState struct {
	ID                   string   `json:"id"`
	BalanceA             *big.Int `json:"balance_a"`
	BalanceB             *big.Int `json:"balance_b"`
	DeviationA           *big.Int `json:"deviation_a"`
	DeviationB           *big.Int `json:"deviation_b"`
	LastUpdatedBlock     uint64   `json:"last_updated_block"`
	LastUpdatedTimestamp uint64   `json:"last_updated_timestamp"`
	LastUpdatedLogIndex  uint64   `json:"last_updated_log_index"`
}

// NewPoolState returns an empty ledger for a freshly registered pool.
func NewPoolState(id string, blockNumber, timestamp uint64) PoolState {
	return PoolState{
		ID:                   id,
		BalanceA:             new(big.Int),
		BalanceB:             new(big.Int),
		DeviationA:           new(big.Int),
		DeviationB:           new(big.Int),
		LastUpdatedBlock:     blockNumber,
		LastUpdatedTimestamp: timestamp,
	}
}

// Covers reports whether the ledger already reflects the log at
// (blockNumber, logIndex) or a later one.
func (p PoolState) Covers(blockNumber, logIndex uint64) bool {
	if p.LastUpdatedBlock != blockNumber {
		return p.LastUpdatedBlock > blockNumber
	}
	return p.LastUpdatedLogIndex >= logIndex
}

// Clone returns a deep copy so callers can stage changes without aliasing.
func (p PoolState) Clone() PoolState {
	out := p
	out.BalanceA = cloneInt(p.BalanceA)
	out.BalanceB = cloneInt(p.BalanceB)
	out.DeviationA = cloneInt(p.DeviationA)
	out.DeviationB = cloneInt(p.DeviationB)
	return out
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

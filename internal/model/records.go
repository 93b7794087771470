package model

import "math/big"

// SwapRecord is the immutable result of processing one Swap event.
// RateA and RateB are nil when the fair value was not computed.
type SwapRecord struct {
	ID             string   `json:"id"`
	PoolID         string   `json:"pool_id"`
	TokenIn        string   `json:"token_in"`
	TokenOut       string   `json:"token_out"`
	AmountIn       *big.Int `json:"amount_in"`
	AmountOut      *big.Int `json:"amount_out"`
	ExpectedOutput *big.Int `json:"expected_output"`
	Deviation      *big.Int `json:"deviation"`
	BalanceA       *big.Int `json:"balance_a"`
	BalanceB       *big.Int `json:"balance_b"`
	RateA          *big.Int `json:"rate_a,omitempty"`
	RateB          *big.Int `json:"rate_b,omitempty"`
	BlockNumber    uint64   `json:"block_number"`
	Timestamp      uint64   `json:"timestamp"`
	TxHash         string   `json:"tx_hash"`
	LogIndex       uint64   `json:"log_index"`
}

// BalanceChangeRecord is the immutable result of processing one
// PoolBalanceChanged event that touched a tracked token.
type BalanceChangeRecord struct {
	ID          string     `json:"id"`
	PoolID      string     `json:"pool_id"`
	Tokens      []string   `json:"tokens"`
	Deltas      []*big.Int `json:"deltas"`
	BalanceA    *big.Int   `json:"balance_a"`
	BalanceB    *big.Int   `json:"balance_b"`
	BlockNumber uint64     `json:"block_number"`
	Timestamp   uint64     `json:"timestamp"`
	TxHash      string     `json:"tx_hash"`
	LogIndex    uint64     `json:"log_index"`
}

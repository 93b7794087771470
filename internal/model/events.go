package model

// Vault event names as emitted by the decoder.
const (
	EventPoolRegistered     = "PoolRegistered"
	EventSwap               = "Swap"
	EventPoolBalanceChanged = "PoolBalanceChanged"
)

// PoolRegisteredData is the decoded Vault PoolRegistered payload.
type PoolRegisteredData struct {
	PoolID         string `json:"pool_id"`
	PoolAddress    string `json:"pool_address"`
	Specialization uint8  `json:"specialization"`
}

// SwapEventData is the decoded Vault Swap payload.
type SwapEventData struct {
	PoolID    string `json:"pool_id"`
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
}

// PoolBalanceChangedData is the decoded Vault PoolBalanceChanged payload.
// Tokens, Deltas and ProtocolFeeAmounts are parallel.
type PoolBalanceChangedData struct {
	PoolID             string   `json:"pool_id"`
	LiquidityProvider  string   `json:"liquidity_provider"`
	Tokens             []string `json:"tokens"`
	Deltas             []string `json:"deltas"`
	ProtocolFeeAmounts []string `json:"protocol_fee_amounts"`
}

package model

// EventHeader locates a Vault event on chain. Every Vault pool event is keyed
// by its pool id, the first indexed topic.
type EventHeader struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	BlockHash   string `json:"block_hash"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	EventName   string `json:"event_name"`
	PoolID      string `json:"pool_id"`
	Timestamp   uint64 `json:"timestamp"`
}

// HeaderFromLog copies the chain position of log into a header for the
// named event.
func HeaderFromLog(log LogRecord, eventName, poolID string) EventHeader {
	return EventHeader{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   eventName,
		PoolID:      poolID,
		Timestamp:   log.Timestamp,
	}
}

// TypedEvent is one line of the decode output. Decoded holds a
// PoolRegisteredData, SwapEventData or PoolBalanceChangedData.
type TypedEvent struct {
	EventHeader
	Decoded interface{} `json:"decoded"`
	Raw     *RawLogRef  `json:"raw,omitempty"`
}

// RawLogRef points back at the undecoded log.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}

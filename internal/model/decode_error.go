package model

// DecodeError is one line of the decode error file. EventName is empty when
// topic0 did not match a Vault event.
type DecodeError struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	EventName   string `json:"event_name,omitempty"`
	Error       string `json:"error"`
}

// NewDecodeError describes why log could not be turned into a typed event.
func NewDecodeError(log LogRecord, eventName string, err error) DecodeError {
	out := DecodeError{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   eventName,
		Error:       err.Error(),
	}
	if len(log.Topics) > 0 {
		out.Topic0 = log.Topics[0]
	}
	return out
}

package model

import "fmt"

// LogRecord is the normalized representation of a chain log for storage.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
	IngestedAt  string   `json:"ingested_at"`
}

// RecordID builds the append-only record key for a log: {txHash}-{logIndex}.
func RecordID(txHash string, logIndex uint64) string {
	return fmt.Sprintf("%s-%d", txHash, logIndex)
}

// ID returns the record key of the log.
func (lr LogRecord) ID() string {
	return RecordID(lr.TxHash, lr.LogIndex)
}

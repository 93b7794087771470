package model

import "encoding/json"

// TypedEventRecord is a decode output line read back by the replayer.
// Decoded is parsed once EventName selects the payload type.
type TypedEventRecord struct {
	EventHeader
	Decoded json.RawMessage `json:"decoded"`
	Raw     *RawLogRef      `json:"raw,omitempty"`
}

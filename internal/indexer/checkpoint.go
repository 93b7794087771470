package indexer

import (
	"fmt"
	"os"
	"time"

	"deviationScope/internal/storage"
)

// Checkpoint tracks the last fully stored block of the Vault log feed.
type Checkpoint struct {
	LastProcessedBlock uint64 `json:"last_processed_block"`
	LogsWritten        uint64 `json:"logs_written"`
	UpdatedAt          string `json:"updated_at"`
}

// CheckpointStore persists checkpoints to disk. A disabled store never loads
// and ignores saves.
type CheckpointStore struct {
	path    string
	enabled bool
	written uint64
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled && path != ""}
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}
	if stat, err := os.Stat(c.path); err == nil && stat.IsDir() {
		return Checkpoint{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	var cp Checkpoint
	ok, err := storage.ReadJSONFile(c.path, &cp)
	if err != nil || !ok {
		return Checkpoint{}, false, err
	}
	c.written = cp.LogsWritten
	return cp, true, nil
}

// Save records lastProcessed and adds logs to the running total.
func (c *CheckpointStore) Save(lastProcessed uint64, logs int) error {
	if !c.enabled {
		return nil
	}
	c.written += uint64(logs)
	return storage.WriteJSONFile(c.path, Checkpoint{
		LastProcessedBlock: lastProcessed,
		LogsWritten:        c.written,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	})
}

package ledger

import (
	"context"
	"time"

	"deviationScope/internal/storage"
	"deviationScope/internal/storage/postgres"
)

// Cursor is the position of the last applied event.
type Cursor struct {
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint64 `json:"log_index"`
}

// Covers reports whether the event at (block, logIndex) was already applied.
func (c Cursor) Covers(block, logIndex uint64) bool {
	if block != c.BlockNumber {
		return block < c.BlockNumber
	}
	return logIndex <= c.LogIndex
}

// CursorStore persists the replay cursor.
type CursorStore interface {
	Load(ctx context.Context) (Cursor, bool, error)
	Save(ctx context.Context, cursor Cursor) error
}

// FileCursorStore stores the cursor in a local JSON file.
type FileCursorStore struct {
	Path string
}

type cursorRecord struct {
	Cursor
	UpdatedAt string `json:"updated_at"`
}

func (s *FileCursorStore) Load(ctx context.Context) (Cursor, bool, error) {
	if s == nil || s.Path == "" {
		return Cursor{}, false, nil
	}
	var rec cursorRecord
	ok, err := storage.ReadJSONFile(s.Path, &rec)
	if err != nil || !ok {
		return Cursor{}, false, err
	}
	return rec.Cursor, true, nil
}

func (s *FileCursorStore) Save(ctx context.Context, cursor Cursor) error {
	if s == nil || s.Path == "" {
		return nil
	}
	return storage.WriteJSONFile(s.Path, cursorRecord{
		Cursor:    cursor,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// DBCursorStore stores the cursor in the ledger_cursor table.
type DBCursorStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBCursorStore) Load(ctx context.Context) (Cursor, bool, error) {
	if s == nil || s.Store == nil {
		return Cursor{}, false, nil
	}
	block, logIndex, ok, err := s.Store.LoadCursor(ctx, s.Name)
	if err != nil || !ok {
		return Cursor{}, ok, err
	}
	return Cursor{BlockNumber: block, LogIndex: logIndex}, true, nil
}

func (s *DBCursorStore) Save(ctx context.Context, cursor Cursor) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveCursor(ctx, s.Name, cursor.BlockNumber, cursor.LogIndex)
}

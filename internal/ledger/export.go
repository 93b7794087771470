package ledger

import (
	"context"
	"fmt"

	"deviationScope/internal/model"
	"deviationScope/internal/storage"
)

// ExportingStore mirrors every committed record to a JSONL writer.
type ExportingStore struct {
	Store
	out *storage.JSONLWriter
}

func NewExportingStore(store Store, out *storage.JSONLWriter) *ExportingStore {
	return &ExportingStore{Store: store, out: out}
}

type exportedRecord struct {
	Kind          string                     `json:"kind"`
	Swap          *model.SwapRecord          `json:"swap,omitempty"`
	BalanceChange *model.BalanceChangeRecord `json:"balance_change,omitempty"`
}

// Commit commits to the wrapped store and then writes the record. A write
// failure is reported after the commit has landed; a rerun sees the record as
// a duplicate.
func (s *ExportingStore) Commit(ctx context.Context, pool model.PoolState, swap *model.SwapRecord, change *model.BalanceChangeRecord) error {
	if err := s.Store.Commit(ctx, pool, swap, change); err != nil {
		return err
	}
	if s.out == nil {
		return nil
	}
	switch {
	case swap != nil:
		if err := s.out.Write(exportedRecord{Kind: "swap", Swap: swap}); err != nil {
			return fmt.Errorf("export swap record: %w", err)
		}
	case change != nil:
		if err := s.out.Write(exportedRecord{Kind: "balance_change", BalanceChange: change}); err != nil {
			return fmt.Errorf("export balance change record: %w", err)
		}
	}
	return nil
}

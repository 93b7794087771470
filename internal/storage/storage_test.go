package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"deviationScope/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs.jsonl")
	sink := NewJsonlStorage(path)

	if err := sink.PutLogBatch([]model.LogRecord{{BlockNumber: 1, TxHash: "0x1"}}); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := sink.PutLogBatch([]model.LogRecord{{BlockNumber: 2, TxHash: "0x2"}, {BlockNumber: 2, TxHash: "0x3", LogIndex: 1}}); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var got []model.LogRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record model.LogRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		got = append(got, record)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[2].ID() != "0x3-1" {
		t.Fatalf("order mismatch: %+v", got)
	}
}

func TestMemoryStoreCommitIsAllOrNothing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	pool := model.NewPoolState("0xpool", 1, 100)
	pool.BalanceA.SetInt64(10)
	swap := &model.SwapRecord{ID: "0xtx-0", AmountIn: big.NewInt(1)}
	if err := store.Commit(ctx, pool, swap, nil); err != nil {
		t.Fatalf("commit: %v", err)
	}

	changed := pool.Clone()
	changed.BalanceA.SetInt64(999)
	err := store.Commit(ctx, changed, &model.SwapRecord{ID: "0xtx-0"}, nil)
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	loaded, ok, err := store.LoadPool(ctx, "0xpool")
	if err != nil || !ok {
		t.Fatalf("load: %v %v", ok, err)
	}
	if loaded.BalanceA.Int64() != 10 {
		t.Fatalf("duplicate commit leaked pool state: %s", loaded.BalanceA)
	}
	if len(store.Swaps()) != 1 {
		t.Fatalf("expected one swap record, got %d", len(store.Swaps()))
	}

	loaded.BalanceA.SetInt64(5)
	again, _, _ := store.LoadPool(ctx, "0xpool")
	if again.BalanceA.Int64() != 10 {
		t.Fatalf("load returned aliased state")
	}
}

func TestJSONFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cursor.json")

	var missing map[string]uint64
	ok, err := ReadJSONFile(path, &missing)
	if err != nil || ok {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}

	if err := WriteJSONFile(path, map[string]uint64{"block_number": 42}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got map[string]uint64
	ok, err = ReadJSONFile(path, &got)
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if got["block_number"] != 42 {
		t.Fatalf("value mismatch: %+v", got)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}
}

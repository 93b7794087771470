package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"deviationScope/internal/model"
	"deviationScope/internal/storage"
)

const uniqueViolation = "23505"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pools (
	id TEXT PRIMARY KEY,
	balance_a NUMERIC(78,0) NOT NULL CHECK (balance_a >= 0),
	balance_b NUMERIC(78,0) NOT NULL CHECK (balance_b >= 0),
	deviation_a NUMERIC(78,0) NOT NULL,
	deviation_b NUMERIC(78,0) NOT NULL,
	last_updated_block BIGINT NOT NULL,
	last_updated_timestamp BIGINT NOT NULL,
	last_updated_log_index BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

ALTER TABLE pools ADD COLUMN IF NOT EXISTS last_updated_log_index BIGINT NOT NULL DEFAULT 0;

CREATE TABLE IF NOT EXISTS swap_records (
	id TEXT PRIMARY KEY,
	pool_id TEXT NOT NULL,
	token_in TEXT NOT NULL,
	token_out TEXT NOT NULL,
	amount_in NUMERIC(78,0) NOT NULL,
	amount_out NUMERIC(78,0) NOT NULL,
	expected_output NUMERIC(78,0) NOT NULL,
	deviation NUMERIC(78,0) NOT NULL,
	balance_a NUMERIC(78,0) NOT NULL,
	balance_b NUMERIC(78,0) NOT NULL,
	rate_a NUMERIC(78,0),
	rate_b NUMERIC(78,0),
	block_number BIGINT NOT NULL,
	block_timestamp BIGINT NOT NULL,
	tx_hash TEXT NOT NULL,
	log_index BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS balance_change_records (
	id TEXT PRIMARY KEY,
	pool_id TEXT NOT NULL,
	tokens TEXT[] NOT NULL,
	deltas NUMERIC(78,0)[] NOT NULL,
	balance_a NUMERIC(78,0) NOT NULL,
	balance_b NUMERIC(78,0) NOT NULL,
	block_number BIGINT NOT NULL,
	block_timestamp BIGINT NOT NULL,
	tx_hash TEXT NOT NULL,
	log_index BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_cursor (
	name TEXT PRIMARY KEY,
	block_number BIGINT NOT NULL,
	log_index BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for pool ledgers and their records.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the ledger tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// LoadPool returns the stored ledger of a pool.
func (s *Store) LoadPool(ctx context.Context, id string) (model.PoolState, bool, error) {
	var balanceA, balanceB, deviationA, deviationB string
	state := model.PoolState{ID: id}
	row := s.pool.QueryRow(ctx, `
		SELECT balance_a::text, balance_b::text, deviation_a::text, deviation_b::text,
			last_updated_block, last_updated_timestamp, last_updated_log_index
		FROM pools WHERE id=$1
	`, id)
	var block, ts, logIndex int64
	if err := row.Scan(&balanceA, &balanceB, &deviationA, &deviationB, &block, &ts, &logIndex); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolState{}, false, nil
		}
		return model.PoolState{}, false, err
	}

	var err error
	if state.BalanceA, err = parseNumeric(balanceA); err != nil {
		return model.PoolState{}, false, err
	}
	if state.BalanceB, err = parseNumeric(balanceB); err != nil {
		return model.PoolState{}, false, err
	}
	if state.DeviationA, err = parseNumeric(deviationA); err != nil {
		return model.PoolState{}, false, err
	}
	if state.DeviationB, err = parseNumeric(deviationB); err != nil {
		return model.PoolState{}, false, err
	}
	state.LastUpdatedBlock = uint64(block)
	state.LastUpdatedTimestamp = uint64(ts)
	state.LastUpdatedLogIndex = uint64(logIndex)
	return state, true, nil
}

// Commit upserts the pool and inserts at most one record in a single
// transaction. An existing record id rolls the transaction back and returns
// storage.ErrDuplicateRecord.
func (s *Store) Commit(ctx context.Context, pool model.PoolState, swap *model.SwapRecord, change *model.BalanceChangeRecord) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if swap != nil {
			if err := insertSwapRecord(ctx, tx, swap); err != nil {
				return err
			}
		}
		if change != nil {
			if err := insertBalanceChangeRecord(ctx, tx, change); err != nil {
				return err
			}
		}
		return upsertPool(ctx, tx, pool)
	})

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrDuplicateRecord
	}
	return err
}

func upsertPool(ctx context.Context, tx pgx.Tx, pool model.PoolState) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO pools (
			id, balance_a, balance_b, deviation_a, deviation_b,
			last_updated_block, last_updated_timestamp, last_updated_log_index, updated_at
		) VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8, now())
		ON CONFLICT (id)
		DO UPDATE SET
			balance_a = EXCLUDED.balance_a,
			balance_b = EXCLUDED.balance_b,
			deviation_a = EXCLUDED.deviation_a,
			deviation_b = EXCLUDED.deviation_b,
			last_updated_block = EXCLUDED.last_updated_block,
			last_updated_timestamp = EXCLUDED.last_updated_timestamp,
			last_updated_log_index = EXCLUDED.last_updated_log_index,
			updated_at = now()
	`,
		pool.ID,
		numeric(pool.BalanceA),
		numeric(pool.BalanceB),
		numeric(pool.DeviationA),
		numeric(pool.DeviationB),
		int64(pool.LastUpdatedBlock),
		int64(pool.LastUpdatedTimestamp),
		int64(pool.LastUpdatedLogIndex),
	)
	return err
}

func insertSwapRecord(ctx context.Context, tx pgx.Tx, r *model.SwapRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO swap_records (
			id, pool_id, token_in, token_out, amount_in, amount_out, expected_output, deviation,
			balance_a, balance_b, rate_a, rate_b, block_number, block_timestamp, tx_hash, log_index
		) VALUES (
			$1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric,
			$9::numeric, $10::numeric, $11::numeric, $12::numeric, $13, $14, $15, $16
		)
	`,
		r.ID,
		r.PoolID,
		r.TokenIn,
		r.TokenOut,
		numeric(r.AmountIn),
		numeric(r.AmountOut),
		numeric(r.ExpectedOutput),
		numeric(r.Deviation),
		numeric(r.BalanceA),
		numeric(r.BalanceB),
		nullableNumeric(r.RateA),
		nullableNumeric(r.RateB),
		int64(r.BlockNumber),
		int64(r.Timestamp),
		r.TxHash,
		int64(r.LogIndex),
	)
	return err
}

func insertBalanceChangeRecord(ctx context.Context, tx pgx.Tx, r *model.BalanceChangeRecord) error {
	deltas := make([]string, len(r.Deltas))
	for i, delta := range r.Deltas {
		deltas[i] = numeric(delta)
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO balance_change_records (
			id, pool_id, tokens, deltas, balance_a, balance_b,
			block_number, block_timestamp, tx_hash, log_index
		) VALUES ($1, $2, $3, $4::numeric[], $5::numeric, $6::numeric, $7, $8, $9, $10)
	`,
		r.ID,
		r.PoolID,
		r.Tokens,
		deltas,
		numeric(r.BalanceA),
		numeric(r.BalanceB),
		int64(r.BlockNumber),
		int64(r.Timestamp),
		r.TxHash,
		int64(r.LogIndex),
	)
	return err
}

// LoadCursor returns the replay cursor for a name.
func (s *Store) LoadCursor(ctx context.Context, name string) (uint64, uint64, bool, error) {
	if name == "" {
		return 0, 0, false, fmt.Errorf("cursor name required")
	}
	var block, logIndex int64
	row := s.pool.QueryRow(ctx, `SELECT block_number, log_index FROM ledger_cursor WHERE name=$1`, name)
	if err := row.Scan(&block, &logIndex); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	return uint64(block), uint64(logIndex), true, nil
}

// SaveCursor upserts the replay cursor for a name.
func (s *Store) SaveCursor(ctx context.Context, name string, block, logIndex uint64) error {
	if name == "" {
		return fmt.Errorf("cursor name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ledger_cursor (name, block_number, log_index, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET block_number = EXCLUDED.block_number, log_index = EXCLUDED.log_index, updated_at = now()
	`, name, int64(block), int64(logIndex))
	return err
}

func numeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func nullableNumeric(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func parseNumeric(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric %q", s)
	}
	return v, nil
}

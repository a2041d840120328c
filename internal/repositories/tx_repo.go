package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tor-rent/backend/internal/chain"
)

type TxRepo struct {
	pool *pgxpool.Pool
}

func NewTxRepo(pool *pgxpool.Pool) *TxRepo {
	return &TxRepo{pool: pool}
}

// SaveReceipt writes the call, its outcome and its events in one transaction.
func (r *TxRepo) SaveReceipt(ctx context.Context, rc *chain.Receipt) error {
	var result []byte
	if rc.Result != nil {
		b, err := json.Marshal(rc.Result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		result = b
	}
	var args *string
	if len(rc.Call.Args) > 0 {
		s := string(rc.Call.Args)
		args = &s
	}
	var errText *string
	if rc.Error != "" {
		errText = &rc.Error
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (seq, tx_hash, caller, contract, method, value, args, status, error, result, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::json, $8, $9, $10, $11)
	`, int64(rc.Call.Seq), rc.TxHash, rc.Call.Caller.Raw(), rc.Call.Contract, rc.Call.Method,
		strconv.FormatUint(rc.Call.Value, 10), args, rc.Status, errText, result, rc.ExecutedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	if len(rc.Events) > 0 {
		batch := &pgx.Batch{}
		for _, e := range rc.Events {
			fields, err := json.Marshal(e.Fields)
			if err != nil {
				return fmt.Errorf("encode event %s: %w", e.Name, err)
			}
			batch.Queue(`
				INSERT INTO chain_events (seq, idx, tx_hash, contract, name, fields)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, int64(e.Seq), e.Index, e.TxHash, e.Contract, e.Name, fields)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListCommitted returns successful calls in execution order.
func (r *TxRepo) ListCommitted(ctx context.Context) ([]chain.JournalEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT seq, caller, contract, method, value::text, COALESCE(args::text, ''), block_number
		FROM transactions
		WHERE status = 'success'
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chain.JournalEntry
	for rows.Next() {
		var (
			seq      int64
			caller   string
			value    string
			args     string
			blockNum *int64
			e        chain.JournalEntry
		)
		if err := rows.Scan(&seq, &caller, &e.Call.Contract, &e.Call.Method, &value, &args, &blockNum); err != nil {
			return nil, err
		}
		if err := fillCall(&e.Call, seq, caller, value, args); err != nil {
			return nil, err
		}
		e.BlockNumber = toUint64Ptr(blockNum)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetReceipt returns nil, nil when the hash is unknown.
func (r *TxRepo) GetReceipt(ctx context.Context, hash string) (*chain.Receipt, error) {
	var (
		seq        int64
		caller     string
		value      string
		args       string
		errText    *string
		result     []byte
		blockNum   *int64
		executedAt time.Time
		rc         chain.Receipt
	)
	err := r.pool.QueryRow(ctx, `
		SELECT seq, tx_hash, caller, contract, method, value::text, COALESCE(args::text, ''),
		       status, error, result, block_number, executed_at
		FROM transactions WHERE tx_hash = $1
	`, hash).Scan(&seq, &rc.TxHash, &caller, &rc.Call.Contract, &rc.Call.Method, &value, &args,
		&rc.Status, &errText, &result, &blockNum, &executedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := fillCall(&rc.Call, seq, caller, value, args); err != nil {
		return nil, err
	}
	if errText != nil {
		rc.Error = *errText
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &rc.Result); err != nil {
			return nil, fmt.Errorf("decode result of %s: %w", hash, err)
		}
	}
	rc.BlockNumber = toUint64Ptr(blockNum)
	rc.ExecutedAt = executedAt

	events, err := listEvents(ctx, r.pool, `WHERE seq = $1`, []any{seq}, 0)
	if err != nil {
		return nil, err
	}
	rc.Events = events
	return &rc, nil
}

func fillCall(c *chain.Call, seq int64, caller, value, args string) error {
	addr, err := chain.ParseAddress(caller)
	if err != nil {
		return fmt.Errorf("seq %d: caller: %w", seq, err)
	}
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fmt.Errorf("seq %d: value: %w", seq, err)
	}
	c.Seq = uint64(seq)
	c.Caller = addr
	c.Value = v
	if args != "" {
		c.Args = json.RawMessage(args)
	}
	return nil
}

func toUint64Ptr(v *int64) *uint64 {
	if v == nil {
		return nil
	}
	u := uint64(*v)
	return &u
}

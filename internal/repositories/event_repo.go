package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/services"
)

type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) ListEvents(ctx context.Context, f services.EventFilter) ([]chain.Event, error) {
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.Contract != "" {
		where = append(where, fmt.Sprintf("contract = $%d", argIdx))
		args = append(args, f.Contract)
		argIdx++
	}
	if f.Name != "" {
		where = append(where, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, f.Name)
		argIdx++
	}
	if f.FromSeq > 0 {
		where = append(where, fmt.Sprintf("seq >= $%d", argIdx))
		args = append(args, int64(f.FromSeq))
	}

	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	return listEvents(ctx, r.pool, clause, args, f.Limit)
}

func listEvents(ctx context.Context, pool *pgxpool.Pool, clause string, args []any, limit int) ([]chain.Event, error) {
	query := `SELECT seq, idx, tx_hash, contract, name, fields FROM chain_events ` + clause + ` ORDER BY seq, idx`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []chain.Event{}
	for rows.Next() {
		var (
			e      chain.Event
			seq    int64
			fields []byte
		)
		if err := rows.Scan(&seq, &e.Index, &e.TxHash, &e.Contract, &e.Name, &fields); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		if err := json.Unmarshal(fields, &e.Fields); err != nil {
			return nil, fmt.Errorf("decode event %d/%d: %w", seq, e.Index, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tor-rent/backend/internal/chain"
)

type BlockRepo struct {
	pool *pgxpool.Pool
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

// SaveBlock inserts the header and stamps the included transactions.
func (r *BlockRepo) SaveBlock(ctx context.Context, b *chain.Block) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO blocks (number, hash, parent_hash, tx_hashes, sealed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, int64(b.Number), b.Hash, b.ParentHash, b.TxHashes, b.SealedAt)
	if err != nil {
		return fmt.Errorf("insert block %d: %w", b.Number, err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE transactions SET block_number = $1
		WHERE tx_hash = ANY($2) AND block_number IS NULL
	`, int64(b.Number), b.TxHashes)
	if err != nil {
		return fmt.Errorf("stamp block %d: %w", b.Number, err)
	}
	if tag.RowsAffected() != int64(len(b.TxHashes)) {
		return fmt.Errorf("block %d: stamped %d of %d transactions", b.Number, tag.RowsAffected(), len(b.TxHashes))
	}

	return tx.Commit(ctx)
}

func (r *BlockRepo) ListBlocks(ctx context.Context) ([]*chain.Block, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT number, hash, parent_hash, tx_hashes, sealed_at
		FROM blocks ORDER BY number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*chain.Block
	for rows.Next() {
		var (
			b      chain.Block
			number int64
		)
		if err := rows.Scan(&number, &b.Hash, &b.ParentHash, &b.TxHashes, &b.SealedAt); err != nil {
			return nil, err
		}
		b.Number = uint64(number)
		out = append(out, &b)
	}
	return out, rows.Err()
}

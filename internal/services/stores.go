package services

import (
	"context"

	"github.com/tor-rent/backend/internal/chain"
)

// TxStore is the transaction journal. SaveReceipt stores the call, its
// receipt and its events atomically.
type TxStore interface {
	SaveReceipt(ctx context.Context, r *chain.Receipt) error
	// ListCommitted returns successful calls ordered by Seq.
	ListCommitted(ctx context.Context) ([]chain.JournalEntry, error)
	GetReceipt(ctx context.Context, hash string) (*chain.Receipt, error)
}

type BlockStore interface {
	// SaveBlock stores the header and stamps its transactions with the block number.
	SaveBlock(ctx context.Context, b *chain.Block) error
	ListBlocks(ctx context.Context) ([]*chain.Block, error)
}

type EventFilter struct {
	Contract string
	Name     string
	FromSeq  uint64
	Limit    int
}

type EventStore interface {
	ListEvents(ctx context.Context, f EventFilter) ([]chain.Event, error)
}

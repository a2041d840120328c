package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/contracts"
	"github.com/tor-rent/backend/internal/events"
)

// Genesis is the state every node starts from before the journal is replayed.
type Genesis struct {
	Deployer    chain.Address
	TokenSupply uint64
	Allocations map[chain.Address]uint64
}

// LedgerService runs contract calls on the ledger, journals them and fans
// their events out.
type LedgerService struct {
	ledger    *chain.Ledger
	contracts *contracts.Suite
	methods   map[string]binder
	txs       TxStore
	blocks    BlockStore
	events    EventStore
	publisher events.Publisher
	log       *zap.Logger
}

func NewLedgerService(
	g Genesis,
	txs TxStore,
	blocks BlockStore,
	eventStore EventStore,
	publisher events.Publisher,
	log *zap.Logger,
) *LedgerService {
	ledger := chain.NewLedger()
	for a, amount := range g.Allocations {
		ledger.Allocate(a, amount)
	}
	suite := contracts.Deploy(g.Deployer, g.TokenSupply)

	s := &LedgerService{
		ledger:    ledger,
		contracts: suite,
		methods:   methodTable(suite),
		txs:       txs,
		blocks:    blocks,
		events:    eventStore,
		publisher: publisher,
		log:       log,
	}
	ledger.SetCommitHook(s.journal)
	ledger.SetSealHook(s.blocks.SaveBlock)

	log.Info("contracts deployed",
		zap.String("deployer", g.Deployer.String()),
		zap.Uint64("token_supply", g.TokenSupply),
		zap.Int("allocations", len(g.Allocations)),
	)
	return s
}

func (s *LedgerService) Ledger() *chain.Ledger { return s.ledger }

func (s *LedgerService) journal(ctx context.Context, r *chain.Receipt) error {
	return s.txs.SaveReceipt(ctx, r)
}

// Submit runs one user call. Argument errors are returned without a receipt.
// A reverted call returns its receipt together with the RevertError.
func (s *LedgerService) Submit(ctx context.Context, call chain.Call) (*chain.Receipt, error) {
	if call.Contract == chain.SystemContract {
		return nil, fmt.Errorf("%w: system calls cannot be submitted", chain.ErrUnauthorized)
	}
	if call.Caller.IsZero() {
		return nil, fmt.Errorf("%w: caller is required", chain.ErrUnauthorized)
	}
	return s.execute(ctx, call)
}

// NewCall encodes typed arguments into a call.
func NewCall(caller chain.Address, contract, method string, value uint64, args any) (chain.Call, error) {
	raw, err := jsonArgs(args)
	if err != nil {
		return chain.Call{}, err
	}
	return chain.Call{Caller: caller, Contract: contract, Method: method, Value: value, Args: raw}, nil
}

func (s *LedgerService) execute(ctx context.Context, call chain.Call) (*chain.Receipt, error) {
	b, ok := s.methods[methodKey(call.Contract, call.Method)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown method %s.%s", chain.ErrInvalidInput, call.Contract, call.Method)
	}
	args, fn, err := b(call.Args, false)
	if err != nil {
		return nil, err
	}
	call.Args = args

	r, err := s.ledger.Execute(ctx, call, fn)
	if r == nil {
		s.log.Error("transaction not committed",
			zap.String("contract", call.Contract),
			zap.String("method", call.Method),
			zap.Error(err),
		)
		return nil, err
	}

	if err != nil {
		s.log.Info("transaction reverted",
			zap.String("tx_hash", r.TxHash),
			zap.String("contract", call.Contract),
			zap.String("method", call.Method),
			zap.String("reason", r.Error),
		)
	} else {
		s.log.Info("transaction committed",
			zap.String("tx_hash", r.TxHash),
			zap.Uint64("seq", r.Call.Seq),
			zap.String("contract", call.Contract),
			zap.String("method", call.Method),
			zap.Int("events", len(r.Events)),
		)
	}
	s.broadcast(ctx, r)
	return r, err
}

func (s *LedgerService) broadcast(ctx context.Context, r *chain.Receipt) {
	if s.publisher == nil {
		return
	}

	if !r.Succeeded() {
		err := s.publisher.Publish(ctx, events.ChannelChain, events.Event{
			Type: events.EventTxReverted,
			Payload: map[string]any{
				"tx_hash":  r.TxHash,
				"contract": r.Call.Contract,
				"method":   r.Call.Method,
				"caller":   r.Call.Caller.String(),
				"reason":   r.Error,
			},
		})
		if err != nil {
			s.log.Warn("failed to publish revert", zap.String("tx_hash", r.TxHash), zap.Error(err))
		}
		return
	}

	for _, e := range r.Events {
		err := s.publisher.Publish(ctx, events.ChannelChain, events.Event{
			Type: events.EventContract,
			Payload: map[string]any{
				"tx_hash":  e.TxHash,
				"seq":      e.Seq,
				"index":    e.Index,
				"contract": e.Contract,
				"name":     e.Name,
				"fields":   e.Fields,
			},
		})
		if err != nil {
			s.log.Warn("failed to publish event",
				zap.String("tx_hash", r.TxHash),
				zap.String("event", e.Name),
				zap.Error(err),
			)
		}
	}
}

// Credit applies an external deposit once per ref. A repeated ref is a no-op
// and returns a nil receipt.
func (s *LedgerService) Credit(ctx context.Context, ref string, to chain.Address, amount uint64) (*chain.Receipt, error) {
	if s.ledger.Credited(ref) {
		s.log.Info("deposit already credited", zap.String("ref", ref))
		return nil, nil
	}

	args, err := jsonArgs(CreditArgs{Ref: ref, To: to, Amount: amount})
	if err != nil {
		return nil, err
	}
	r, err := s.execute(ctx, chain.Call{
		Contract: chain.SystemContract,
		Method:   "credit",
		Args:     args,
	})
	if errors.Is(err, chain.ErrInvalidTransition) {
		// a concurrent credit with the same ref won the race
		return nil, nil
	}
	return r, err
}

// Replay rebuilds state from the journal and restores sealed blocks. It must
// run before the service accepts calls.
func (s *LedgerService) Replay(ctx context.Context) (int, error) {
	entries, err := s.txs.ListCommitted(ctx)
	if err != nil {
		return 0, fmt.Errorf("load journal: %w", err)
	}

	for _, e := range entries {
		b, ok := s.methods[methodKey(e.Call.Contract, e.Call.Method)]
		if !ok {
			return 0, fmt.Errorf("replay seq %d: unknown method %s.%s", e.Call.Seq, e.Call.Contract, e.Call.Method)
		}
		_, fn, err := b(e.Call.Args, true)
		if err != nil {
			return 0, fmt.Errorf("replay seq %d: %w", e.Call.Seq, err)
		}
		if _, err := s.ledger.Replay(e, fn); err != nil {
			return 0, err
		}
	}

	blocks, err := s.blocks.ListBlocks(ctx)
	if err != nil {
		return 0, fmt.Errorf("load blocks: %w", err)
	}
	s.ledger.RestoreBlocks(blocks)

	s.log.Info("journal replayed",
		zap.Int("transactions", len(entries)),
		zap.Int("blocks", len(blocks)),
		zap.Int("pending", s.ledger.PendingCount()),
	)
	return len(entries), nil
}

// SealNow seals pending receipts into a block, if any.
func (s *LedgerService) SealNow(ctx context.Context) (*chain.Block, error) {
	b, err := s.ledger.SealBlock(ctx)
	if err != nil || b == nil {
		return b, err
	}

	s.log.Info("block sealed",
		zap.Uint64("number", b.Number),
		zap.String("hash", b.Hash),
		zap.Int("txs", len(b.TxHashes)),
	)
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, events.ChannelChain, events.Event{
			Type: events.EventBlockSealed,
			Payload: map[string]any{
				"number":      b.Number,
				"hash":        b.Hash,
				"parent_hash": b.ParentHash,
				"tx_hashes":   b.TxHashes,
			},
		})
		if err != nil {
			s.log.Warn("failed to publish block", zap.Uint64("number", b.Number), zap.Error(err))
		}
	}
	return b, nil
}

// RunSealer seals a block on every tick until ctx is done. Pending receipts
// are flushed once more on shutdown.
func (s *LedgerService) RunSealer(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("block sealer started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := s.SealNow(flushCtx); err != nil {
				s.log.Error("final seal failed", zap.Error(err))
			}
			cancel()
			return
		case <-ticker.C:
			if _, err := s.SealNow(ctx); err != nil {
				s.log.Error("seal failed", zap.Error(err))
			}
		}
	}
}

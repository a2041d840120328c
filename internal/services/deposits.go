package services

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/events"
)

// Deposit is an external transfer to be credited to a ledger account.
type Deposit struct {
	Ref     string
	Account chain.Address
	Amount  uint64
}

// ParseDeposit reads a deposit event as published by the indexer. The amount
// travels as a decimal string so it survives JSON number handling.
func ParseDeposit(e events.Event) (Deposit, error) {
	if e.Type != events.EventDeposit {
		return Deposit{}, fmt.Errorf("unexpected event type %q", e.Type)
	}
	ref, _ := e.Payload["ref"].(string)
	if ref == "" {
		return Deposit{}, fmt.Errorf("deposit without ref")
	}
	acct, _ := e.Payload["account"].(string)
	to, err := chain.ParseAddress(acct)
	if err != nil {
		return Deposit{}, fmt.Errorf("deposit %s: %w", ref, err)
	}
	raw, _ := e.Payload["amount"].(string)
	amount, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || amount == 0 {
		return Deposit{}, fmt.Errorf("deposit %s: invalid amount %q", ref, raw)
	}
	return Deposit{Ref: ref, Account: to, Amount: amount}, nil
}

// ConsumeDeposits credits deposits from the deposits stream until ctx is done.
// A deposit is acknowledged only once it is credited or known to be invalid;
// anything else is redelivered, and Credit absorbs repeats by ref.
func (s *LedgerService) ConsumeDeposits(ctx context.Context, c events.Consumer) error {
	return c.Consume(ctx, events.StreamDeposits, s.creditDeposit)
}

func (s *LedgerService) creditDeposit(ctx context.Context, e events.Event) error {
	d, err := ParseDeposit(e)
	if err != nil {
		s.log.Warn("skipping deposit event", zap.Error(err))
		return nil
	}
	r, err := s.Credit(ctx, d.Ref, d.Account, d.Amount)
	if chain.IsRevert(err) {
		// отклонён ledger'ом: повтор даст тот же результат
		s.log.Warn("deposit rejected", zap.String("ref", d.Ref), zap.Error(err))
		return nil
	}
	if err != nil {
		s.log.Error("failed to credit deposit", zap.String("ref", d.Ref), zap.Error(err))
		return fmt.Errorf("credit %s: %w", d.Ref, err)
	}
	if r != nil {
		s.log.Info("deposit credited",
			zap.String("ref", d.Ref),
			zap.String("account", d.Account.String()),
			zap.Uint64("amount", d.Amount),
			zap.String("tx_hash", r.TxHash),
		)
	}
	return nil
}

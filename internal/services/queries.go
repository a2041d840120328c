package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/contracts"
	"github.com/tor-rent/backend/internal/models"
)

func jsonArgs(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	return b, nil
}

// Read accessors. They run under the ledger read lock and never mutate state.

func (s *LedgerService) Property(id uint64) (p models.Property, err error) {
	s.ledger.View(func() { p, err = s.contracts.Listing.LookupProperty(id) })
	return p, err
}

// Properties lists live properties of owner, or of everyone when owner is zero.
func (s *LedgerService) Properties(owner chain.Address, availableOnly bool) (out []models.Property) {
	s.ledger.View(func() {
		if owner.IsZero() {
			out = s.contracts.Listing.Properties(availableOnly)
			return
		}
		for _, p := range s.contracts.Listing.PropertiesByOwner(owner) {
			if !availableOnly || p.IsAvailable {
				out = append(out, p)
			}
		}
	})
	return out
}

func (s *LedgerService) PropertyCount() (n uint64) {
	s.ledger.View(func() { n = s.contracts.Listing.PropertyCount() })
	return n
}

func (s *LedgerService) Agreement(id uint64) (a models.Agreement, err error) {
	s.ledger.View(func() { a, err = s.contracts.Agreements.LookupAgreement(id) })
	return a, err
}

func (s *LedgerService) AgreementsByParty(party chain.Address) (out []models.Agreement) {
	s.ledger.View(func() { out = s.contracts.Agreements.AgreementsByParty(party) })
	return out
}

func (s *LedgerService) AgreementCount() (n uint64) {
	s.ledger.View(func() { n = s.contracts.Agreements.AgreementCount() })
	return n
}

func (s *LedgerService) Service(id uint64) (svc models.Service, err error) {
	s.ledger.View(func() { svc, err = s.contracts.Marketplace.LookupService(id) })
	return svc, err
}

func (s *LedgerService) Services(activeOnly bool) (out []models.Service) {
	s.ledger.View(func() { out = s.contracts.Marketplace.Services(activeOnly) })
	return out
}

func (s *LedgerService) Booking(id uint64) (b models.Booking, err error) {
	s.ledger.View(func() { b, err = s.contracts.Marketplace.LookupBooking(id) })
	return b, err
}

func (s *LedgerService) BookingsByUser(user chain.Address) (out []models.Booking) {
	s.ledger.View(func() { out = s.contracts.Marketplace.BookingsByUser(user) })
	return out
}

// MarketplaceAddress is the spender to approve for token bookings.
func (s *LedgerService) MarketplaceAddress() chain.Address {
	return s.contracts.Marketplace.Address()
}

type TokenInfo struct {
	Name        string        `json:"name"`
	Symbol      string        `json:"symbol"`
	Decimals    int           `json:"decimals"`
	TotalSupply uint64        `json:"total_supply"`
	Address     chain.Address `json:"address"`
}

func (s *LedgerService) TokenInfo() TokenInfo {
	info := TokenInfo{
		Name:     contracts.TokenName,
		Symbol:   contracts.TokenSymbol,
		Decimals: contracts.TokenDecimals,
		Address:  s.contracts.Token.Address(),
	}
	s.ledger.View(func() { info.TotalSupply = s.contracts.Token.TotalSupply() })
	return info
}

func (s *LedgerService) TokenBalance(owner chain.Address) (n uint64) {
	s.ledger.View(func() { n = s.contracts.Token.BalanceOf(owner) })
	return n
}

func (s *LedgerService) TokenAllowance(owner, spender chain.Address) (n uint64) {
	s.ledger.View(func() { n = s.contracts.Token.Allowance(owner, spender) })
	return n
}

func (s *LedgerService) NativeBalance(a chain.Address) uint64 {
	return s.ledger.Balance(a)
}

// Receipt looks in memory first. Reverted receipts from earlier runs only
// exist in the journal.
func (s *LedgerService) Receipt(ctx context.Context, hash string) (*chain.Receipt, error) {
	if r, ok := s.ledger.Receipt(hash); ok {
		return r, nil
	}
	r, err := s.txs.GetReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: transaction %s", chain.ErrNotFound, hash)
	}
	return r, nil
}

func (s *LedgerService) Block(number uint64) (*chain.Block, error) {
	b, ok := s.ledger.Block(number)
	if !ok {
		return nil, fmt.Errorf("%w: block %d", chain.ErrNotFound, number)
	}
	return b, nil
}

func (s *LedgerService) Head() (*chain.Block, error) {
	b := s.ledger.Head()
	if b == nil {
		return nil, fmt.Errorf("%w: no blocks sealed yet", chain.ErrNotFound)
	}
	return b, nil
}

func (s *LedgerService) Events(ctx context.Context, f EventFilter) ([]chain.Event, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return s.events.ListEvents(ctx, f)
}

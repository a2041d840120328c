package contracts

import (
	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/models"
)

const (
	TokenName     = "Rentocoin"
	TokenSymbol   = "RTC"
	TokenDecimals = 9
)

// Rentocoin is a fixed-supply fungible token. The whole supply is minted to
// the deployer at construction.
type Rentocoin struct {
	addr        chain.Address
	totalSupply uint64
	balances    map[chain.Address]uint64
	allowances  map[chain.Address]map[chain.Address]uint64
}

func NewRentocoin(deployer chain.Address, initialSupply uint64) *Rentocoin {
	r := &Rentocoin{
		addr:        chain.ContractAddress(models.ContractRentocoin),
		totalSupply: initialSupply,
		balances:    make(map[chain.Address]uint64),
		allowances:  make(map[chain.Address]map[chain.Address]uint64),
	}
	if initialSupply > 0 {
		r.balances[deployer] = initialSupply
	}
	return r
}

func (r *Rentocoin) Address() chain.Address { return r.addr }

func (r *Rentocoin) TotalSupply() uint64 { return r.totalSupply }

func (r *Rentocoin) BalanceOf(owner chain.Address) uint64 { return r.balances[owner] }

func (r *Rentocoin) Allowance(owner, spender chain.Address) uint64 {
	return r.allowances[owner][spender]
}

// Holders returns a copy of all non-zero balances.
func (r *Rentocoin) Holders() map[chain.Address]uint64 {
	out := make(map[chain.Address]uint64, len(r.balances))
	for a, b := range r.balances {
		if b > 0 {
			out[a] = b
		}
	}
	return out
}

func (r *Rentocoin) Transfer(tx *chain.Tx, to chain.Address, amount uint64) error {
	if err := tx.RequireNoValue(); err != nil {
		return err
	}
	return r.move(tx, tx.Caller(), to, amount)
}

func (r *Rentocoin) Approve(tx *chain.Tx, spender chain.Address, amount uint64) error {
	if err := tx.RequireNoValue(); err != nil {
		return err
	}
	if spender.IsZero() {
		return chain.Revert(chain.ErrInvalidInput, "approve to the zero address")
	}
	owner := tx.Caller()
	r.setAllowance(tx, owner, spender, amount)
	tx.Emit(models.ContractRentocoin, models.EventApproval, map[string]any{
		"owner":   owner.String(),
		"spender": spender.String(),
		"value":   amount,
	})
	return nil
}

// TransferFrom moves amount from owner to `to` on the allowance granted to spender.
// Other contracts call it with their own address as spender.
func (r *Rentocoin) TransferFrom(tx *chain.Tx, spender, owner, to chain.Address, amount uint64) error {
	allowed := r.allowances[owner][spender]
	if allowed < amount {
		return chain.Revertf(chain.ErrInsufficientFunds, "insufficient allowance: %d < %d", allowed, amount)
	}
	if err := r.move(tx, owner, to, amount); err != nil {
		return err
	}
	r.setAllowance(tx, owner, spender, allowed-amount)
	return nil
}

func (r *Rentocoin) move(tx *chain.Tx, from, to chain.Address, amount uint64) error {
	if to.IsZero() {
		return chain.Revert(chain.ErrInvalidInput, "transfer to the zero address")
	}
	fromBal := r.balances[from]
	if fromBal < amount {
		return chain.Revertf(chain.ErrInsufficientFunds, "transfer amount exceeds balance: %d < %d", fromBal, amount)
	}

	if from != to {
		// sum(balances) == totalSupply, so the credit cannot overflow
		r.setBalance(tx, from, fromBal-amount)
		r.setBalance(tx, to, r.balances[to]+amount)
	}

	tx.Emit(models.ContractRentocoin, models.EventTransfer, map[string]any{
		"from":  from.String(),
		"to":    to.String(),
		"value": amount,
	})
	return nil
}

func (r *Rentocoin) setBalance(tx *chain.Tx, a chain.Address, v uint64) {
	prev, had := r.balances[a]
	r.balances[a] = v
	tx.OnRevert(func() {
		if had {
			r.balances[a] = prev
		} else {
			delete(r.balances, a)
		}
	})
}

func (r *Rentocoin) setAllowance(tx *chain.Tx, owner, spender chain.Address, v uint64) {
	m, ok := r.allowances[owner]
	if !ok {
		m = make(map[chain.Address]uint64)
		r.allowances[owner] = m
	}
	prev, had := m[spender]
	m[spender] = v
	tx.OnRevert(func() {
		if had {
			m[spender] = prev
		} else {
			delete(m, spender)
		}
	})
}

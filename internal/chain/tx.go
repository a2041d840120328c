package chain

import "math"

// Tx is the execution context handed to a contract method. All state changes
// made through it, or registered with OnRevert, are undone if the call fails.
type Tx struct {
	call   Call
	hash   string
	self   Address
	ledger *Ledger
	events []Event
	undo   []func()
}

func (tx *Tx) Caller() Address { return tx.call.Caller }

func (tx *Tx) Value() uint64 { return tx.call.Value }

// Self is the account of the called contract. Attached value lands here.
func (tx *Tx) Self() Address { return tx.self }

func (tx *Tx) Hash() string { return tx.hash }

// OnRevert registers an undo step. Steps run in reverse order.
func (tx *Tx) OnRevert(fn func()) {
	tx.undo = append(tx.undo, fn)
}

func (tx *Tx) Emit(contract, name string, fields map[string]any) {
	tx.events = append(tx.events, Event{
		TxHash:   tx.hash,
		Seq:      tx.call.Seq,
		Index:    len(tx.events),
		Contract: contract,
		Name:     name,
		Fields:   fields,
	})
}

// RequireNoValue rejects native value sent to a non-payable method.
func (tx *Tx) RequireNoValue() error {
	if tx.call.Value != 0 {
		return Revert(ErrInvalidInput, "method does not accept native value")
	}
	return nil
}

// Send forwards native value from the called contract's account.
func (tx *Tx) Send(to Address, amount uint64) error {
	if to.IsZero() {
		return Revert(ErrInvalidInput, "send to the zero address")
	}
	return tx.ledger.move(tx, tx.self, to, amount)
}

// Credit mints native balance for an external deposit. Only system calls may
// credit, and each ref is applied once.
func (tx *Tx) Credit(ref string, to Address, amount uint64) error {
	if tx.call.Contract != SystemContract || !tx.call.Caller.IsZero() {
		return Revert(ErrUnauthorized, "credit is a system operation")
	}
	if ref == "" {
		return Revert(ErrInvalidInput, "credit ref is required")
	}
	if to.IsZero() {
		return Revert(ErrInvalidInput, "credit to the zero address")
	}

	l := tx.ledger
	if _, done := l.credited[ref]; done {
		return Revertf(ErrInvalidTransition, "deposit %s already credited", ref)
	}

	bal := l.balances[to]
	if amount > math.MaxUint64-bal {
		return Revert(ErrInvalidInput, "balance overflow")
	}
	l.setBalance(tx, to, bal+amount)

	l.credited[ref] = struct{}{}
	tx.OnRevert(func() { delete(l.credited, ref) })

	tx.Emit(SystemContract, "Credited", map[string]any{
		"ref":    ref,
		"to":     to.String(),
		"amount": amount,
	})
	return nil
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.events = nil
}

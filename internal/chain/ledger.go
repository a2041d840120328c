package chain

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// CommitHook persists a receipt before the ledger releases its lock. An error
// on a successful call rolls the call back.
type CommitHook func(ctx context.Context, r *Receipt) error

// SealHook persists a block before its receipts are marked as included.
type SealHook func(ctx context.Context, b *Block) error

// MethodFunc is the body of a transaction. Returning an error reverts it.
type MethodFunc func(tx *Tx) (any, error)

var genesisParent = strings.Repeat("0", 64)

type Block struct {
	Number     uint64    `json:"number"`
	Hash       string    `json:"hash"`
	ParentHash string    `json:"parent_hash"`
	TxHashes   []string  `json:"tx_hashes"`
	SealedAt   time.Time `json:"sealed_at"`
}

func blockHash(number uint64, parent string, txs []string) string {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], number)
	h.Write(buf[:])
	h.Write([]byte(parent))
	for _, t := range txs {
		h.Write([]byte(t))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Ledger runs calls one at a time. It owns native balances, receipts and blocks.
// Contract state lives in the contracts themselves and is guarded by the same lock.
type Ledger struct {
	mu       sync.RWMutex
	balances map[Address]uint64
	credited map[string]struct{}
	nextSeq  uint64
	receipts map[string]*Receipt
	pending  []string
	blocks   []*Block

	onCommit CommitHook
	onSeal   SealHook
	now      func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[Address]uint64),
		credited: make(map[string]struct{}),
		nextSeq:  1,
		receipts: make(map[string]*Receipt),
		now:      time.Now,
	}
}

func (l *Ledger) SetCommitHook(h CommitHook) { l.onCommit = h }

func (l *Ledger) SetSealHook(h SealHook) { l.onSeal = h }

// Execute assigns the next sequence number to call and runs fn atomically.
// A reverted call still yields a receipt; the returned error is its RevertError.
// If the commit hook fails, no receipt is kept and the sequence number is reused.
func (l *Ledger) Execute(ctx context.Context, call Call, fn MethodFunc) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	call.Seq = l.nextSeq
	tx, result, runErr := l.run(call, fn)

	r := &Receipt{
		TxHash:     tx.hash,
		Call:       call,
		Status:     StatusSuccess,
		Result:     result,
		Events:     tx.events,
		ExecutedAt: l.now(),
	}
	if runErr != nil {
		r.Status = StatusReverted
		r.Error = runErr.Error()
		r.Result = nil
		r.Events = nil
	}
	if r.Events == nil {
		r.Events = []Event{}
	}

	// receipt без записи в журнал не сохраняется ни в каком статусе
	if l.onCommit != nil {
		if err := l.onCommit(ctx, r); err != nil {
			if runErr != nil {
				return nil, fmt.Errorf("commit reverted %s (%s): %w", r.TxHash, r.Error, err)
			}
			tx.rollback()
			return nil, fmt.Errorf("commit %s: %w", r.TxHash, err)
		}
	}

	l.nextSeq++
	l.receipts[r.TxHash] = r
	if r.Succeeded() {
		l.pending = append(l.pending, r.TxHash)
	}
	out := *r
	return &out, runErr
}

// Replay re-applies a journaled call with its original sequence number. Hooks
// are not invoked. A revert here means the journal and the code disagree.
func (l *Ledger) Replay(entry JournalEntry, fn MethodFunc) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	call := entry.Call
	if call.Seq < l.nextSeq {
		return nil, fmt.Errorf("replay out of order: seq %d, next %d", call.Seq, l.nextSeq)
	}

	tx, result, err := l.run(call, fn)
	if err != nil {
		return nil, fmt.Errorf("replay seq %d (%s.%s): %w", call.Seq, call.Contract, call.Method, err)
	}

	r := &Receipt{
		TxHash:      tx.hash,
		Call:        call,
		Status:      StatusSuccess,
		Result:      result,
		Events:      tx.events,
		BlockNumber: entry.BlockNumber,
		ExecutedAt:  l.now(),
	}
	if r.Events == nil {
		r.Events = []Event{}
	}

	l.nextSeq = call.Seq + 1
	l.receipts[r.TxHash] = r
	if entry.BlockNumber == nil {
		l.pending = append(l.pending, r.TxHash)
	}
	out := *r
	return &out, nil
}

func (l *Ledger) run(call Call, fn MethodFunc) (*Tx, any, error) {
	tx := &Tx{
		call:   call,
		hash:   call.Hash(),
		self:   ContractAddress(call.Contract),
		ledger: l,
	}

	if call.Value > 0 {
		if err := l.move(tx, call.Caller, tx.self, call.Value); err != nil {
			tx.rollback()
			return tx, nil, err
		}
	}

	result, err := fn(tx)
	if err != nil {
		tx.rollback()
		if !IsRevert(err) {
			err = &RevertError{Reason: err.Error(), Err: err}
		}
		return tx, nil, err
	}
	return tx, result, nil
}

func (l *Ledger) move(tx *Tx, from, to Address, amount uint64) error {
	fromBal := l.balances[from]
	if fromBal < amount {
		return Revertf(ErrInsufficientFunds, "native balance %d is below %d", fromBal, amount)
	}
	if from == to || amount == 0 {
		return nil
	}
	toBal := l.balances[to]
	if amount > math.MaxUint64-toBal {
		return Revert(ErrInvalidInput, "balance overflow")
	}
	l.setBalance(tx, from, fromBal-amount)
	l.setBalance(tx, to, toBal+amount)
	return nil
}

func (l *Ledger) setBalance(tx *Tx, a Address, v uint64) {
	prev, had := l.balances[a]
	l.balances[a] = v
	tx.OnRevert(func() {
		if had {
			l.balances[a] = prev
		} else {
			delete(l.balances, a)
		}
	})
}

// SealBlock packs pending receipts into the next block. It returns nil when
// nothing is pending.
func (l *Ledger) SealBlock(ctx context.Context) (*Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return nil, nil
	}

	parent := genesisParent
	var number uint64 = 1
	if n := len(l.blocks); n > 0 {
		parent = l.blocks[n-1].Hash
		number = l.blocks[n-1].Number + 1
	}

	txs := append([]string(nil), l.pending...)
	b := &Block{
		Number:     number,
		Hash:       blockHash(number, parent, txs),
		ParentHash: parent,
		TxHashes:   txs,
		SealedAt:   l.now(),
	}

	if l.onSeal != nil {
		if err := l.onSeal(ctx, b); err != nil {
			return nil, fmt.Errorf("seal block %d: %w", number, err)
		}
	}

	for _, h := range txs {
		if r, ok := l.receipts[h]; ok {
			n := number
			r.BlockNumber = &n
		}
	}
	l.blocks = append(l.blocks, b)
	l.pending = nil
	return b, nil
}

// RestoreBlocks installs previously sealed block headers after a replay.
func (l *Ledger) RestoreBlocks(blocks []*Block) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocks = append([]*Block(nil), blocks...)
}

// Allocate sets a genesis balance. It must run before any call.
func (l *Ledger) Allocate(to Address, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] = amount
}

// View runs fn under the read lock. fn must not call other locking Ledger methods.
func (l *Ledger) View(fn func()) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn()
}

func (l *Ledger) Balance(a Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[a]
}

func (l *Ledger) Credited(ref string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.credited[ref]
	return ok
}

func (l *Ledger) Receipt(hash string) (*Receipt, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.receipts[hash]
	if !ok {
		return nil, false
	}
	out := *r
	return &out, true
}

func (l *Ledger) Block(number uint64) (*Block, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if number == 0 || number > uint64(len(l.blocks)) {
		return nil, false
	}
	return l.blocks[number-1], true
}

// Head returns the latest sealed block, or nil before the first seal.
func (l *Ledger) Head() *Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.blocks) == 0 {
		return nil
	}
	return l.blocks[len(l.blocks)-1]
}

func (l *Ledger) PendingCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pending)
}

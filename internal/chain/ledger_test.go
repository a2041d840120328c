package chain

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddr(name string) Address {
	return sha256.Sum256([]byte(name))
}

func noop(tx *Tx) (any, error) { return nil, nil }

func TestExecute_AssignsSequenceAndHash(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	caller := testAddr("alice")

	r1, err := l.Execute(ctx, Call{Caller: caller, Contract: "C", Method: "m"}, noop)
	require.NoError(t, err)
	r2, err := l.Execute(ctx, Call{Caller: caller, Contract: "C", Method: "m"}, noop)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), r1.Call.Seq)
	assert.Equal(t, uint64(2), r2.Call.Seq)
	assert.NotEqual(t, r1.TxHash, r2.TxHash)
	assert.Equal(t, r1.Call.Hash(), r1.TxHash)
	assert.Nil(t, r1.BlockNumber)
	assert.Equal(t, 2, l.PendingCount())
}

func TestExecute_RevertUndoesState(t *testing.T) {
	l := NewLedger()
	alice, bob := testAddr("alice"), testAddr("bob")
	l.Allocate(alice, 100)

	counter := 0
	r, err := l.Execute(context.Background(), Call{Caller: alice, Contract: "C", Method: "pay", Value: 40}, func(tx *Tx) (any, error) {
		counter++
		tx.OnRevert(func() { counter-- })
		tx.Emit("C", "Paid", nil)
		if err := tx.Send(bob, 40); err != nil {
			return nil, err
		}
		return nil, Revert(ErrUnauthorized, "nope")
	})

	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, StatusReverted, r.Status)
	assert.Equal(t, "nope", r.Error)
	assert.Empty(t, r.Events)
	assert.Zero(t, counter)
	assert.Equal(t, uint64(100), l.Balance(alice))
	assert.Zero(t, l.Balance(bob))
	assert.Zero(t, l.Balance(ContractAddress("C")))
	assert.Zero(t, l.PendingCount())

	stored, ok := l.Receipt(r.TxHash)
	require.True(t, ok)
	assert.Equal(t, StatusReverted, stored.Status)
}

func TestExecute_PlainErrorBecomesRevert(t *testing.T) {
	l := NewLedger()
	_, err := l.Execute(context.Background(), Call{Contract: "C", Method: "m"}, func(tx *Tx) (any, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.True(t, IsRevert(err))
}

func TestExecute_ValueBeyondBalance(t *testing.T) {
	l := NewLedger()
	alice := testAddr("alice")
	l.Allocate(alice, 10)

	called := false
	_, err := l.Execute(context.Background(), Call{Caller: alice, Contract: "C", Value: 11}, func(tx *Tx) (any, error) {
		called = true
		return nil, nil
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.False(t, called)
	assert.Equal(t, uint64(10), l.Balance(alice))
}

func TestExecute_CommitHookFailureRollsBack(t *testing.T) {
	l := NewLedger()
	alice := testAddr("alice")
	l.Allocate(alice, 50)
	l.SetCommitHook(func(ctx context.Context, r *Receipt) error {
		return errors.New("db down")
	})

	r, err := l.Execute(context.Background(), Call{Caller: alice, Contract: "C", Value: 50}, noop)
	require.Error(t, err)
	assert.Nil(t, r)
	assert.False(t, IsRevert(err))
	assert.Equal(t, uint64(50), l.Balance(alice))
	assert.Zero(t, l.PendingCount())

	// the sequence number is not consumed
	l.SetCommitHook(nil)
	r, err = l.Execute(context.Background(), Call{Caller: alice, Contract: "C"}, noop)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Call.Seq)
}

func TestExecute_CommitHookFailureOnRevert(t *testing.T) {
	l := NewLedger()
	hookErr := errors.New("db down")
	l.SetCommitHook(func(ctx context.Context, r *Receipt) error { return hookErr })

	r, err := l.Execute(context.Background(), Call{Contract: "C", Method: "m"}, func(tx *Tx) (any, error) {
		return nil, Revert(ErrUnauthorized, "nope")
	})
	require.ErrorIs(t, err, hookErr)
	assert.Nil(t, r)
	assert.False(t, IsRevert(err))
	assert.Contains(t, err.Error(), "nope")

	l.SetCommitHook(nil)
	r, err = l.Execute(context.Background(), Call{Contract: "C", Method: "m"}, noop)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Call.Seq)
}

func TestSealBlock(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	b, err := l.SealBlock(ctx)
	require.NoError(t, err)
	assert.Nil(t, b)

	r1, _ := l.Execute(ctx, Call{Contract: "C", Method: "a"}, noop)
	r2, _ := l.Execute(ctx, Call{Contract: "C", Method: "b"}, noop)
	_, _ = l.Execute(ctx, Call{Contract: "C", Method: "c"}, func(tx *Tx) (any, error) {
		return nil, Revert(ErrInvalidInput, "bad")
	})

	var sealed *Block
	l.SetSealHook(func(ctx context.Context, b *Block) error {
		sealed = b
		return nil
	})
	b1, err := l.SealBlock(ctx)
	require.NoError(t, err)
	require.NotNil(t, b1)
	assert.Same(t, b1, sealed)
	assert.Equal(t, uint64(1), b1.Number)
	assert.Equal(t, genesisParent, b1.ParentHash)
	assert.Equal(t, []string{r1.TxHash, r2.TxHash}, b1.TxHashes)

	got, ok := l.Receipt(r1.TxHash)
	require.True(t, ok)
	require.NotNil(t, got.BlockNumber)
	assert.Equal(t, uint64(1), *got.BlockNumber)
	assert.Nil(t, r1.BlockNumber, "receipts returned earlier are copies")

	_, _ = l.Execute(ctx, Call{Contract: "C", Method: "d"}, noop)
	b2, err := l.SealBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), b2.Number)
	assert.Equal(t, b1.Hash, b2.ParentHash)
	assert.Same(t, b2, l.Head())
}

func TestSealBlock_HookFailureKeepsPending(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	_, _ = l.Execute(ctx, Call{Contract: "C"}, noop)

	l.SetSealHook(func(ctx context.Context, b *Block) error { return errors.New("db down") })
	_, err := l.SealBlock(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, l.PendingCount())
	assert.Nil(t, l.Head())
}

func TestReplay_RebuildsState(t *testing.T) {
	ctx := context.Background()
	alice, bob := testAddr("alice"), testAddr("bob")
	pay := func(tx *Tx) (any, error) { return nil, tx.Send(bob, tx.Value()) }

	src := NewLedger()
	src.Allocate(alice, 100)
	var journal []JournalEntry
	src.SetCommitHook(func(ctx context.Context, r *Receipt) error {
		if r.Succeeded() {
			journal = append(journal, JournalEntry{Call: r.Call})
		}
		return nil
	})
	orig, err := src.Execute(ctx, Call{Caller: alice, Contract: "C", Value: 30}, pay)
	require.NoError(t, err)
	_, err = src.Execute(ctx, Call{Caller: alice, Contract: "C", Value: 500}, pay)
	require.Error(t, err)
	_, err = src.Execute(ctx, Call{Caller: alice, Contract: "C", Value: 20}, pay)
	require.NoError(t, err)
	require.Len(t, journal, 2)

	one := uint64(1)
	journal[0].BlockNumber = &one

	dst := NewLedger()
	dst.Allocate(alice, 100)
	for _, e := range journal {
		_, err := dst.Replay(e, pay)
		require.NoError(t, err)
	}

	assert.Equal(t, uint64(50), dst.Balance(alice))
	assert.Equal(t, uint64(50), dst.Balance(bob))
	assert.Equal(t, 1, dst.PendingCount())

	got, ok := dst.Receipt(orig.TxHash)
	require.True(t, ok)
	assert.Equal(t, uint64(1), *got.BlockNumber)

	r, err := dst.Execute(ctx, Call{Caller: alice, Contract: "C"}, noop)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), r.Call.Seq)

	_, err = dst.Replay(journal[0], pay)
	assert.Error(t, err)
}

func TestCredit(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	bob := testAddr("bob")

	credit := func(caller Address, contract, ref string) error {
		_, err := l.Execute(ctx, Call{Caller: caller, Contract: contract, Method: "credit"}, func(tx *Tx) (any, error) {
			return nil, tx.Credit(ref, bob, 25)
		})
		return err
	}

	require.ErrorIs(t, credit(testAddr("mallory"), SystemContract, "dep-1"), ErrUnauthorized)
	require.ErrorIs(t, credit(Address{}, "Rentocoin", "dep-1"), ErrUnauthorized)
	require.ErrorIs(t, credit(Address{}, SystemContract, ""), ErrInvalidInput)

	require.NoError(t, credit(Address{}, SystemContract, "dep-1"))
	assert.True(t, l.Credited("dep-1"))
	assert.Equal(t, uint64(25), l.Balance(bob))

	require.ErrorIs(t, credit(Address{}, SystemContract, "dep-1"), ErrInvalidTransition)
	assert.Equal(t, uint64(25), l.Balance(bob))
}

func TestView(t *testing.T) {
	l := NewLedger()
	alice := testAddr("alice")
	l.Allocate(alice, 7)

	var seen uint64
	l.View(func() { seen = l.balances[alice] })
	assert.Equal(t, uint64(7), seen)
}

package ton

import (
	"crypto/sha256"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/events"
	"github.com/tor-rent/backend/internal/services"
)

func TestDepositEvent(t *testing.T) {
	acct := chain.Address(sha256.Sum256([]byte("tenant")))
	tr := Transfer{
		LT:         42,
		Hash:       []byte{0xab, 0xcd},
		From:       "EQsender",
		AmountNano: big.NewInt(2_500_000_123),
		Comment:    " acct:" + acct.String() + " ",
	}

	e, err := DepositEvent(tr, "acct:", 1000)
	require.NoError(t, err)
	assert.Equal(t, events.EventDeposit, e.Type)
	assert.Equal(t, "ton:42:abcd", e.Payload["ref"])
	assert.Equal(t, "2500000", e.Payload["amount"])

	// событие читается тем же парсером, что и в ledger
	d, err := services.ParseDeposit(e)
	require.NoError(t, err)
	assert.Equal(t, acct, d.Account)
	assert.Equal(t, uint64(2_500_000), d.Amount)
	assert.Equal(t, "ton:42:abcd", d.Ref)
}

func TestDepositEventRejects(t *testing.T) {
	acct := chain.Address(sha256.Sum256([]byte("tenant")))
	huge, _ := new(big.Int).SetString("100000000000000000000000", 10)

	tests := []struct {
		name    string
		comment string
		amount  *big.Int
		perUnit uint64
		noMemo  bool
	}{
		{"no memo", "", big.NewInt(10), 1, true},
		{"other prefix", "order:" + acct.String(), big.NewInt(10), 1, true},
		{"bad address", "acct:nope", big.NewInt(10), 1, false},
		{"dust", "acct:" + acct.Raw(), big.NewInt(999), 1000, false},
		{"overflow", "acct:" + acct.Raw(), huge, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DepositEvent(Transfer{LT: 1, Comment: tt.comment, AmountNano: tt.amount}, "acct:", tt.perUnit)
			require.Error(t, err)
			assert.Equal(t, tt.noMemo, errors.Is(err, ErrNoMemo))
		})
	}
}

func TestExtractComment(t *testing.T) {
	long := "acct:" + chain.Address(sha256.Sum256([]byte("x"))).String() + " and a note that does not fit one cell of 127 bytes, so it spills into a ref"
	body := cell.BeginCell().MustStoreUInt(0, 32).MustStoreStringSnake(long).EndCell()

	msg := &tlb.InternalMessage{
		SrcAddr: address.MustParseRawAddr("0:" + "11" + "00000000000000000000000000000000000000000000000000000000000000"),
		Amount:  tlb.MustFromTON("1.5"),
		Body:    body,
	}
	assert.Equal(t, long, extractComment(msg))

	msg.Body = cell.BeginCell().MustStoreUInt(0x0f8a7ea5, 32).EndCell() // jetton transfer
	assert.Empty(t, extractComment(msg))

	msg.Body = nil
	assert.Empty(t, extractComment(msg))
}

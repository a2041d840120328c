package ton

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/events"
)

// ErrNoMemo: перевод без комментария "<prefix><address>". Такие переводы
// не зачисляются.
var ErrNoMemo = errors.New("transfer has no account memo")

// DepositEvent переводит входящий перевод в событие зачисления.
// Сумма в ledger = nano / nanoPerUnit, остаток от деления не зачисляется.
func DepositEvent(t Transfer, memoPrefix string, nanoPerUnit uint64) (events.Event, error) {
	memo, ok := strings.CutPrefix(strings.TrimSpace(t.Comment), memoPrefix)
	if !ok || memo == "" {
		return events.Event{}, ErrNoMemo
	}
	account, err := chain.ParseAddress(memo)
	if err != nil {
		return events.Event{}, fmt.Errorf("memo %q: %w", t.Comment, err)
	}
	if nanoPerUnit == 0 {
		return events.Event{}, fmt.Errorf("nano per unit must be positive")
	}

	units := new(big.Int).Quo(t.AmountNano, new(big.Int).SetUint64(nanoPerUnit))
	if units.Sign() <= 0 {
		return events.Event{}, fmt.Errorf("amount %s nano is below one unit", t.AmountNano)
	}
	if !units.IsUint64() {
		return events.Event{}, fmt.Errorf("amount %s nano overflows the ledger", t.AmountNano)
	}

	return events.Event{
		Type: events.EventDeposit,
		Payload: map[string]any{
			"ref":     t.Ref(),
			"account": account.String(),
			"amount":  units.String(),
			"from":    t.From,
		},
	}, nil
}

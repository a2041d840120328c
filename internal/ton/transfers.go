package ton

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	liteapi "github.com/xssnick/tonutils-go/ton"
	"go.uber.org/zap"
)

const txBatchSize = 100

// Transfer: входящий перевод на горячий кошелёк.
type Transfer struct {
	LT         uint64
	Hash       []byte
	From       string
	AmountNano *big.Int
	Comment    string
}

// Ref уникален для транзакции в сети TON.
func (t Transfer) Ref() string {
	return fmt.Sprintf("ton:%d:%s", t.LT, hex.EncodeToString(t.Hash))
}

// IncomingTransfer отбирает входящие внутренние переводы с ненулевой суммой.
// Bounce и внешние сообщения пропускаются.
func IncomingTransfer(tx *tlb.Transaction) (Transfer, bool) {
	if tx.IO.In == nil {
		return Transfer{}, false
	}
	inMsg, ok := tx.IO.In.Msg.(*tlb.InternalMessage)
	if !ok || inMsg == nil || inMsg.Bounced {
		return Transfer{}, false
	}
	if inMsg.Amount.Nano().Sign() <= 0 {
		return Transfer{}, false
	}
	return Transfer{
		LT:         tx.LT,
		Hash:       tx.Hash,
		From:       inMsg.SrcAddr.String(),
		AmountNano: inMsg.Amount.Nano(),
		Comment:    extractComment(inMsg),
	}, true
}

// extractComment parses a text comment from an InternalMessage body.
// TON text comments have opcode 0x00000000 followed by snake-encoded UTF-8 text.
func extractComment(inMsg *tlb.InternalMessage) string {
	if inMsg.Body == nil {
		return ""
	}

	slice := inMsg.Body.BeginParse()
	if slice.BitsLeft() < 32 {
		return ""
	}
	op, err := slice.LoadUInt(32)
	if err != nil || op != 0 {
		return ""
	}

	text, err := slice.LoadStringSnake()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// Connect establishes a connection to the TON network.
// If host + key are set, connects to a specific lite server.
// Otherwise, auto-discovers lite servers from the global config of the network.
func Connect(ctx context.Context, network, host string, port int, key string, log *zap.Logger) (liteapi.APIClientWrapped, error) {
	client := liteclient.NewConnectionPool()

	if host != "" && key != "" {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Info("connecting to lite server", zap.String("addr", addr))
		if err := client.AddConnection(ctx, addr, key); err != nil {
			return nil, fmt.Errorf("connect to lite server %s: %w", addr, err)
		}
	} else {
		configURL := "https://ton.org/testnet-global.config.json"
		if strings.EqualFold(network, "mainnet") {
			configURL = "https://ton.org/global.config.json"
		}
		log.Info("connecting via global config", zap.String("url", configURL), zap.String("network", network))
		if err := client.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
			return nil, fmt.Errorf("connect via config %s: %w", configURL, err)
		}
	}

	proofPolicy := liteapi.ProofCheckPolicyFast
	if strings.EqualFold(network, "mainnet") {
		proofPolicy = liteapi.ProofCheckPolicySecure
	}
	return liteapi.NewAPIClient(client, proofPolicy).WithRetry(), nil
}

// Watcher следит за входящими транзакциями кошелька. Курсор (lt, hash)
// хранится в Redis и сдвигается только после обработки всей пачки.
type Watcher struct {
	api    liteapi.APIClientWrapped
	wallet *address.Address
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

func NewWatcher(api liteapi.APIClientWrapped, wallet *address.Address, rdb *redis.Client, log *zap.Logger) *Watcher {
	return &Watcher{api: api, wallet: wallet, rdb: rdb, prefix: "deposit-indexer:cursor:", log: log}
}

func (w *Watcher) cursorKey(part string) string { return w.prefix + part }

// Init ставит курсор на текущее состояние кошелька при первом запуске,
// чтобы история до старта не зачислялась.
func (w *Watcher) Init(ctx context.Context) error {
	existing, err := w.rdb.Get(ctx, w.cursorKey("lt")).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("load cursor: %w", err)
	}
	if existing != "" {
		w.log.Info("resuming from saved cursor", zap.String("lt", existing))
		return nil
	}

	account, err := w.account(ctx)
	if err != nil {
		return err
	}
	if account == nil || !account.IsActive || account.LastTxLT == 0 {
		w.log.Info("hot wallet not active yet, starting from LT=0")
		return w.saveCursor(ctx, 0, nil)
	}

	w.log.Info("cursor initialized at current account state",
		zap.Uint64("lt", account.LastTxLT),
		zap.String("hash", hex.EncodeToString(account.LastTxHash)),
	)
	return w.saveCursor(ctx, account.LastTxLT, account.LastTxHash)
}

func (w *Watcher) account(ctx context.Context) (*tlb.Account, error) {
	block, err := w.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("get master block: %w", err)
	}
	account, err := w.api.GetAccount(ctx, block, w.wallet)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (w *Watcher) loadCursorLT(ctx context.Context) (uint64, error) {
	val, err := w.rdb.Get(ctx, w.cursorKey("lt")).Result()
	if err == redis.Nil || val == "" {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	return strconv.ParseUint(val, 10, 64)
}

func (w *Watcher) saveCursor(ctx context.Context, lt uint64, hash []byte) error {
	_, err := w.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, w.cursorKey("lt"), strconv.FormatUint(lt, 10), 0)
		p.Set(ctx, w.cursorKey("hash"), hex.EncodeToString(hash), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

// Poll передаёт handle все новые входящие переводы по возрастанию LT.
// Ошибка handle оставляет курсор на месте, пачка будет прочитана снова.
func (w *Watcher) Poll(ctx context.Context, handle func(context.Context, Transfer) error) (int, error) {
	cursorLT, err := w.loadCursorLT(ctx)
	if err != nil {
		return 0, err
	}

	account, err := w.account(ctx)
	if err != nil {
		return 0, err
	}
	if account == nil || !account.IsActive || account.LastTxLT <= cursorLT {
		return 0, nil
	}

	txs, err := w.fetchSince(ctx, account, cursorLT)
	if err != nil {
		return 0, fmt.Errorf("fetch transactions: %w", err)
	}

	n := 0
	for _, tx := range txs {
		t, ok := IncomingTransfer(tx)
		if !ok {
			continue
		}
		if err := handle(ctx, t); err != nil {
			return n, fmt.Errorf("handle lt %d: %w", t.LT, err)
		}
		n++
	}

	return n, w.saveCursor(ctx, account.LastTxLT, account.LastTxHash)
}

// fetchSince retrieves all transactions with LT > cursorLT.
// ListTransactions returns a page oldest-first; pages are walked backwards
// until the cursor is reached, then sorted chronologically.
func (w *Watcher) fetchSince(ctx context.Context, account *tlb.Account, cursorLT uint64) ([]*tlb.Transaction, error) {
	var all []*tlb.Transaction

	lt := account.LastTxLT
	hash := account.LastTxHash

	for {
		txs, err := w.api.ListTransactions(ctx, w.wallet, uint32(txBatchSize), lt, hash)
		if err != nil {
			return nil, fmt.Errorf("list transactions (lt=%d): %w", lt, err)
		}
		if len(txs) == 0 {
			break
		}

		reachedCursor := false
		for _, tx := range txs {
			if tx.LT <= cursorLT {
				reachedCursor = true
				continue
			}
			all = append(all, tx)
		}

		if reachedCursor || len(txs) < txBatchSize {
			break
		}

		oldest := txs[0]
		if oldest.PrevTxLT == 0 {
			break
		}
		lt = oldest.PrevTxLT
		hash = oldest.PrevTxHash
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].LT < all[j].LT
	})
	return all, nil
}

package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"time"
)

// SystemContract is the pseudo-contract for ledger-level calls such as deposit credits.
const SystemContract = "System"

const (
	StatusSuccess  = "success"
	StatusReverted = "reverted"
)

// Call is a request to run one contract method as a transaction.
type Call struct {
	Seq      uint64          `json:"seq"`
	Caller   Address         `json:"caller"`
	Contract string          `json:"contract"`
	Method   string          `json:"method"`
	Value    uint64          `json:"value"`
	Args     json.RawMessage `json:"args,omitempty"`
}

// Hash is the transaction identifier. It covers every field, Seq included.
func (c Call) Hash() string {
	h := sha256.New()
	var buf [8]byte

	binary.BigEndian.PutUint64(buf[:], c.Seq)
	h.Write(buf[:])
	h.Write(c.Caller[:])
	h.Write([]byte(c.Contract))
	h.Write([]byte{0})
	h.Write([]byte(c.Method))
	h.Write([]byte{0})
	binary.BigEndian.PutUint64(buf[:], c.Value)
	h.Write(buf[:])
	h.Write(c.Args)

	return hex.EncodeToString(h.Sum(nil))
}

type Event struct {
	TxHash   string         `json:"tx_hash"`
	Seq      uint64         `json:"seq"`
	Index    int            `json:"index"`
	Contract string         `json:"contract"`
	Name     string         `json:"name"`
	Fields   map[string]any `json:"fields"`
}

type Receipt struct {
	TxHash      string    `json:"tx_hash"`
	Call        Call      `json:"call"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Result      any       `json:"result,omitempty"`
	Events      []Event   `json:"events"`
	BlockNumber *uint64   `json:"block_number,omitempty"`
	ExecutedAt  time.Time `json:"executed_at"`
}

func (r *Receipt) Succeeded() bool { return r.Status == StatusSuccess }

// JournalEntry is a committed call as read back from storage.
type JournalEntry struct {
	Call        Call
	BlockNumber *uint64
}

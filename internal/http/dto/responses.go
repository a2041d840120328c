package dto

import (
	"time"

	"github.com/tor-rent/backend/internal/chain"
)

type ChallengeResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"` // hex sha256, это и подписывается
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthResponse struct {
	Token   string        `json:"token"`
	Address chain.Address `json:"address"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
	TxHash    string `json:"tx_hash,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type TxResponse struct {
	TxHash      string  `json:"tx_hash"`
	Status      string  `json:"status"`
	BlockNumber *uint64 `json:"block_number"`
	Result      any     `json:"result,omitempty"`
}

func NewTxResponse(r *chain.Receipt) TxResponse {
	return TxResponse{
		TxHash:      r.TxHash,
		Status:      r.Status,
		BlockNumber: r.BlockNumber,
		Result:      r.Result,
	}
}

type AccountResponse struct {
	Address       chain.Address `json:"address"`
	NativeBalance uint64        `json:"native_balance"`
	TokenBalance  uint64        `json:"token_balance"`
}

type BalanceResponse struct {
	Address chain.Address `json:"address"`
	Balance uint64        `json:"balance"`
}

type AllowanceResponse struct {
	Owner     chain.Address `json:"owner"`
	Spender   chain.Address `json:"spender"`
	Allowance uint64        `json:"allowance"`
}

type HealthResponse struct {
	Status  string   `json:"status"`
	Height  uint64   `json:"height"`
	Pending int      `json:"pending"`
	Methods []string `json:"methods"`
}

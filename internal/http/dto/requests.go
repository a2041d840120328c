package dto

import (
	"encoding/json"

	"github.com/tor-rent/backend/internal/chain"
)

type LoginRequest struct {
	PublicKey string `json:"public_key"` // hex ed25519
	Signature string `json:"signature"`  // hex
	Nonce     string `json:"nonce"`
}

type AddPropertyRequest struct {
	Description string `json:"description"`
	PricePerDay uint64 `json:"price_per_day"`
}

type UpdatePropertyRequest struct {
	Description string `json:"description"`
	PricePerDay uint64 `json:"price_per_day"`
	IsAvailable bool   `json:"is_available"`
}

type CreateAgreementRequest struct {
	Tenant          chain.Address `json:"tenant"`
	RentalAmount    uint64        `json:"rental_amount"`
	Deposit         uint64        `json:"deposit"`
	DurationSeconds uint64        `json:"duration_seconds"`
	Conditions      string        `json:"conditions"`
}

type AddServiceRequest struct {
	Name  string `json:"name"`
	Price uint64 `json:"price"`
}

type UpdateServiceRequest struct {
	Name  string `json:"name"`
	Price uint64 `json:"price"`
}

// BookServiceRequest: Value: нативная оплата в наноединицах, при оплате RTC должна быть 0.
type BookServiceRequest struct {
	PayWithRentocoin bool   `json:"pay_with_rentocoin"`
	Value            uint64 `json:"value"`
}

type TransferRequest struct {
	To     chain.Address `json:"to"`
	Amount uint64        `json:"amount"`
}

type ApproveRequest struct {
	Spender chain.Address `json:"spender"`
	Amount  uint64        `json:"amount"`
}

type TransferFromRequest struct {
	Owner  chain.Address `json:"owner"`
	To     chain.Address `json:"to"`
	Amount uint64        `json:"amount"`
}

// SubmitTxRequest: произвольный вызов "<Contract>.<method>".
type SubmitTxRequest struct {
	Contract string          `json:"contract"`
	Method   string          `json:"method"`
	Value    uint64          `json:"value"`
	Args     json.RawMessage `json:"args"`
}

package models

import "github.com/tor-rent/backend/internal/chain"

type Property struct {
	ID          uint64        `json:"id"`
	Owner       chain.Address `json:"owner"`
	Description string        `json:"description"`
	PricePerDay uint64        `json:"price_per_day"`
	IsAvailable bool          `json:"is_available"`
}

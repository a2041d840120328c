package models

import "github.com/tor-rent/backend/internal/chain"

type Service struct {
	ID       uint64        `json:"id"`
	Name     string        `json:"name"`
	Provider chain.Address `json:"provider"`
	Price    uint64        `json:"price"`
	Active   bool          `json:"active"`
}

type Booking struct {
	ID                uint64        `json:"id"`
	User              chain.Address `json:"user"`
	ServiceID         uint64        `json:"service_id"`
	AmountPaid        uint64        `json:"amount_paid"`
	PaidWithRentocoin bool          `json:"paid_with_rentocoin"`
	Completed         bool          `json:"completed"`
}

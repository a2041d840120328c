package models

import (
	"fmt"

	"github.com/tor-rent/backend/internal/chain"
)

type AgreementStatus uint8

// Agreement statuses. The zero value is Pending, so a never-created agreement
// reads as a zero record in Pending.
const (
	AgreementStatusPending AgreementStatus = iota
	AgreementStatusActive
	AgreementStatusTerminated
)

var agreementStatusNames = map[AgreementStatus]string{
	AgreementStatusPending:    "pending",
	AgreementStatusActive:     "active",
	AgreementStatusTerminated: "terminated",
}

func (s AgreementStatus) String() string {
	if name, ok := agreementStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s AgreementStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *AgreementStatus) UnmarshalText(b []byte) error {
	for k, v := range agreementStatusNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown agreement status %q", string(b))
}

// Valid state transitions: from -> []to
var ValidAgreementTransitions = map[AgreementStatus][]AgreementStatus{
	AgreementStatusPending:    {AgreementStatusActive},
	AgreementStatusActive:     {AgreementStatusTerminated},
	AgreementStatusTerminated: {},
}

func IsValidAgreementTransition(from, to AgreementStatus) bool {
	allowed, ok := ValidAgreementTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

type Agreement struct {
	ID           uint64          `json:"id"`
	Tenant       chain.Address   `json:"tenant"`
	Landlord     chain.Address   `json:"landlord"`
	RentalAmount uint64          `json:"rental_amount"`
	Deposit      uint64          `json:"deposit"`
	Duration     uint64          `json:"duration_seconds"`
	Conditions   string          `json:"conditions"`
	Status       AgreementStatus `json:"status"`
}

// IsParty reports whether addr is the landlord or the tenant.
func (a Agreement) IsParty(addr chain.Address) bool {
	return !addr.IsZero() && (a.Landlord == addr || a.Tenant == addr)
}

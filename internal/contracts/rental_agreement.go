package contracts

import (
	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/models"
)

// RentalAgreement records agreement terms and their lifecycle. It never holds funds.
type RentalAgreement struct {
	agreements []models.Agreement
}

func NewRentalAgreement() *RentalAgreement {
	return &RentalAgreement{}
}

type AgreementTerms struct {
	Tenant       chain.Address
	RentalAmount uint64
	Deposit      uint64
	Duration     uint64
	Conditions   string
}

func (r *RentalAgreement) CreateAgreement(tx *chain.Tx, t AgreementTerms) (uint64, error) {
	if err := tx.RequireNoValue(); err != nil {
		return 0, err
	}
	if t.Tenant.IsZero() {
		return 0, chain.Revert(chain.ErrInvalidInput, "Invalid tenant address")
	}
	if t.RentalAmount == 0 || t.Deposit == 0 || t.Duration == 0 {
		return 0, chain.Revert(chain.ErrInvalidInput, "Invalid agreement terms")
	}

	id := uint64(len(r.agreements)) + 1
	landlord := tx.Caller()
	r.agreements = append(r.agreements, models.Agreement{
		ID:           id,
		Tenant:       t.Tenant,
		Landlord:     landlord,
		RentalAmount: t.RentalAmount,
		Deposit:      t.Deposit,
		Duration:     t.Duration,
		Conditions:   t.Conditions,
		Status:       models.AgreementStatusPending,
	})
	n := len(r.agreements) - 1
	tx.OnRevert(func() { r.agreements = r.agreements[:n] })

	tx.Emit(models.ContractRentalAgreement, models.EventAgreementCreated, map[string]any{
		"id":       id,
		"tenant":   t.Tenant.String(),
		"landlord": landlord.String(),
	})
	return id, nil
}

func (r *RentalAgreement) ActivateAgreement(tx *chain.Tx, id uint64) error {
	if err := tx.RequireNoValue(); err != nil {
		return err
	}
	a, err := r.lookup(id)
	if err != nil {
		return err
	}
	if a.Landlord != tx.Caller() {
		return chain.Revert(chain.ErrUnauthorized, "only the landlord can activate the agreement")
	}
	if err := r.transition(tx, a, models.AgreementStatusActive); err != nil {
		return err
	}

	tx.Emit(models.ContractRentalAgreement, models.EventAgreementActivated, map[string]any{
		"id":       id,
		"landlord": a.Landlord.String(),
		"tenant":   a.Tenant.String(),
	})
	return nil
}

func (r *RentalAgreement) TerminateAgreement(tx *chain.Tx, id uint64) error {
	if err := tx.RequireNoValue(); err != nil {
		return err
	}
	a, err := r.lookup(id)
	if err != nil {
		return err
	}
	if !a.IsParty(tx.Caller()) {
		return chain.Revert(chain.ErrUnauthorized, "only the landlord or tenant can terminate the agreement")
	}
	if err := r.transition(tx, a, models.AgreementStatusTerminated); err != nil {
		return err
	}

	tx.Emit(models.ContractRentalAgreement, models.EventAgreementTerminated, map[string]any{
		"id":       id,
		"landlord": a.Landlord.String(),
		"tenant":   a.Tenant.String(),
	})
	return nil
}

func (r *RentalAgreement) transition(tx *chain.Tx, a *models.Agreement, to models.AgreementStatus) error {
	from := a.Status
	if !models.IsValidAgreementTransition(from, to) {
		return chain.Revertf(chain.ErrInvalidTransition, "agreement %d: cannot move from %s to %s", a.ID, from, to)
	}
	a.Status = to
	tx.OnRevert(func() { a.Status = from })
	return nil
}

func (r *RentalAgreement) lookup(id uint64) (*models.Agreement, error) {
	if id == 0 || id > uint64(len(r.agreements)) {
		return nil, chain.Revertf(chain.ErrNotFound, "agreement %d not found", id)
	}
	return &r.agreements[id-1], nil
}

// GetAgreement returns the zero record for unknown ids.
func (r *RentalAgreement) GetAgreement(id uint64) models.Agreement {
	a, err := r.lookup(id)
	if err != nil {
		return models.Agreement{}
	}
	return *a
}

func (r *RentalAgreement) LookupAgreement(id uint64) (models.Agreement, error) {
	a, err := r.lookup(id)
	if err != nil {
		return models.Agreement{}, err
	}
	return *a, nil
}

func (r *RentalAgreement) AgreementCount() uint64 {
	return uint64(len(r.agreements))
}

func (r *RentalAgreement) AgreementsByParty(party chain.Address) []models.Agreement {
	var out []models.Agreement
	for _, a := range r.agreements {
		if a.IsParty(party) {
			out = append(out, a)
		}
	}
	return out
}

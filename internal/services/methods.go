package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/contracts"
	"github.com/tor-rent/backend/internal/htmltext"
	"github.com/tor-rent/backend/internal/models"
)

// Max lengths after markup is stripped.
const (
	maxDescriptionLen = 2000
	maxNameLen        = 200
	maxConditionsLen  = 4000
)

// binder decodes call arguments and normalizes them unless they come from
// the journal, which already holds the canonical form. It returns the
// canonical encoding and the method body bound to the arguments.
type binder func(raw json.RawMessage, journaled bool) (json.RawMessage, chain.MethodFunc, error)

type normalizer interface {
	normalize()
}

func bind[A any](fn func(tx *chain.Tx, a A) (any, error)) binder {
	return func(raw json.RawMessage, journaled bool) (json.RawMessage, chain.MethodFunc, error) {
		var a A
		if err := decodeArgs(raw, &a); err != nil {
			return nil, nil, err
		}
		if n, ok := any(&a).(normalizer); ok && !journaled {
			n.normalize()
		}
		canon, err := json.Marshal(a)
		if err != nil {
			return nil, nil, fmt.Errorf("encode args: %w", err)
		}
		return canon, func(tx *chain.Tx) (any, error) { return fn(tx, a) }, nil
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: bad arguments: %v", chain.ErrInvalidInput, err)
	}
	return nil
}

func methodKey(contract, method string) string {
	return contract + "." + method
}

// --- arguments ---

type TransferArgs struct {
	To     chain.Address `json:"to"`
	Amount uint64        `json:"amount"`
}

type ApproveArgs struct {
	Spender chain.Address `json:"spender"`
	Amount  uint64        `json:"amount"`
}

type TransferFromArgs struct {
	Owner  chain.Address `json:"owner"`
	To     chain.Address `json:"to"`
	Amount uint64        `json:"amount"`
}

type AddPropertyArgs struct {
	Description string `json:"description"`
	PricePerDay uint64 `json:"price_per_day"`
}

func (a *AddPropertyArgs) normalize() {
	a.Description = htmltext.Snippet(a.Description, maxDescriptionLen)
}

type UpdatePropertyArgs struct {
	ID          uint64 `json:"id"`
	Description string `json:"description"`
	PricePerDay uint64 `json:"price_per_day"`
	IsAvailable bool   `json:"is_available"`
}

func (a *UpdatePropertyArgs) normalize() {
	a.Description = htmltext.Snippet(a.Description, maxDescriptionLen)
}

type IDArgs struct {
	ID uint64 `json:"id"`
}

type CreateAgreementArgs struct {
	Tenant       chain.Address `json:"tenant"`
	RentalAmount uint64        `json:"rental_amount"`
	Deposit      uint64        `json:"deposit"`
	Duration     uint64        `json:"duration_seconds"`
	Conditions   string        `json:"conditions"`
}

func (a *CreateAgreementArgs) normalize() {
	a.Conditions = htmltext.Snippet(a.Conditions, maxConditionsLen)
}

type AddServiceArgs struct {
	Name  string `json:"name"`
	Price uint64 `json:"price"`
}

func (a *AddServiceArgs) normalize() {
	a.Name = htmltext.Snippet(a.Name, maxNameLen)
}

type UpdateServiceArgs struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Price uint64 `json:"price"`
}

func (a *UpdateServiceArgs) normalize() {
	a.Name = htmltext.Snippet(a.Name, maxNameLen)
}

type BookServiceArgs struct {
	ServiceID        uint64 `json:"service_id"`
	PayWithRentocoin bool   `json:"pay_with_rentocoin"`
}

type CreditArgs struct {
	Ref    string        `json:"ref"`
	To     chain.Address `json:"to"`
	Amount uint64        `json:"amount"`
}

func okResult(err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return true, nil
}

func idResult(v uint64, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// methodTable wires every callable contract method.
func methodTable(c *contracts.Suite) map[string]binder {
	return map[string]binder{
		methodKey(models.ContractRentocoin, "transfer"): bind(func(tx *chain.Tx, a TransferArgs) (any, error) {
			return okResult(c.Token.Transfer(tx, a.To, a.Amount))
		}),
		methodKey(models.ContractRentocoin, "approve"): bind(func(tx *chain.Tx, a ApproveArgs) (any, error) {
			return okResult(c.Token.Approve(tx, a.Spender, a.Amount))
		}),
		methodKey(models.ContractRentocoin, "transferFrom"): bind(func(tx *chain.Tx, a TransferFromArgs) (any, error) {
			if err := tx.RequireNoValue(); err != nil {
				return nil, err
			}
			return okResult(c.Token.TransferFrom(tx, tx.Caller(), a.Owner, a.To, a.Amount))
		}),

		methodKey(models.ContractPropertyListing, "addProperty"): bind(func(tx *chain.Tx, a AddPropertyArgs) (any, error) {
			return idResult(c.Listing.AddProperty(tx, a.Description, a.PricePerDay))
		}),
		methodKey(models.ContractPropertyListing, "updateProperty"): bind(func(tx *chain.Tx, a UpdatePropertyArgs) (any, error) {
			return okResult(c.Listing.UpdateProperty(tx, a.ID, a.Description, a.PricePerDay, a.IsAvailable))
		}),
		methodKey(models.ContractPropertyListing, "deleteProperty"): bind(func(tx *chain.Tx, a IDArgs) (any, error) {
			return okResult(c.Listing.DeleteProperty(tx, a.ID))
		}),

		methodKey(models.ContractRentalAgreement, "createAgreement"): bind(func(tx *chain.Tx, a CreateAgreementArgs) (any, error) {
			return idResult(c.Agreements.CreateAgreement(tx, contracts.AgreementTerms{
				Tenant:       a.Tenant,
				RentalAmount: a.RentalAmount,
				Deposit:      a.Deposit,
				Duration:     a.Duration,
				Conditions:   a.Conditions,
			}))
		}),
		methodKey(models.ContractRentalAgreement, "activateAgreement"): bind(func(tx *chain.Tx, a IDArgs) (any, error) {
			return okResult(c.Agreements.ActivateAgreement(tx, a.ID))
		}),
		methodKey(models.ContractRentalAgreement, "terminateAgreement"): bind(func(tx *chain.Tx, a IDArgs) (any, error) {
			return okResult(c.Agreements.TerminateAgreement(tx, a.ID))
		}),

		methodKey(models.ContractServiceMarketplace, "addService"): bind(func(tx *chain.Tx, a AddServiceArgs) (any, error) {
			return idResult(c.Marketplace.AddService(tx, a.Name, a.Price))
		}),
		methodKey(models.ContractServiceMarketplace, "updateService"): bind(func(tx *chain.Tx, a UpdateServiceArgs) (any, error) {
			return okResult(c.Marketplace.UpdateService(tx, a.ID, a.Name, a.Price))
		}),
		methodKey(models.ContractServiceMarketplace, "deactivateService"): bind(func(tx *chain.Tx, a IDArgs) (any, error) {
			return okResult(c.Marketplace.DeactivateService(tx, a.ID))
		}),
		methodKey(models.ContractServiceMarketplace, "bookService"): bind(func(tx *chain.Tx, a BookServiceArgs) (any, error) {
			return idResult(c.Marketplace.BookService(tx, a.ServiceID, a.PayWithRentocoin))
		}),
		methodKey(models.ContractServiceMarketplace, "completeBooking"): bind(func(tx *chain.Tx, a IDArgs) (any, error) {
			return okResult(c.Marketplace.CompleteBooking(tx, a.ID))
		}),

		methodKey(chain.SystemContract, "credit"): bind(func(tx *chain.Tx, a CreditArgs) (any, error) {
			return okResult(tx.Credit(a.Ref, a.To, a.Amount))
		}),
	}
}

// Methods lists the callable "<Contract>.<method>" keys.
func (s *LedgerService) Methods() []string {
	out := make([]string, 0, len(s.methods))
	for k := range s.methods {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

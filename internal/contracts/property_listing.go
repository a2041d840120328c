package contracts

import (
	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/models"
)

// propertySlot keeps ids stable after deletion. A deleted slot is a tombstone.
type propertySlot struct {
	rec     models.Property
	deleted bool
}

// PropertyListing is an owner-partitioned registry of rental listings. Ids
// start at 1 and are never reused.
type PropertyListing struct {
	slots []propertySlot
}

func NewPropertyListing() *PropertyListing {
	return &PropertyListing{}
}

func (p *PropertyListing) AddProperty(tx *chain.Tx, description string, pricePerDay uint64) (uint64, error) {
	if err := tx.RequireNoValue(); err != nil {
		return 0, err
	}
	if description == "" {
		return 0, chain.Revert(chain.ErrInvalidInput, "description is required")
	}

	id := uint64(len(p.slots)) + 1
	owner := tx.Caller()
	p.slots = append(p.slots, propertySlot{rec: models.Property{
		ID:          id,
		Owner:       owner,
		Description: description,
		PricePerDay: pricePerDay,
		IsAvailable: true,
	}})
	n := len(p.slots) - 1
	tx.OnRevert(func() { p.slots = p.slots[:n] })

	tx.Emit(models.ContractPropertyListing, models.EventPropertyAdded, map[string]any{
		"id":    id,
		"owner": owner.String(),
	})
	return id, nil
}

func (p *PropertyListing) UpdateProperty(tx *chain.Tx, id uint64, description string, pricePerDay uint64, isAvailable bool) error {
	if err := tx.RequireNoValue(); err != nil {
		return err
	}
	slot, err := p.ownedSlot(tx, id)
	if err != nil {
		return err
	}
	if description == "" {
		return chain.Revert(chain.ErrInvalidInput, "description is required")
	}

	prev := slot.rec
	slot.rec.Description = description
	slot.rec.PricePerDay = pricePerDay
	slot.rec.IsAvailable = isAvailable
	tx.OnRevert(func() { slot.rec = prev })

	tx.Emit(models.ContractPropertyListing, models.EventPropertyUpdated, map[string]any{
		"id":           id,
		"owner":        prev.Owner.String(),
		"is_available": isAvailable,
	})
	return nil
}

// DeleteProperty tombstones the record. Reads of the id return a zero record afterwards.
func (p *PropertyListing) DeleteProperty(tx *chain.Tx, id uint64) error {
	if err := tx.RequireNoValue(); err != nil {
		return err
	}
	slot, err := p.ownedSlot(tx, id)
	if err != nil {
		return err
	}

	slot.deleted = true
	tx.OnRevert(func() { slot.deleted = false })

	tx.Emit(models.ContractPropertyListing, models.EventPropertyDeleted, map[string]any{
		"id":    id,
		"owner": slot.rec.Owner.String(),
	})
	return nil
}

func (p *PropertyListing) ownedSlot(tx *chain.Tx, id uint64) (*propertySlot, error) {
	slot, ok := p.liveSlot(id)
	if !ok {
		return nil, chain.Revertf(chain.ErrNotFound, "property %d not found", id)
	}
	if slot.rec.Owner != tx.Caller() {
		return nil, chain.Revert(chain.ErrUnauthorized, "only the owner can modify this property")
	}
	return slot, nil
}

func (p *PropertyListing) liveSlot(id uint64) (*propertySlot, bool) {
	if id == 0 || id > uint64(len(p.slots)) {
		return nil, false
	}
	slot := &p.slots[id-1]
	if slot.deleted {
		return nil, false
	}
	return slot, true
}

// GetProperty returns the zero record for unknown or deleted ids.
func (p *PropertyListing) GetProperty(id uint64) models.Property {
	if slot, ok := p.liveSlot(id); ok {
		return slot.rec
	}
	return models.Property{}
}

func (p *PropertyListing) LookupProperty(id uint64) (models.Property, error) {
	slot, ok := p.liveSlot(id)
	if !ok {
		return models.Property{}, chain.Revertf(chain.ErrNotFound, "property %d not found", id)
	}
	return slot.rec, nil
}

// PropertyCount is the number of ids ever assigned, deleted ones included.
func (p *PropertyListing) PropertyCount() uint64 {
	return uint64(len(p.slots))
}

func (p *PropertyListing) PropertiesByOwner(owner chain.Address) []models.Property {
	var out []models.Property
	for _, s := range p.slots {
		if !s.deleted && s.rec.Owner == owner {
			out = append(out, s.rec)
		}
	}
	return out
}

// Properties lists live records, optionally only the available ones.
func (p *PropertyListing) Properties(availableOnly bool) []models.Property {
	out := make([]models.Property, 0, len(p.slots))
	for _, s := range p.slots {
		if s.deleted || (availableOnly && !s.rec.IsAvailable) {
			continue
		}
		out = append(out, s.rec)
	}
	return out
}

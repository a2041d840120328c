package contracts

import (
	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/models"
)

// ServiceMarketplace lists fixed-price services and books them. Payment is
// forwarded to the provider inside the booking call, either in native value
// or in Rentocoin pulled through an allowance.
type ServiceMarketplace struct {
	addr     chain.Address
	token    *Rentocoin
	services []models.Service
	bookings []models.Booking
}

func NewServiceMarketplace(token *Rentocoin) *ServiceMarketplace {
	return &ServiceMarketplace{
		addr:  chain.ContractAddress(models.ContractServiceMarketplace),
		token: token,
	}
}

// Address is the spender users approve on Rentocoin before token bookings.
func (m *ServiceMarketplace) Address() chain.Address { return m.addr }

func (m *ServiceMarketplace) AddService(tx *chain.Tx, name string, price uint64) (uint64, error) {
	if err := tx.RequireNoValue(); err != nil {
		return 0, err
	}
	if name == "" {
		return 0, chain.Revert(chain.ErrInvalidInput, "service name is required")
	}

	id := uint64(len(m.services)) + 1
	provider := tx.Caller()
	m.services = append(m.services, models.Service{
		ID:       id,
		Name:     name,
		Provider: provider,
		Price:    price,
		Active:   true,
	})
	n := len(m.services) - 1
	tx.OnRevert(func() { m.services = m.services[:n] })

	tx.Emit(models.ContractServiceMarketplace, models.EventServiceAdded, map[string]any{
		"id":       id,
		"provider": provider.String(),
		"price":    price,
	})
	return id, nil
}

func (m *ServiceMarketplace) UpdateService(tx *chain.Tx, id uint64, name string, price uint64) error {
	if err := tx.RequireNoValue(); err != nil {
		return err
	}
	s, err := m.ownedService(tx, id)
	if err != nil {
		return err
	}
	if name == "" {
		return chain.Revert(chain.ErrInvalidInput, "service name is required")
	}

	prev := *s
	s.Name = name
	s.Price = price
	tx.OnRevert(func() { *s = prev })

	tx.Emit(models.ContractServiceMarketplace, models.EventServiceUpdated, map[string]any{
		"id":       id,
		"provider": s.Provider.String(),
		"price":    price,
	})
	return nil
}

func (m *ServiceMarketplace) DeactivateService(tx *chain.Tx, id uint64) error {
	if err := tx.RequireNoValue(); err != nil {
		return err
	}
	s, err := m.ownedService(tx, id)
	if err != nil {
		return err
	}
	if !s.Active {
		return chain.Revertf(chain.ErrInvalidTransition, "service %d is already inactive", id)
	}

	s.Active = false
	tx.OnRevert(func() { s.Active = true })

	tx.Emit(models.ContractServiceMarketplace, models.EventServiceDeactivated, map[string]any{
		"id":       id,
		"provider": s.Provider.String(),
	})
	return nil
}

// BookService books an active service. With payWithRentocoin the caller must
// have approved the marketplace for at least the price and attach no value.
// Otherwise the attached value must equal the price exactly.
func (m *ServiceMarketplace) BookService(tx *chain.Tx, serviceID uint64, payWithRentocoin bool) (uint64, error) {
	s, err := m.lookupService(serviceID)
	if err != nil {
		return 0, err
	}
	if !s.Active {
		return 0, chain.Revertf(chain.ErrInvalidInput, "service %d is not active", serviceID)
	}

	user := tx.Caller()
	if payWithRentocoin {
		if err := tx.RequireNoValue(); err != nil {
			return 0, err
		}
		if err := m.token.TransferFrom(tx, m.addr, user, s.Provider, s.Price); err != nil {
			return 0, err
		}
	} else {
		switch v := tx.Value(); {
		case v < s.Price:
			return 0, chain.Revertf(chain.ErrInsufficientFunds, "insufficient payment: sent %d, price %d", v, s.Price)
		case v > s.Price:
			return 0, chain.Revertf(chain.ErrInvalidInput, "payment must equal the price: sent %d, price %d", v, s.Price)
		}
		if err := tx.Send(s.Provider, s.Price); err != nil {
			return 0, err
		}
	}

	id := uint64(len(m.bookings)) + 1
	m.bookings = append(m.bookings, models.Booking{
		ID:                id,
		User:              user,
		ServiceID:         serviceID,
		AmountPaid:        s.Price,
		PaidWithRentocoin: payWithRentocoin,
	})
	n := len(m.bookings) - 1
	tx.OnRevert(func() { m.bookings = m.bookings[:n] })

	tx.Emit(models.ContractServiceMarketplace, models.EventServiceBooked, map[string]any{
		"id":                  id,
		"service_id":          serviceID,
		"user":                user.String(),
		"provider":            s.Provider.String(),
		"amount":              s.Price,
		"paid_with_rentocoin": payWithRentocoin,
	})
	return id, nil
}

func (m *ServiceMarketplace) CompleteBooking(tx *chain.Tx, bookingID uint64) error {
	if err := tx.RequireNoValue(); err != nil {
		return err
	}
	b, err := m.lookupBooking(bookingID)
	if err != nil {
		return err
	}
	s, err := m.lookupService(b.ServiceID)
	if err != nil {
		return err
	}
	if s.Provider != tx.Caller() {
		return chain.Revert(chain.ErrUnauthorized, "only the provider can complete the booking")
	}
	if b.Completed {
		return chain.Revertf(chain.ErrInvalidTransition, "booking %d is already completed", bookingID)
	}

	b.Completed = true
	tx.OnRevert(func() { b.Completed = false })

	tx.Emit(models.ContractServiceMarketplace, models.EventBookingCompleted, map[string]any{
		"id":         bookingID,
		"service_id": b.ServiceID,
		"provider":   s.Provider.String(),
	})
	return nil
}

func (m *ServiceMarketplace) ownedService(tx *chain.Tx, id uint64) (*models.Service, error) {
	s, err := m.lookupService(id)
	if err != nil {
		return nil, err
	}
	if s.Provider != tx.Caller() {
		return nil, chain.Revert(chain.ErrUnauthorized, "only the provider can modify this service")
	}
	return s, nil
}

func (m *ServiceMarketplace) lookupService(id uint64) (*models.Service, error) {
	if id == 0 || id > uint64(len(m.services)) {
		return nil, chain.Revertf(chain.ErrNotFound, "service %d not found", id)
	}
	return &m.services[id-1], nil
}

func (m *ServiceMarketplace) lookupBooking(id uint64) (*models.Booking, error) {
	if id == 0 || id > uint64(len(m.bookings)) {
		return nil, chain.Revertf(chain.ErrNotFound, "booking %d not found", id)
	}
	return &m.bookings[id-1], nil
}

func (m *ServiceMarketplace) GetService(id uint64) models.Service {
	if s, err := m.lookupService(id); err == nil {
		return *s
	}
	return models.Service{}
}

func (m *ServiceMarketplace) GetBooking(id uint64) models.Booking {
	if b, err := m.lookupBooking(id); err == nil {
		return *b
	}
	return models.Booking{}
}

func (m *ServiceMarketplace) LookupService(id uint64) (models.Service, error) {
	s, err := m.lookupService(id)
	if err != nil {
		return models.Service{}, err
	}
	return *s, nil
}

func (m *ServiceMarketplace) LookupBooking(id uint64) (models.Booking, error) {
	b, err := m.lookupBooking(id)
	if err != nil {
		return models.Booking{}, err
	}
	return *b, nil
}

func (m *ServiceMarketplace) ServiceCount() uint64 { return uint64(len(m.services)) }

func (m *ServiceMarketplace) BookingCount() uint64 { return uint64(len(m.bookings)) }

// Services lists services, optionally only the active ones.
func (m *ServiceMarketplace) Services(activeOnly bool) []models.Service {
	out := make([]models.Service, 0, len(m.services))
	for _, s := range m.services {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (m *ServiceMarketplace) BookingsByUser(user chain.Address) []models.Booking {
	var out []models.Booking
	for _, b := range m.bookings {
		if b.User == user {
			out = append(out, b)
		}
	}
	return out
}

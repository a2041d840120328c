package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/http/dto"
	"github.com/tor-rent/backend/internal/models"
	"github.com/tor-rent/backend/internal/services"
)

type MarketplaceHandler struct {
	svc *services.LedgerService
	log *zap.Logger
}

func NewMarketplaceHandler(svc *services.LedgerService, log *zap.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{svc: svc, log: log}
}

func (h *MarketplaceHandler) ListServices(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"items":       nonNil(h.svc.Services(c.QueryBool("active", false))),
		"marketplace": h.svc.MarketplaceAddress(),
	}})
}

func (h *MarketplaceHandler) GetService(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid service id")
	}
	s, err := h.svc.Service(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: s})
}

func (h *MarketplaceHandler) AddService(c *fiber.Ctx) error {
	var req dto.AddServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	return submit(c, h.svc, h.log, fiber.StatusCreated, models.ContractServiceMarketplace, "addService", 0, services.AddServiceArgs{
		Name:  req.Name,
		Price: req.Price,
	})
}

func (h *MarketplaceHandler) UpdateService(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid service id")
	}
	var req dto.UpdateServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	return submit(c, h.svc, h.log, fiber.StatusOK, models.ContractServiceMarketplace, "updateService", 0, services.UpdateServiceArgs{
		ID:    id,
		Name:  req.Name,
		Price: req.Price,
	})
}

func (h *MarketplaceHandler) DeactivateService(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid service id")
	}
	return submit(c, h.svc, h.log, fiber.StatusOK, models.ContractServiceMarketplace, "deactivateService", 0, services.IDArgs{ID: id})
}

// BookService: нативная оплата идёт через value, RTC списывается по allowance
// в пользу маркетплейса.
func (h *MarketplaceHandler) BookService(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid service id")
	}
	var req dto.BookServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	return submit(c, h.svc, h.log, fiber.StatusCreated, models.ContractServiceMarketplace, "bookService", req.Value, services.BookServiceArgs{
		ServiceID:        id,
		PayWithRentocoin: req.PayWithRentocoin,
	})
}

func (h *MarketplaceHandler) GetBooking(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid booking id")
	}
	b, err := h.svc.Booking(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: b})
}

func (h *MarketplaceHandler) ListBookings(c *fiber.Ctx) error {
	user, ok := queryAddress(c, "user")
	if !ok || user.IsZero() {
		return fail(c, fiber.StatusBadRequest, "user address is required")
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: nonNil(h.svc.BookingsByUser(user))})
}

func (h *MarketplaceHandler) CompleteBooking(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid booking id")
	}
	return submit(c, h.svc, h.log, fiber.StatusOK, models.ContractServiceMarketplace, "completeBooking", 0, services.IDArgs{ID: id})
}

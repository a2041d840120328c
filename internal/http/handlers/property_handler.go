package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/http/dto"
	"github.com/tor-rent/backend/internal/models"
	"github.com/tor-rent/backend/internal/services"
)

type PropertyHandler struct {
	svc *services.LedgerService
	log *zap.Logger
}

func NewPropertyHandler(svc *services.LedgerService, log *zap.Logger) *PropertyHandler {
	return &PropertyHandler{svc: svc, log: log}
}

func (h *PropertyHandler) ListProperties(c *fiber.Ctx) error {
	owner, ok := queryAddress(c, "owner")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid owner address")
	}
	props := h.svc.Properties(owner, c.QueryBool("available", false))
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"items": nonNil(props),
		"count": h.svc.PropertyCount(),
	}})
}

func (h *PropertyHandler) GetProperty(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid property id")
	}
	p, err := h.svc.Property(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: p})
}

func (h *PropertyHandler) AddProperty(c *fiber.Ctx) error {
	var req dto.AddPropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	return submit(c, h.svc, h.log, fiber.StatusCreated, models.ContractPropertyListing, "addProperty", 0, services.AddPropertyArgs{
		Description: req.Description,
		PricePerDay: req.PricePerDay,
	})
}

func (h *PropertyHandler) UpdateProperty(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid property id")
	}
	var req dto.UpdatePropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	return submit(c, h.svc, h.log, fiber.StatusOK, models.ContractPropertyListing, "updateProperty", 0, services.UpdatePropertyArgs{
		ID:          id,
		Description: req.Description,
		PricePerDay: req.PricePerDay,
		IsAvailable: req.IsAvailable,
	})
}

func (h *PropertyHandler) DeleteProperty(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid property id")
	}
	return submit(c, h.svc, h.log, fiber.StatusOK, models.ContractPropertyListing, "deleteProperty", 0, services.IDArgs{ID: id})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/http/dto"
	"github.com/tor-rent/backend/internal/models"
	"github.com/tor-rent/backend/internal/services"
)

type AgreementHandler struct {
	svc *services.LedgerService
	log *zap.Logger
}

func NewAgreementHandler(svc *services.LedgerService, log *zap.Logger) *AgreementHandler {
	return &AgreementHandler{svc: svc, log: log}
}

// ListAgreements отдаёт договоры, где party является арендодателем или арендатором.
func (h *AgreementHandler) ListAgreements(c *fiber.Ctx) error {
	party, ok := queryAddress(c, "party")
	if !ok || party.IsZero() {
		return fail(c, fiber.StatusBadRequest, "party address is required")
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"items": nonNil(h.svc.AgreementsByParty(party)),
		"count": h.svc.AgreementCount(),
	}})
}

func (h *AgreementHandler) GetAgreement(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid agreement id")
	}
	a, err := h.svc.Agreement(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: a})
}

func (h *AgreementHandler) CreateAgreement(c *fiber.Ctx) error {
	var req dto.CreateAgreementRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	return submit(c, h.svc, h.log, fiber.StatusCreated, models.ContractRentalAgreement, "createAgreement", 0, services.CreateAgreementArgs{
		Tenant:       req.Tenant,
		RentalAmount: req.RentalAmount,
		Deposit:      req.Deposit,
		Duration:     req.DurationSeconds,
		Conditions:   req.Conditions,
	})
}

func (h *AgreementHandler) ActivateAgreement(c *fiber.Ctx) error {
	return h.transition(c, "activateAgreement")
}

func (h *AgreementHandler) TerminateAgreement(c *fiber.Ctx) error {
	return h.transition(c, "terminateAgreement")
}

func (h *AgreementHandler) transition(c *fiber.Ctx, method string) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid agreement id")
	}
	return submit(c, h.svc, h.log, fiber.StatusOK, models.ContractRentalAgreement, method, 0, services.IDArgs{ID: id})
}

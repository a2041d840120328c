package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/http/dto"
	"github.com/tor-rent/backend/internal/models"
	"github.com/tor-rent/backend/internal/services"
)

type TokenHandler struct {
	svc *services.LedgerService
	log *zap.Logger
}

func NewTokenHandler(svc *services.LedgerService, log *zap.Logger) *TokenHandler {
	return &TokenHandler{svc: svc, log: log}
}

func (h *TokenHandler) GetToken(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.svc.TokenInfo()})
}

func (h *TokenHandler) GetBalance(c *fiber.Ctx) error {
	addr, ok := paramAddress(c, "address")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid address")
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BalanceResponse{
		Address: addr,
		Balance: h.svc.TokenBalance(addr),
	}})
}

func (h *TokenHandler) GetAllowance(c *fiber.Ctx) error {
	owner, ok := paramAddress(c, "owner")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid owner address")
	}
	spender, ok := paramAddress(c, "spender")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid spender address")
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.AllowanceResponse{
		Owner:     owner,
		Spender:   spender,
		Allowance: h.svc.TokenAllowance(owner, spender),
	}})
}

func (h *TokenHandler) Transfer(c *fiber.Ctx) error {
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	return submit(c, h.svc, h.log, fiber.StatusOK, models.ContractRentocoin, "transfer", 0, services.TransferArgs{
		To:     req.To,
		Amount: req.Amount,
	})
}

func (h *TokenHandler) Approve(c *fiber.Ctx) error {
	var req dto.ApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	return submit(c, h.svc, h.log, fiber.StatusOK, models.ContractRentocoin, "approve", 0, services.ApproveArgs{
		Spender: req.Spender,
		Amount:  req.Amount,
	})
}

func (h *TokenHandler) TransferFrom(c *fiber.Ctx) error {
	var req dto.TransferFromRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	return submit(c, h.svc, h.log, fiber.StatusOK, models.ContractRentocoin, "transferFrom", 0, services.TransferFromArgs{
		Owner:  req.Owner,
		To:     req.To,
		Amount: req.Amount,
	})
}

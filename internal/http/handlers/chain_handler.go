package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/http/dto"
	"github.com/tor-rent/backend/internal/middleware"
	"github.com/tor-rent/backend/internal/services"
)

type ChainHandler struct {
	svc *services.LedgerService
	log *zap.Logger
}

func NewChainHandler(svc *services.LedgerService, log *zap.Logger) *ChainHandler {
	return &ChainHandler{svc: svc, log: log}
}

func (h *ChainHandler) Health(c *fiber.Ctx) error {
	var height uint64
	if head, err := h.svc.Head(); err == nil {
		height = head.Number
	}
	return c.JSON(dto.HealthResponse{
		Status:  "ok",
		Height:  height,
		Pending: h.svc.Ledger().PendingCount(),
		Methods: h.svc.Methods(),
	})
}

func (h *ChainHandler) GetAccount(c *fiber.Ctx) error {
	addr, ok := paramAddress(c, "address")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid address")
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.AccountResponse{
		Address:       addr,
		NativeBalance: h.svc.NativeBalance(addr),
		TokenBalance:  h.svc.TokenBalance(addr),
	}})
}

func (h *ChainHandler) GetTx(c *fiber.Ctx) error {
	hash := c.Params("hash")
	if len(hash) != 64 {
		return fail(c, fiber.StatusBadRequest, "invalid tx hash")
	}
	r, err := h.svc.Receipt(c.UserContext(), hash)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: r})
}

// SubmitTx принимает вызов любого метода из /health methods.
func (h *ChainHandler) SubmitTx(c *fiber.Ctx) error {
	var req dto.SubmitTxRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Contract == "" || req.Method == "" {
		return fail(c, fiber.StatusBadRequest, "contract and method are required")
	}
	if len(req.Args) == 0 {
		req.Args = []byte("{}")
	}

	r, err := h.svc.Submit(c.UserContext(), chain.Call{
		Caller:   middleware.GetAddress(c),
		Contract: req.Contract,
		Method:   req.Method,
		Value:    req.Value,
		Args:     req.Args,
	})
	return respondTx(c, h.log, fiber.StatusOK, r, err)
}

func (h *ChainHandler) GetLatestBlock(c *fiber.Ctx) error {
	b, err := h.svc.Head()
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: b})
}

func (h *ChainHandler) GetBlock(c *fiber.Ctx) error {
	n, err := strconv.ParseUint(c.Params("number"), 10, 64)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid block number")
	}
	b, err := h.svc.Block(n)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: b})
}

// ListEvents: ?contract=&name=&from_seq=&limit=
func (h *ChainHandler) ListEvents(c *fiber.Ctx) error {
	f := services.EventFilter{
		Contract: c.Query("contract"),
		Name:     c.Query("name"),
		Limit:    c.QueryInt("limit", 100),
	}
	if v := c.Query("from_seq"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "invalid from_seq")
		}
		f.FromSeq = n
	}

	evs, err := h.svc.Events(c.UserContext(), f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: nonNil(evs)})
}

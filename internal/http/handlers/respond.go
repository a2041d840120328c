package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/http/dto"
	"github.com/tor-rent/backend/internal/middleware"
	"github.com/tor-rent/backend/internal/services"
)

// errorStatus maps a revert kind to an HTTP status. Anything else is a 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, chain.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, chain.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, chain.ErrInsufficientFunds):
		return fiber.StatusPaymentRequired
	case errors.Is(err, chain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, chain.ErrInvalidInput):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
}

func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return fail(c, status, "internal server error")
	}
	return fail(c, status, err.Error())
}

// respondTx пишет результат транзакции. Откатившийся вызов возвращает
// статус по виду ошибки и tx_hash из квитанции.
func respondTx(c *fiber.Ctx, log *zap.Logger, status int, r *chain.Receipt, err error) error {
	if err != nil {
		if r == nil {
			return respondError(c, log, err)
		}
		return c.Status(errorStatus(err)).JSON(dto.ErrorResponse{
			Error:     r.Error,
			RequestID: middleware.GetRequestID(c),
			TxHash:    r.TxHash,
		})
	}
	return c.Status(status).JSON(dto.SuccessResponse{OK: true, Data: dto.NewTxResponse(r)})
}

// submit отправляет вызов от имени аутентифицированного аккаунта.
func submit(c *fiber.Ctx, svc *services.LedgerService, log *zap.Logger, status int, contract, method string, value uint64, args any) error {
	call, err := services.NewCall(middleware.GetAddress(c), contract, method, value, args)
	if err != nil {
		return respondError(c, log, err)
	}
	r, err := svc.Submit(c.UserContext(), call)
	return respondTx(c, log, status, r, err)
}

func paramID(c *fiber.Ctx) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func paramAddress(c *fiber.Ctx, name string) (chain.Address, bool) {
	a, err := chain.ParseAddress(c.Params(name))
	if err != nil {
		return chain.Address{}, false
	}
	return a, true
}

// queryAddress разбирает необязательный адрес из query string.
func queryAddress(c *fiber.Ctx, name string) (chain.Address, bool) {
	v := c.Query(name)
	if v == "" {
		return chain.Address{}, true
	}
	a, err := chain.ParseAddress(v)
	if err != nil {
		return chain.Address{}, false
	}
	return a, true
}

// nonNil keeps empty lists as [] in JSON.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

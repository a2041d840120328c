package handlers

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/auth"
	"github.com/tor-rent/backend/internal/config"
	"github.com/tor-rent/backend/internal/http/dto"
	"github.com/tor-rent/backend/internal/ton"
)

type AuthHandler struct {
	nonces auth.NonceStore
	cfg    *config.Config
	log    *zap.Logger
}

func NewAuthHandler(nonces auth.NonceStore, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{nonces: nonces, cfg: cfg, log: log}
}

func (h *AuthHandler) Challenge(c *fiber.Ctx) error {
	nonce, err := h.nonces.Issue(c.UserContext())
	if err != nil {
		h.log.Error("failed to issue login challenge", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "internal server error")
	}
	msg := auth.LoginMessage(nonce)
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ChallengeResponse{
		Nonce:     nonce,
		Message:   hex.EncodeToString(msg),
		ExpiresAt: time.Now().Add(h.cfg.LoginChallengeTTL).UTC(),
	}})
}

// Login проверяет подпись nonce ключом ed25519 и выдаёт JWT на адрес этого ключа.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.PublicKey == "" || req.Signature == "" || req.Nonce == "" {
		return fail(c, fiber.StatusBadRequest, "public_key, signature and nonce are required")
	}

	// nonce сгорает до проверки подписи, повтор невозможен даже при ошибке
	if err := h.nonces.Consume(c.UserContext(), req.Nonce); err != nil {
		if errors.Is(err, auth.ErrChallengeNotFound) {
			return fail(c, fiber.StatusUnauthorized, err.Error())
		}
		h.log.Error("failed to consume login challenge", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	addr, err := auth.VerifyLogin(req.PublicKey, req.Signature, req.Nonce)
	if err != nil {
		h.log.Debug("login signature rejected", zap.Error(err))
		return fail(c, fiber.StatusUnauthorized, "invalid signature")
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, addr, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	h.log.Info("account logged in", zap.String("address", addr.String()))
	return c.JSON(dto.AuthResponse{Token: token, Address: addr})
}

// TONProofLogin: вход кошельком через TON Connect. payload в proof должен
// быть nonce из /auth/challenge.
func (h *AuthHandler) TONProofLogin(c *fiber.Ctx) error {
	var req ton.ProofData
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Proof.Payload == "" {
		return fail(c, fiber.StatusBadRequest, "proof payload is required")
	}

	if err := h.nonces.Consume(c.UserContext(), req.Proof.Payload); err != nil {
		if errors.Is(err, auth.ErrChallengeNotFound) {
			return fail(c, fiber.StatusUnauthorized, err.Error())
		}
		h.log.Error("failed to consume login challenge", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	addr, err := ton.VerifyWalletProof(req, req.Proof.Payload, h.cfg.TONProofDomains, time.Now())
	if err != nil {
		h.log.Debug("ton proof rejected", zap.Error(err))
		return fail(c, fiber.StatusUnauthorized, "invalid ton proof")
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, addr, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	h.log.Info("wallet logged in", zap.String("address", addr.String()))
	return c.JSON(dto.AuthResponse{Token: token, Address: addr})
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/multierr"

	"github.com/tor-rent/backend/internal/http/dto"
)

type apiClient struct {
	base  string
	token string
}

func newClient() *apiClient {
	return &apiClient{base: strings.TrimRight(apiURL, "/") + "/api/v1", token: token}
}

// do отправляет запрос и раскладывает ответ в out. Ошибка API возвращается
// вместе с tx_hash, если вызов дошёл до ledger.
func (c *apiClient) do(agent *fiber.Agent, body, out any) error {
	agent.Timeout(timeout)
	if c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if body != nil {
		agent.JSON(body)
	}

	if err := agent.Parse(); err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	code, raw, errs := agent.Bytes()
	if err := multierr.Combine(errs...); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if code >= 400 {
		var e dto.ErrorResponse
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			return fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(raw)))
		}
		if e.TxHash != "" {
			return fmt.Errorf("http %d: %s (tx %s)", code, e.Error, e.TxHash)
		}
		return fmt.Errorf("http %d: %s", code, e.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) get(path string, out any) error {
	return c.do(fiber.Get(c.base+path), nil, out)
}

func (c *apiClient) post(path string, body, out any) error {
	return c.do(fiber.Post(c.base+path), body, out)
}

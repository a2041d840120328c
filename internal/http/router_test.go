package http

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/auth"
	"github.com/tor-rent/backend/internal/chain"
	"github.com/tor-rent/backend/internal/config"
	"github.com/tor-rent/backend/internal/http/handlers"
	"github.com/tor-rent/backend/internal/middleware"
	"github.com/tor-rent/backend/internal/services"
)

// --- fakes ---

type memJournal struct {
	mu       sync.Mutex
	receipts map[string]*chain.Receipt
	blocks   []*chain.Block
}

func (m *memJournal) SaveReceipt(_ context.Context, r *chain.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.receipts[r.TxHash] = &cp
	return nil
}

func (m *memJournal) ListCommitted(context.Context) ([]chain.JournalEntry, error) { return nil, nil }

func (m *memJournal) GetReceipt(_ context.Context, hash string) (*chain.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.receipts[hash], nil
}

func (m *memJournal) SaveBlock(_ context.Context, b *chain.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks = append(m.blocks, b)
	return nil
}

func (m *memJournal) ListBlocks(context.Context) ([]*chain.Block, error) { return nil, nil }

func (m *memJournal) ListEvents(_ context.Context, f services.EventFilter) ([]chain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []chain.Event
	for _, r := range m.receipts {
		for _, e := range r.Events {
			if f.Contract == "" || e.Contract == f.Contract {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

type memNonces struct {
	mu     sync.Mutex
	n      int
	issued map[string]bool
}

func (s *memNonces) Issue(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	nonce := fmt.Sprintf("nonce-%d", s.n)
	s.issued[nonce] = true
	return nonce, nil
}

func (s *memNonces) Consume(_ context.Context, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.issued[nonce] {
		return auth.ErrChallengeNotFound
	}
	delete(s.issued, nonce)
	return nil
}

// --- harness ---

func addr(name string) chain.Address {
	return chain.Address(sha256.Sum256([]byte(name)))
}

var (
	deployer = addr("deployer")
	alice    = addr("alice")
	bob      = addr("bob")
)

type testAPI struct {
	t   *testing.T
	app *fiber.App
	svc *services.LedgerService
	cfg *config.Config
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := zap.NewNop()
	cfg := &config.Config{
		JWTSecret:         "test-secret",
		JWTExpiration:     time.Hour,
		LoginChallengeTTL: time.Minute,
		RateLimitPerMin:   1000,
	}
	journal := &memJournal{receipts: make(map[string]*chain.Receipt)}
	svc := services.NewLedgerService(services.Genesis{
		Deployer:    deployer,
		TokenSupply: 1_000_000,
		Allocations: map[chain.Address]uint64{bob: 10_000},
	}, journal, journal, journal, nil, log)

	app := fiber.New()
	SetupRouter(app, cfg, log, nil,
		middleware.NewSubmitLimiter(1000, 1000),
		handlers.NewAuthHandler(&memNonces{issued: make(map[string]bool)}, cfg, log),
		handlers.NewChainHandler(svc, log),
		handlers.NewPropertyHandler(svc, log),
		handlers.NewAgreementHandler(svc, log),
		handlers.NewMarketplaceHandler(svc, log),
		handlers.NewTokenHandler(svc, log),
		handlers.NewWSHub(nil, log),
	)
	return &testAPI{t: t, app: app, svc: svc, cfg: cfg}
}

func (a *testAPI) token(who chain.Address) string {
	tok, err := auth.GenerateJWT(a.cfg.JWTSecret, who, time.Hour)
	require.NoError(a.t, err)
	return tok
}

// do sends a request and decodes the JSON body into a generic map.
func (a *testAPI) do(method, path string, who *chain.Address, body any) (int, map[string]any) {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		req.Header.Set("Authorization", "Bearer "+a.token(*who))
	}
	resp, err := a.app.Test(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 {
		require.NoError(a.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

// --- tests ---

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	status, body := api.do("GET", "/api/v1/health", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body["methods"], "ServiceMarketplace.bookService")
}

func TestMutationsRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	status, _ := api.do("POST", "/api/v1/properties", nil, map[string]any{"description": "x", "price_per_day": 1})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Zero(t, api.svc.PropertyCount())
}

func TestLoginFlow(t *testing.T) {
	api := newTestAPI(t)
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	status, body := api.do("POST", "/api/v1/auth/challenge", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	nonce := data(t, body)["nonce"].(string)

	login := map[string]any{
		"public_key": hex.EncodeToString(pub),
		"signature":  auth.SignLogin(priv, nonce),
		"nonce":      nonce,
	}
	status, body = api.do("POST", "/api/v1/auth/login", nil, login)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, chain.AddressFromPublicKey(pub).String(), body["address"])

	claims, err := auth.ParseJWT(api.cfg.JWTSecret, body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, chain.AddressFromPublicKey(pub), claims.Address)

	// nonce одноразовый
	status, _ = api.do("POST", "/api/v1/auth/login", nil, login)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	// подпись чужим ключом
	_, body = api.do("POST", "/api/v1/auth/challenge", nil, nil)
	nonce = data(t, body)["nonce"].(string)
	_, otherPriv, _ := ed25519.GenerateKey(nil)
	status, _ = api.do("POST", "/api/v1/auth/login", nil, map[string]any{
		"public_key": hex.EncodeToString(pub),
		"signature":  auth.SignLogin(otherPriv, nonce),
		"nonce":      nonce,
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestPropertyLifecycle(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do("POST", "/api/v1/properties", &alice, map[string]any{
		"description": "Loft", "price_per_day": 500,
	})
	require.Equal(t, fiber.StatusCreated, status)
	tx := data(t, body)
	assert.Equal(t, chain.StatusSuccess, tx["status"])
	assert.EqualValues(t, 1, tx["result"])
	assert.Len(t, tx["tx_hash"], 64)

	status, body = api.do("GET", "/api/v1/properties/1", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Loft", data(t, body)["description"])
	assert.Equal(t, alice.String(), data(t, body)["owner"])

	// not the owner: reverted, tx_hash still returned
	status, body = api.do("PUT", "/api/v1/properties/1", &bob, map[string]any{
		"description": "Mine", "price_per_day": 1, "is_available": true,
	})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Len(t, body["tx_hash"], 64)

	status, body = api.do("GET", "/api/v1/txs/"+body["tx_hash"].(string), nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, chain.StatusReverted, data(t, body)["status"])

	status, _ = api.do("PUT", "/api/v1/properties/1", &alice, map[string]any{
		"description": "Loft, renovated", "price_per_day": 600, "is_available": false,
	})
	assert.Equal(t, fiber.StatusOK, status)

	status, body = api.do("GET", "/api/v1/properties?available=true", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, data(t, body)["items"])

	status, _ = api.do("DELETE", "/api/v1/properties/1", &alice, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = api.do("GET", "/api/v1/properties/1", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = api.do("GET", "/api/v1/properties/abc", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAgreementTransitions(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do("POST", "/api/v1/agreements", &alice, map[string]any{
		"tenant":           bob.String(),
		"rental_amount":    1000,
		"deposit":          2000,
		"duration_seconds": 86400,
		"conditions":       "No pets",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.EqualValues(t, 1, data(t, body)["result"])

	status, _ = api.do("POST", "/api/v1/agreements/1/activate", &bob, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = api.do("POST", "/api/v1/agreements/1/activate", &alice, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = api.do("POST", "/api/v1/agreements/1/activate", &alice, nil)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = api.do("POST", "/api/v1/agreements/1/terminate", &bob, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = api.do("GET", "/api/v1/agreements?party="+bob.Raw(), nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	items := data(t, body)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "terminated", items[0].(map[string]any)["status"])

	status, _ = api.do("GET", "/api/v1/agreements", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = api.do("POST", "/api/v1/agreements/7/terminate", &alice, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestBookingNativeAndToken(t *testing.T) {
	api := newTestAPI(t)

	status, _ := api.do("POST", "/api/v1/services", &alice, map[string]any{"name": "Cleaning", "price": 500})
	require.Equal(t, fiber.StatusCreated, status)

	status, _ = api.do("POST", "/api/v1/services/1/book", &bob, map[string]any{"value": 100})
	assert.Equal(t, fiber.StatusPaymentRequired, status)

	status, body := api.do("POST", "/api/v1/services/1/book", &bob, map[string]any{"value": 500})
	require.Equal(t, fiber.StatusCreated, status)
	assert.EqualValues(t, 1, data(t, body)["result"])
	assert.Equal(t, uint64(500), api.svc.NativeBalance(alice))
	assert.Equal(t, uint64(9_500), api.svc.NativeBalance(bob))

	// RTC: deployer funds bob, bob approves the marketplace
	status, _ = api.do("POST", "/api/v1/token/transfer", &deployer, map[string]any{"to": bob.String(), "amount": 700})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = api.do("POST", "/api/v1/services/1/book", &bob, map[string]any{"pay_with_rentocoin": true})
	assert.Equal(t, fiber.StatusPaymentRequired, status, "no allowance yet")

	status, _ = api.do("POST", "/api/v1/token/approve", &bob, map[string]any{
		"spender": api.svc.MarketplaceAddress().String(), "amount": 500,
	})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = api.do("POST", "/api/v1/services/1/book", &bob, map[string]any{"pay_with_rentocoin": true})
	require.Equal(t, fiber.StatusCreated, status)

	status, body = api.do("GET", "/api/v1/token/balances/"+alice.Raw(), nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 500, data(t, body)["balance"])

	status, body = api.do("GET", fmt.Sprintf("/api/v1/token/allowances/%s/%s", bob.Raw(), api.svc.MarketplaceAddress().Raw()), nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, data(t, body)["allowance"])

	status, body = api.do("GET", "/api/v1/bookings/2", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, data(t, body)["paid_with_rentocoin"])

	status, _ = api.do("POST", "/api/v1/bookings/2/complete", &bob, nil)
	assert.Equal(t, fiber.StatusForbidden, status, "only the provider completes")
	status, _ = api.do("POST", "/api/v1/bookings/2/complete", &alice, nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = api.do("POST", "/api/v1/bookings/2/complete", &alice, nil)
	assert.Equal(t, fiber.StatusConflict, status)

	status, body = api.do("GET", "/api/v1/accounts/"+bob.Raw(), nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 9_500, data(t, body)["native_balance"])
	assert.EqualValues(t, 200, data(t, body)["token_balance"])
}

func TestBlocks(t *testing.T) {
	api := newTestAPI(t)

	status, _ := api.do("GET", "/api/v1/blocks/latest", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = api.do("POST", "/api/v1/services", &alice, map[string]any{"name": "Cleaning", "price": 500})
	require.Equal(t, fiber.StatusCreated, status)

	b, err := api.svc.SealNow(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b)

	status, body := api.do("GET", "/api/v1/blocks/latest", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, b.Hash, data(t, body)["hash"])

	status, _ = api.do("GET", "/api/v1/blocks/1", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = api.do("GET", "/api/v1/blocks/2", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = api.do("GET", "/api/v1/events?contract=ServiceMarketplace", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)
}

func TestSubmitTx(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do("POST", "/api/v1/txs", &alice, map[string]any{
		"contract": "ServiceMarketplace",
		"method":   "addService",
		"args":     map[string]any{"name": "Cleaning", "price": 500},
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, data(t, body)["result"])

	status, _ = api.do("POST", "/api/v1/txs", &alice, map[string]any{"contract": "Rentocoin", "method": "mint"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = api.do("POST", "/api/v1/txs", &alice, map[string]any{"contract": "System", "method": "credit"})
	assert.Equal(t, fiber.StatusForbidden, status)
}

package config

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/chain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BLOCK_INTERVAL_MS", "")
	t.Setenv("RENTOCOIN_INITIAL_SUPPLY", "")
	t.Setenv("SUBMIT_RATE_PER_SEC", "")

	cfg := Load()
	assert.Equal(t, 2*time.Second, cfg.BlockInterval)
	assert.Equal(t, uint64(1_000_000_000_000_000), cfg.RentocoinInitialSupply)
	assert.Equal(t, 5.0, cfg.SubmitRatePerSec)
	assert.Equal(t, "acct:", cfg.DepositMemoPrefix)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BLOCK_INTERVAL_MS", "250")
	t.Setenv("RENTOCOIN_INITIAL_SUPPLY", "18446744073709551615")
	t.Setenv("SUBMIT_BURST", "not-a-number")
	t.Setenv("TON_PROOF_DOMAINS", "rent.example.com, ,app.example.com")

	cfg := Load()
	assert.Equal(t, 250*time.Millisecond, cfg.BlockInterval)
	assert.Equal(t, uint64(18446744073709551615), cfg.RentocoinInitialSupply)
	assert.Equal(t, 10, cfg.SubmitBurst)
	assert.Equal(t, []string{"rent.example.com", "app.example.com"}, cfg.TONProofDomains)
}

func TestAllocations(t *testing.T) {
	a := chain.Address(sha256.Sum256([]byte("a")))
	b := chain.Address(sha256.Sum256([]byte("b")))

	cfg := &Config{GenesisAllocations: a.String() + "=100, " + b.Raw() + "=5," + a.Raw() + "=1"}
	got, err := cfg.Allocations()
	require.NoError(t, err)
	assert.Equal(t, map[chain.Address]uint64{a: 101, b: 5}, got)

	cfg.GenesisAllocations = "garbage,0:zz=1," + a.Raw() + "=-3"
	_, err = cfg.Allocations()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
}

func TestValidate(t *testing.T) {
	deployer := chain.Address(sha256.Sum256([]byte("deployer")))

	cfg := &Config{
		JWTSecret:          defaultJWTSecret,
		RentocoinDeployer:  deployer.String(),
		BlockInterval:      time.Second,
		DepositNanoPerUnit: 1,
	}
	require.NoError(t, cfg.Validate(zap.NewNop()))

	d, err := cfg.Deployer()
	require.NoError(t, err)
	assert.Equal(t, deployer, d)

	cfg.RentocoinDeployer = ""
	cfg.BlockInterval = 0
	cfg.DepositNanoPerUnit = 0
	err = cfg.Validate(zap.NewNop())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
}

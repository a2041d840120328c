package chain

import (
	"crypto/ed25519"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress_RoundTrip(t *testing.T) {
	a := testAddr("alice")

	friendly, err := ParseAddress(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, friendly)

	raw, err := ParseAddress(a.Raw())
	require.NoError(t, err)
	assert.Equal(t, a, raw)
	assert.True(t, strings.HasPrefix(a.Raw(), "0:"))
}

func TestParseAddress_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"garbage", "not-an-address"},
		{"bad hex", "0:zz"},
		{"masterchain", "-1:" + strings.Repeat("ab", 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestAddress_JSON(t *testing.T) {
	type wrap struct {
		Owner Address `json:"owner"`
	}
	in := wrap{Owner: testAddr("bob")}

	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out wrap
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestDerivedAddresses(t *testing.T) {
	assert.Equal(t, ContractAddress("Rentocoin"), ContractAddress("Rentocoin"))
	assert.NotEqual(t, ContractAddress("Rentocoin"), ContractAddress("PropertyListing"))
	assert.False(t, ContractAddress("Rentocoin").IsZero())

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	assert.Equal(t, AddressFromPublicKey(pub), AddressFromPublicKey(pub))
	assert.True(t, Address{}.IsZero())
}

package chain

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/xssnick/tonutils-go/address"
)

// Address identifies an account or a contract. The zero value is the zero address.
type Address [32]byte

func (a Address) IsZero() bool { return a == Address{} }

// String returns the user-friendly form (base64url, bounceable, workchain 0).
func (a Address) String() string {
	return address.NewAddress(0, 0, a[:]).String()
}

// Raw returns the "0:<hex>" form.
func (a Address) Raw() string {
	return "0:" + hex.EncodeToString(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress accepts both the raw "0:<hex>" form and the user-friendly form.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, fmt.Errorf("empty address: %w", ErrInvalidInput)
	}

	if strings.Contains(s, ":") {
		addr, err := address.ParseRawAddr(s)
		if err != nil {
			return Address{}, fmt.Errorf("invalid raw address %q: %w", s, ErrInvalidInput)
		}
		return fromTON(addr)
	}

	addr, err := address.ParseAddr(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, ErrInvalidInput)
	}
	return fromTON(addr)
}

func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func fromTON(addr *address.Address) (Address, error) {
	if addr.Workchain() != 0 {
		return Address{}, fmt.Errorf("workchain %d is not supported: %w", addr.Workchain(), ErrInvalidInput)
	}
	data := addr.Data()
	if len(data) != 32 {
		return Address{}, fmt.Errorf("address hash must be 32 bytes, got %d: %w", len(data), ErrInvalidInput)
	}
	var a Address
	copy(a[:], data)
	return a, nil
}

// ContractAddress derives the account that holds a contract's native balance.
func ContractAddress(name string) Address {
	return sha256.Sum256([]byte("tor-rent/contract/" + name))
}

// AddressFromPublicKey derives a wallet address from its ed25519 key.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	return sha256.Sum256(pub)
}

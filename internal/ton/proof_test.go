package ton

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/tor-rent/backend/internal/chain"
)

// testWallet собирает state_init кошелька v4 с данным ключом.
func testWallet(t *testing.T, pub ed25519.PublicKey) (chain.Address, string) {
	t.Helper()
	data := cell.BeginCell().
		MustStoreUInt(0, 32).         // seqno
		MustStoreUInt(698983191, 32). // subwallet_id
		MustStoreSlice(pub, 256).
		MustStoreUInt(0, 1). // пустой словарь плагинов
		EndCell()
	code := cell.BeginCell().MustStoreUInt(0xC0DE, 16).EndCell()

	root, err := tlb.ToCell(tlb.StateInit{Code: code, Data: data})
	if err != nil {
		t.Fatal(err)
	}
	var addr chain.Address
	copy(addr[:], root.Hash())
	return addr, base64.StdEncoding.EncodeToString(root.ToBOC())
}

func signedProof(t *testing.T, priv ed25519.PrivateKey, pub ed25519.PublicKey, nonce, domain string, ts time.Time) ProofData {
	t.Helper()
	addr, stateInit := testWallet(t, pub)
	proof := Proof{
		Timestamp: ts.Unix(),
		Domain:    ProofDomain{LengthBytes: len(domain), Value: domain},
		Payload:   nonce,
	}
	proof.Signature = base64.StdEncoding.EncodeToString(ed25519.Sign(priv, ProofMessage(addr, proof)))
	return ProofData{
		Address:   addr.Raw(),
		Network:   "-3",
		PublicKey: hex.EncodeToString(pub),
		Proof:     proof,
		StateInit: stateInit,
	}
}

func TestVerifyWalletProof_Valid(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	p := signedProof(t, priv, pub, "nonce-1", "rent.example.com", now)

	addr, err := VerifyWalletProof(p, "nonce-1", []string{"rent.example.com"}, now)
	if err != nil {
		t.Fatalf("expected valid proof, got error: %v", err)
	}
	if addr.Raw() != p.Address {
		t.Errorf("address = %s, want %s", addr.Raw(), p.Address)
	}
}

func TestVerifyWalletProof_Rejects(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	otherPub, otherPriv, _ := ed25519.GenerateKey(nil)
	now := time.Now()
	domains := []string{"rent.example.com"}

	tests := []struct {
		name   string
		mutate func(p *ProofData)
		nonce  string
	}{
		{"other nonce", func(*ProofData) {}, "nonce-2"},
		{"expired", func(p *ProofData) {
			*p = signedProof(t, priv, pub, "nonce-1", "rent.example.com", now.Add(-10*time.Minute))
		}, "nonce-1"},
		{"future", func(p *ProofData) {
			*p = signedProof(t, priv, pub, "nonce-1", "rent.example.com", now.Add(5*time.Minute))
		}, "nonce-1"},
		{"wrong domain", func(p *ProofData) {
			*p = signedProof(t, priv, pub, "nonce-1", "evil.example.com", now)
		}, "nonce-1"},
		{"tampered signature", func(p *ProofData) {
			p.Proof.Signature = base64.StdEncoding.EncodeToString(make([]byte, ed25519.SignatureSize))
		}, "nonce-1"},
		{"key not in state_init", func(p *ProofData) {
			// подпись валидна, но ключ чужой по отношению к кошельку
			other := signedProof(t, otherPriv, otherPub, "nonce-1", "rent.example.com", now)
			p.PublicKey = other.PublicKey
			p.Proof.Signature = other.Proof.Signature
		}, "nonce-1"},
		{"address of another wallet", func(p *ProofData) {
			other := signedProof(t, otherPriv, otherPub, "nonce-1", "rent.example.com", now)
			p.Address = other.Address
		}, "nonce-1"},
		{"masterchain address", func(p *ProofData) {
			p.Address = "-1" + p.Address[1:]
		}, "nonce-1"},
		{"bad state_init", func(p *ProofData) { p.StateInit = "!!" }, "nonce-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := signedProof(t, priv, pub, "nonce-1", "rent.example.com", now)
			tt.mutate(&p)
			_, err := VerifyWalletProof(p, tt.nonce, domains, now)
			if !errors.Is(err, ErrProofRejected) {
				t.Fatalf("expected ErrProofRejected, got %v", err)
			}
		})
	}
}

func TestIsDomainAllowed(t *testing.T) {
	if !isDomainAllowed("any.example.com", nil) {
		t.Error("empty list must allow any domain")
	}
	if isDomainAllowed("evil.example.com", []string{"rent.example.com"}) {
		t.Error("unlisted domain allowed")
	}
}

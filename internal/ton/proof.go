package ton

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/tor-rent/backend/internal/chain"
)

const (
	// TonProofPrefix: фиксированный префикс для TON Proof по спецификации TON Connect.
	// https://docs.ton.org/develop/dapps/ton-connect/sign#checking-ton_proof-on-server-side
	TonProofPrefix = "ton-proof-item-v2/"

	// TonConnectPrefix: префикс перед SHA256 хешем сообщения.
	TonConnectPrefix = "ton-connect"

	// MaxProofAge: максимальный возраст proof (защита от replay).
	MaxProofAge = 5 * time.Minute
)

var ErrProofRejected = errors.New("ton proof rejected")

// ProofData содержит данные из TON Connect ton_proof.
type ProofData struct {
	Address   string `json:"address"`    // raw "0:<hex>"
	Network   string `json:"network"`    // "-239" = mainnet, "-3" = testnet
	PublicKey string `json:"public_key"` // hex
	Proof     Proof  `json:"proof"`
	StateInit string `json:"state_init"` // base64 BOC
}

type Proof struct {
	Timestamp int64       `json:"timestamp"`
	Domain    ProofDomain `json:"domain"`
	Payload   string      `json:"payload"`   // наш nonce
	Signature string      `json:"signature"` // base64
}

type ProofDomain struct {
	LengthBytes int    `json:"lengthBytes"`
	Value       string `json:"value"`
}

// VerifyWalletProof проверяет ton_proof кошелька и возвращает его адрес в ledger.
// Публичный ключ должен лежать в state_init, чей хеш и есть адрес кошелька.
func VerifyWalletProof(p ProofData, nonce string, allowedDomains []string, now time.Time) (chain.Address, error) {
	if p.Proof.Payload != nonce {
		return chain.Address{}, fmt.Errorf("%w: payload does not match the challenge", ErrProofRejected)
	}

	addr, err := chain.ParseAddress(p.Address)
	if err != nil {
		return chain.Address{}, fmt.Errorf("%w: %v", ErrProofRejected, err)
	}

	pubKey, err := hex.DecodeString(p.PublicKey)
	if err != nil || len(pubKey) != ed25519.PublicKeySize {
		return chain.Address{}, fmt.Errorf("%w: invalid public key", ErrProofRejected)
	}

	if err := checkStateInit(p.StateInit, addr, pubKey); err != nil {
		return chain.Address{}, fmt.Errorf("%w: %v", ErrProofRejected, err)
	}

	if err := VerifyProof(pubKey, addr, p.Proof, allowedDomains, now); err != nil {
		return chain.Address{}, fmt.Errorf("%w: %v", ErrProofRejected, err)
	}
	return addr, nil
}

// checkStateInit: hash(state_init) == адрес, в data кошелька v3/v4 ключ идёт
// после seqno(32) и subwallet_id(32).
func checkStateInit(b64 string, addr chain.Address, pubKey []byte) error {
	boc, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("invalid state_init base64: %w", err)
	}
	root, err := cell.FromBOC(boc)
	if err != nil {
		return fmt.Errorf("invalid state_init boc: %w", err)
	}
	if !bytes.Equal(root.Hash(), addr[:]) {
		return fmt.Errorf("state_init does not match address")
	}

	var si tlb.StateInit
	if err := tlb.LoadFromCell(&si, root.BeginParse()); err != nil {
		return fmt.Errorf("parse state_init: %w", err)
	}
	if si.Data == nil {
		return fmt.Errorf("state_init has no data")
	}

	data := si.Data.BeginParse()
	if _, err := data.LoadUInt(64); err != nil {
		return fmt.Errorf("wallet data too short: %w", err)
	}
	key, err := data.LoadSlice(256)
	if err != nil {
		return fmt.Errorf("wallet data has no public key: %w", err)
	}
	if !bytes.Equal(key, pubKey) {
		return fmt.Errorf("public key is not the wallet key")
	}
	return nil
}

// ProofMessage собирает хеш, который подписывает кошелёк:
//
//	message = "ton-proof-item-v2/" ++ workchain(4 LE) ++ address_hash(32)
//	          ++ domain_len(4 LE) ++ domain ++ timestamp(8 LE) ++ payload
//	signed  = sha256(0xffff ++ "ton-connect" ++ sha256(message))
func ProofMessage(addr chain.Address, proof Proof) []byte {
	message := []byte(TonProofPrefix)

	// workchain всегда 0
	message = binary.LittleEndian.AppendUint32(message, 0)
	message = append(message, addr[:]...)

	message = binary.LittleEndian.AppendUint32(message, uint32(proof.Domain.LengthBytes))
	message = append(message, []byte(proof.Domain.Value)...)

	message = binary.LittleEndian.AppendUint64(message, uint64(proof.Timestamp))
	message = append(message, []byte(proof.Payload)...)

	msgHash := sha256.Sum256(message)

	signatureMessage := []byte{0xff, 0xff}
	signatureMessage = append(signatureMessage, []byte(TonConnectPrefix)...)
	signatureMessage = append(signatureMessage, msgHash[:]...)

	finalHash := sha256.Sum256(signatureMessage)
	return finalHash[:]
}

// VerifyProof проверяет срок, домен и подпись ton_proof.
func VerifyProof(pubKey ed25519.PublicKey, addr chain.Address, proof Proof, allowedDomains []string, now time.Time) error {
	proofTime := time.Unix(proof.Timestamp, 0)
	if now.Sub(proofTime) > MaxProofAge {
		return fmt.Errorf("proof expired: %s old", now.Sub(proofTime).Round(time.Second))
	}
	if proofTime.After(now.Add(1 * time.Minute)) {
		return fmt.Errorf("proof timestamp is in the future")
	}

	if !isDomainAllowed(proof.Domain.Value, allowedDomains) {
		return fmt.Errorf("domain %q not in allowed list", proof.Domain.Value)
	}
	if proof.Domain.LengthBytes != len(proof.Domain.Value) {
		return fmt.Errorf("domain length mismatch")
	}

	sig, err := base64.StdEncoding.DecodeString(proof.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature base64: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature size: %d", len(sig))
	}

	if !ed25519.Verify(pubKey, ProofMessage(addr, proof), sig) {
		return fmt.Errorf("invalid signature")
	}
	return nil
}

func isDomainAllowed(domain string, allowed []string) bool {
	if len(allowed) == 0 {
		return true // если список пуст, разрешаем всё (dev mode)
	}
	for _, d := range allowed {
		if d == domain {
			return true
		}
	}
	return false
}

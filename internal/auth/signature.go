package auth

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/tor-rent/backend/internal/chain"
)

// LoginPrefix отделяет подпись логина от подписей любых других сообщений.
const LoginPrefix = "tor-rent-login/"

// LoginMessage: то, что кошелёк подписывает: sha256(prefix ++ nonce).
func LoginMessage(nonce string) []byte {
	h := sha256.Sum256([]byte(LoginPrefix + nonce))
	return h[:]
}

// SignLogin подписывает nonce приватным ключом. Используется CLI.
func SignLogin(priv ed25519.PrivateKey, nonce string) string {
	return hex.EncodeToString(ed25519.Sign(priv, LoginMessage(nonce)))
}

// VerifyLogin проверяет подпись nonce и возвращает адрес, выведенный из ключа.
func VerifyLogin(pubKeyHex, signatureHex, nonce string) (chain.Address, error) {
	pubKey, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return chain.Address{}, fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(pubKey) != ed25519.PublicKeySize {
		return chain.Address{}, fmt.Errorf("invalid public key size: %d", len(pubKey))
	}

	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return chain.Address{}, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return chain.Address{}, fmt.Errorf("invalid signature size: %d", len(sig))
	}

	if !ed25519.Verify(pubKey, LoginMessage(nonce), sig) {
		return chain.Address{}, fmt.Errorf("invalid signature")
	}
	return chain.AddressFromPublicKey(pubKey), nil
}

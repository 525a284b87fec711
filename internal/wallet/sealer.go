package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts private keys at rest with XChaCha20-Poly1305. The
// origin and network are bound as associated data so a sealed key cannot
// be moved to another origin's state.
type Sealer struct {
	secret []byte
}

// NewSealer takes a 32-byte secret in hex.
func NewSealer(secretHex string) (*Sealer, error) {
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("keystore secret: %w", err)
	}
	if len(secret) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("keystore secret must be %d bytes, got %d", chacha20poly1305.KeySize, len(secret))
	}
	return &Sealer{secret: secret}, nil
}

// Seal returns hex(nonce || ciphertext).
func (s *Sealer) Seal(plaintext, origin, network string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.secret)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), additionalData(origin, network))
	return hex.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealedHex, origin, network string) (string, error) {
	sealed, err := hex.DecodeString(sealedHex)
	if err != nil {
		return "", fmt.Errorf("sealed key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.secret)
	if err != nil {
		return "", err
	}
	if len(sealed) < aead.NonceSize() {
		return "", errors.New("sealed key is truncated")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData(origin, network))
	if err != nil {
		return "", errors.New("sealed key cannot be opened")
	}
	return string(plaintext), nil
}

func additionalData(origin, network string) []byte {
	return []byte(origin + "\x00" + network)
}

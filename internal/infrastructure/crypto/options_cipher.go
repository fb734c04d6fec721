package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// OptionsCipher encrypts sensitive provider option values at rest. Ciphertext
// is nonce||sealed, base64-encoded, so one column holds everything needed to
// decrypt.
type OptionsCipher struct {
	key []byte
}

// NewOptionsCipher creates a cipher from a 32-byte key. The key may be given
// raw or base64-encoded.
func NewOptionsCipher(key string) (*OptionsCipher, error) {
	raw := []byte(key)
	if len(raw) != chacha20poly1305.KeySize {
		decoded, err := base64.StdEncoding.DecodeString(key)
		if err != nil || len(decoded) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("options cipher key must be %d bytes raw or base64", chacha20poly1305.KeySize)
		}
		raw = decoded
	}
	return &OptionsCipher{key: raw}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext)
func (c *OptionsCipher) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered or truncated input returns an error.
func (c *OptionsCipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

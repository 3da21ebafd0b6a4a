package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// AESGCM implements AES-GCM authenticated encryption.
type AESGCM struct {
	sealer
}

// NewAESGCM creates an AES-GCM cipher. The key must be 16, 24, or 32
// bytes, selecting AES-128, AES-192, or AES-256.
func NewAESGCM(key []byte) (*AESGCM, error) {
	if n := len(key); n != 16 && n != 24 && n != 32 {
		return nil, errors.New("invalid key size for AES-GCM: must be 16, 24, or 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &AESGCM{sealer: sealer{aead: aead}}, nil
}

// Type returns the cipher type.
func (c *AESGCM) Type() CipherType { return CipherAESGCM }

// Encrypt encrypts plaintext with additional data.
func (c *AESGCM) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	return c.seal(plaintext, additionalData)
}

// Decrypt decrypts ciphertext with additional data.
func (c *AESGCM) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	return c.open(ciphertext, additionalData)
}

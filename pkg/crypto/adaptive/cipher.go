package adaptive

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
	"runtime"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// Cipher provides authenticated encryption.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Encrypt encrypts plaintext with additional data.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt decrypts ciphertext with additional data.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce size in bytes.
	NonceSize() int

	// Overhead returns the authentication tag size in bytes.
	Overhead() int
}

// New creates a cipher with the given key, picking the algorithm best
// suited to the current hardware.
func New(key []byte) (Cipher, error) {
	if preferAES() {
		return NewAESGCM(key)
	}
	return NewChaCha20(key)
}

// NewWithType creates a cipher of the specified type.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	switch cipherType {
	case CipherAESGCM:
		return NewAESGCM(key)
	case CipherChaCha20:
		return NewChaCha20(key)
	}
	return nil, errors.New("unknown cipher type: " + string(cipherType))
}

// preferAES reports whether AES should be used over ChaCha20. The Go
// runtime uses AES-NI on amd64 and the ARM crypto extensions on arm64;
// on other architectures software AES loses to ChaCha20.
func preferAES() bool {
	return runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
}

// sealer wraps an AEAD with the nonce-prefix framing shared by both
// cipher implementations.
type sealer struct {
	aead cipher.AEAD
}

func (s *sealer) NonceSize() int { return s.aead.NonceSize() }
func (s *sealer) Overhead() int  { return s.aead.Overhead() }

// seal encrypts plaintext and prepends the random nonce to the output.
func (s *sealer) seal(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// open splits the nonce prefix off ciphertext and decrypts the rest.
func (s *sealer) open(ciphertext, additionalData []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(ciphertext) < ns {
		return nil, errors.New("ciphertext too short")
	}
	return s.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], additionalData)
}

package adaptive

import (
	"bytes"
	"testing"
)

func testKey(n int) []byte {
	key := make([]byte, n)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNew(t *testing.T) {
	c, err := New(testKey(32))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c == nil {
		t.Fatal("New() returned nil cipher")
	}
	if ct := c.Type(); ct != CipherAESGCM && ct != CipherChaCha20 {
		t.Errorf("New() returned unknown cipher type: %s", ct)
	}
}

func TestNewWithType(t *testing.T) {
	for _, ct := range []CipherType{CipherAESGCM, CipherChaCha20} {
		t.Run(string(ct), func(t *testing.T) {
			c, err := NewWithType(testKey(32), ct)
			if err != nil {
				t.Fatalf("NewWithType(%s) error = %v", ct, err)
			}
			if c.Type() != ct {
				t.Errorf("Type() = %s, want %s", c.Type(), ct)
			}
		})
	}
}

func TestNewWithType_Unknown(t *testing.T) {
	if _, err := NewWithType(testKey(32), "rot13"); err == nil {
		t.Error("NewWithType(unknown) should return error")
	}
}

func TestNewAESGCM_KeySizes(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		wantErr bool
	}{
		{"AES-128", 16, false},
		{"AES-192", 24, false},
		{"AES-256", 32, false},
		{"too short", 15, true},
		{"odd", 17, true},
		{"too long", 33, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewAESGCM(testKey(tt.keyLen))
			if tt.wantErr {
				if err == nil {
					t.Error("NewAESGCM() should return error")
				}
				return
			}
			if err != nil {
				t.Errorf("NewAESGCM() error = %v", err)
			}
			if c == nil {
				t.Error("NewAESGCM() returned nil cipher")
			}
		})
	}
}

func TestNewChaCha20_KeySizes(t *testing.T) {
	if _, err := NewChaCha20(testKey(32)); err != nil {
		t.Errorf("NewChaCha20(32 bytes) error = %v", err)
	}
	for _, n := range []int{16, 24, 31, 33} {
		if _, err := NewChaCha20(testKey(n)); err == nil {
			t.Errorf("NewChaCha20(%d bytes) should return error", n)
		}
	}
}

// eachCipher runs the subtest against both implementations.
func eachCipher(t *testing.T, fn func(t *testing.T, c Cipher)) {
	t.Helper()

	aesgcm, err := NewAESGCM(testKey(32))
	if err != nil {
		t.Fatalf("NewAESGCM() error = %v", err)
	}
	chacha, err := NewChaCha20(testKey(32))
	if err != nil {
		t.Fatalf("NewChaCha20() error = %v", err)
	}

	t.Run("aes-gcm", func(t *testing.T) { fn(t, aesgcm) })
	t.Run("chacha20", func(t *testing.T) { fn(t, chacha) })
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	eachCipher(t, func(t *testing.T, c Cipher) {
		tests := []struct {
			name           string
			plaintext      []byte
			additionalData []byte
		}{
			{"empty", []byte{}, nil},
			{"small", []byte(`{"session_id":"tses-abc"}`), nil},
			{"with aad", []byte(`{"pointer":3}`), []byte("tses-abc")},
			{"snapshot sized", bytes.Repeat([]byte("row,"), 4096), nil},
			{"binary", []byte{0x00, 0xFF, 0x7F, 0x80}, []byte{0x01, 0x02}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ciphertext, err := c.Encrypt(tt.plaintext, tt.additionalData)
				if err != nil {
					t.Fatalf("Encrypt() error = %v", err)
				}

				wantMin := len(tt.plaintext) + c.NonceSize() + c.Overhead()
				if len(ciphertext) < wantMin {
					t.Errorf("Encrypt() ciphertext length = %d, want >= %d", len(ciphertext), wantMin)
				}

				plaintext, err := c.Decrypt(ciphertext, tt.additionalData)
				if err != nil {
					t.Fatalf("Decrypt() error = %v", err)
				}
				if !bytes.Equal(plaintext, tt.plaintext) {
					t.Errorf("Decrypt() plaintext = %v, want %v", plaintext, tt.plaintext)
				}
			})
		}
	})
}

func TestDecrypt_Tampered(t *testing.T) {
	eachCipher(t, func(t *testing.T, c Cipher) {
		plaintext := []byte("column payload")
		aad := []byte("tses-abc")

		ciphertext, err := c.Encrypt(plaintext, aad)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}

		tampered := make([]byte, len(ciphertext))
		copy(tampered, ciphertext)
		tampered[len(tampered)-1] ^= 0xFF

		if _, err := c.Decrypt(tampered, aad); err == nil {
			t.Error("Decrypt() should fail for tampered ciphertext")
		}
		if _, err := c.Decrypt(ciphertext, []byte("tses-other")); err == nil {
			t.Error("Decrypt() should fail for wrong additional data")
		}
	})
}

func TestDecrypt_TooShort(t *testing.T) {
	eachCipher(t, func(t *testing.T, c Cipher) {
		short := make([]byte, c.NonceSize()-1)
		if _, err := c.Decrypt(short, nil); err == nil {
			t.Error("Decrypt() should fail for ciphertext shorter than nonce")
		}
	})
}

func TestSizes(t *testing.T) {
	// Both AEADs use a 96-bit nonce and a 128-bit tag.
	eachCipher(t, func(t *testing.T, c Cipher) {
		if c.NonceSize() != 12 {
			t.Errorf("NonceSize() = %d, want 12", c.NonceSize())
		}
		if c.Overhead() != 16 {
			t.Errorf("Overhead() = %d, want 16", c.Overhead())
		}
	})
}

func TestEncrypt_NonceUniqueness(t *testing.T) {
	c, err := NewAESGCM(testKey(32))
	if err != nil {
		t.Fatalf("NewAESGCM() error = %v", err)
	}

	plaintext := []byte("same snapshot bytes")
	seen := make(map[string]bool)

	for i := 0; i < 10; i++ {
		ciphertext, err := c.Encrypt(plaintext, nil)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		if seen[string(ciphertext)] {
			t.Error("Encrypt() produced duplicate ciphertext (nonce collision)")
		}
		seen[string(ciphertext)] = true
	}
}

func BenchmarkAESGCM_Encrypt_64KB(b *testing.B) {
	c, _ := NewAESGCM(testKey(32))
	plaintext := bytes.Repeat([]byte("A"), 64*1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Encrypt(plaintext, nil)
	}
}

func BenchmarkChaCha20_Encrypt_64KB(b *testing.B) {
	c, _ := NewChaCha20(testKey(32))
	plaintext := bytes.Repeat([]byte("A"), 64*1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Encrypt(plaintext, nil)
	}
}

func BenchmarkAESGCM_Decrypt_64KB(b *testing.B) {
	c, _ := NewAESGCM(testKey(32))
	ciphertext, _ := c.Encrypt(bytes.Repeat([]byte("A"), 64*1024), nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Decrypt(ciphertext, nil)
	}
}

func BenchmarkChaCha20_Decrypt_64KB(b *testing.B) {
	c, _ := NewChaCha20(testKey(32))
	ciphertext, _ := c.Encrypt(bytes.Repeat([]byte("A"), 64*1024), nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Decrypt(ciphertext, nil)
	}
}

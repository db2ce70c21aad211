package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	standardPrefix      = "ENC:"
	deterministicPrefix = "DENC:"
	gcmIVSize           = 12
	gcmTagSize          = 16
)

var ErrInvalidKeySize = errors.New("encryption key must be 32 bytes")

// FieldCipher encrypts individual database fields with AES-256-GCM. The wire
// format is PREFIX + hex(iv) + ":" + hex(tag) + ":" + hex(ciphertext).
//
// Standard encryption (ENC:) uses a random IV. Deterministic encryption
// (DENC:) derives the IV from an HMAC of the plaintext so that equal
// plaintexts produce equal ciphertexts, which keeps account-number equality
// lookups working against encrypted columns.
//
// A nil key disables encryption: Encrypt/Decrypt become identity functions.
type FieldCipher struct {
	aead  cipher.AEAD
	ivKey []byte
}

func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if key == nil {
		return &FieldCipher{}, nil
	}
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	// Deterministic IVs come from a subkey so the master key is never used
	// directly as an HMAC key.
	ivKey := make([]byte, 32)
	kdf := hkdf.New(sha256.New, key, nil, []byte("playerstatements-deterministic-iv"))
	if _, err := io.ReadFull(kdf, ivKey); err != nil {
		return nil, err
	}

	return &FieldCipher{aead: aead, ivKey: ivKey}, nil
}

// Enabled reports whether a key is configured.
func (c *FieldCipher) Enabled() bool {
	return c.aead != nil
}

// Encrypt encrypts with a random IV (ENC: format).
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	if !c.Enabled() || plaintext == "" {
		return plaintext, nil
	}
	iv := make([]byte, gcmIVSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	return c.seal(standardPrefix, iv, plaintext), nil
}

// EncryptDeterministic encrypts with a plaintext-derived IV (DENC: format).
func (c *FieldCipher) EncryptDeterministic(plaintext string) (string, error) {
	if !c.Enabled() || plaintext == "" {
		return plaintext, nil
	}
	mac := hmac.New(sha256.New, c.ivKey)
	mac.Write([]byte(plaintext))
	iv := mac.Sum(nil)[:gcmIVSize]
	return c.seal(deterministicPrefix, iv, plaintext), nil
}

// Decrypt reverses either format. Values without a recognized prefix, and
// values that fail to decrypt (wrong key, corrupted data), are returned
// unchanged; the operator tooling depends on this tolerance when run against
// databases that predate encryption.
func (c *FieldCipher) Decrypt(value string) string {
	var encoded string
	switch {
	case strings.HasPrefix(value, deterministicPrefix):
		encoded = value[len(deterministicPrefix):]
	case strings.HasPrefix(value, standardPrefix):
		encoded = value[len(standardPrefix):]
	default:
		return value
	}
	if !c.Enabled() {
		return value
	}

	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return value
	}
	iv, err1 := hex.DecodeString(parts[0])
	tag, err2 := hex.DecodeString(parts[1])
	ciphertext, err3 := hex.DecodeString(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || len(iv) != gcmIVSize || len(tag) != gcmTagSize {
		return value
	}

	plaintext, err := c.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return value
	}
	return string(plaintext)
}

// NormalizeAccount produces the canonical matching key for an account number:
// decrypted if needed, outer whitespace trimmed, interior spaces removed. No
// case folding and no numeric reinterpretation, so "0042" and "42" stay
// distinct accounts.
func (c *FieldCipher) NormalizeAccount(account string) string {
	decrypted := c.Decrypt(account)
	return strings.ReplaceAll(strings.TrimSpace(decrypted), " ", "")
}

func (c *FieldCipher) seal(prefix string, iv []byte, plaintext string) string {
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]
	return prefix + hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext)
}

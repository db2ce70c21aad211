package security

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func testCipher(t *testing.T) *FieldCipher {
	t.Helper()
	c, err := NewFieldCipher(bytes.Repeat([]byte{0xab}, 32))
	if err != nil {
		t.Fatalf("NewFieldCipher: %v", err)
	}
	return c
}

func TestNewFieldCipherKeySize(t *testing.T) {
	if _, err := NewFieldCipher([]byte("short")); !errors.Is(err, ErrInvalidKeySize) {
		t.Fatalf("expected ErrInvalidKeySize, got %v", err)
	}
}

func TestEncryptRoundTrip(t *testing.T) {
	c := testCipher(t)

	sealed, err := c.Encrypt("12345678")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !strings.HasPrefix(sealed, "ENC:") {
		t.Fatalf("sealed = %q, want ENC: prefix", sealed)
	}
	if parts := strings.Split(strings.TrimPrefix(sealed, "ENC:"), ":"); len(parts) != 3 {
		t.Fatalf("sealed = %q, want iv:tag:ciphertext triplet", sealed)
	}
	if got := c.Decrypt(sealed); got != "12345678" {
		t.Errorf("Decrypt = %q, want original plaintext", got)
	}
}

func TestEncryptUsesRandomIV(t *testing.T) {
	c := testCipher(t)
	first, _ := c.Encrypt("same")
	second, _ := c.Encrypt("same")
	if first == second {
		t.Error("two standard encryptions of the same plaintext were identical")
	}
}

func TestEncryptDeterministic(t *testing.T) {
	c := testCipher(t)

	first, err := c.EncryptDeterministic("12345678")
	if err != nil {
		t.Fatalf("EncryptDeterministic: %v", err)
	}
	second, _ := c.EncryptDeterministic("12345678")
	if !strings.HasPrefix(first, "DENC:") {
		t.Fatalf("sealed = %q, want DENC: prefix", first)
	}
	if first != second {
		t.Errorf("deterministic encryption diverged: %q vs %q", first, second)
	}

	other, _ := c.EncryptDeterministic("87654321")
	if first == other {
		t.Error("different plaintexts produced the same ciphertext")
	}
	if got := c.Decrypt(first); got != "12345678" {
		t.Errorf("Decrypt = %q, want original plaintext", got)
	}
}

func TestDecryptTolerance(t *testing.T) {
	c := testCipher(t)
	otherKey, err := NewFieldCipher(bytes.Repeat([]byte{0xcd}, 32))
	if err != nil {
		t.Fatalf("NewFieldCipher: %v", err)
	}
	sealed, _ := c.Encrypt("secret")

	tests := []struct {
		name  string
		value string
	}{
		{"no prefix", "plain account 42"},
		{"empty", ""},
		{"malformed payload", "ENC:nothexatall"},
		{"wrong part count", "ENC:aa:bb"},
		{"wrong key", sealed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := c
			if tt.name == "wrong key" {
				target = otherKey
			}
			if got := target.Decrypt(tt.value); got != tt.value {
				t.Errorf("Decrypt(%q) = %q, want value returned unchanged", tt.value, got)
			}
		})
	}
}

func TestNilKeyIsIdentity(t *testing.T) {
	c, err := NewFieldCipher(nil)
	if err != nil {
		t.Fatalf("NewFieldCipher: %v", err)
	}
	if c.Enabled() {
		t.Fatal("nil-key cipher reports enabled")
	}
	if got, _ := c.Encrypt("42"); got != "42" {
		t.Errorf("Encrypt = %q, want identity", got)
	}
	if got, _ := c.EncryptDeterministic("42"); got != "42" {
		t.Errorf("EncryptDeterministic = %q, want identity", got)
	}
	if got := c.Decrypt("ENC:aa:bb:cc"); got != "ENC:aa:bb:cc" {
		t.Errorf("Decrypt = %q, want identity", got)
	}
}

func TestNormalizeAccount(t *testing.T) {
	c := testCipher(t)
	sealed, _ := c.EncryptDeterministic(" 00 42 ")

	tests := []struct {
		in   string
		want string
	}{
		{"  042 ", "042"},
		{"00 42", "0042"},
		{"042", "042"},
		{sealed, "0042"},
	}
	for _, tt := range tests {
		if got := c.NormalizeAccount(tt.in); got != tt.want {
			t.Errorf("NormalizeAccount(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

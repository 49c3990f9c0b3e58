package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateSalt(t *testing.T) {
	s1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(s1) != saltSize {
		t.Errorf("salt length = %d, want %d", len(s1), saltSize)
	}
	s2, _ := GenerateSalt()
	if bytes.Equal(s1, s2) {
		t.Error("two salts should differ")
	}
}

func TestDeriveKeyDeterminism(t *testing.T) {
	salt := []byte("0123456789abcdef")
	k1 := DeriveKey("passphrase", salt)
	k2 := DeriveKey("passphrase", salt)
	if !bytes.Equal(k1, k2) {
		t.Error("same passphrase and salt should derive the same key")
	}
	if len(k1) != keySize {
		t.Errorf("key length = %d, want %d", len(k1), keySize)
	}
	if bytes.Equal(k1, DeriveKey("other", salt)) {
		t.Error("different passphrases should derive different keys")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, _ := GenerateSalt()
	plaintext := []byte("SQLite format 3\x00 chores and assignments")

	enc, err := Encrypt(plaintext, "correct horse", salt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !bytes.Equal(enc[:saltSize], salt) {
		t.Error("header should start with the salt")
	}
	if bytes.Contains(enc, plaintext) {
		t.Error("ciphertext contains plaintext")
	}

	dec, err := Decrypt(enc, "correct horse")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(dec, plaintext) {
		t.Errorf("decrypted = %q, want %q", dec, plaintext)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	salt, _ := GenerateSalt()
	enc, _ := Encrypt([]byte("secret"), "right", salt)
	if _, err := Decrypt(enc, "wrong"); err == nil {
		t.Error("expected error for wrong passphrase")
	}
}

func TestDecryptTampered(t *testing.T) {
	salt, _ := GenerateSalt()
	enc, _ := Encrypt([]byte("secret data"), "pw", salt)
	enc[len(enc)-1] ^= 0xff
	if _, err := Decrypt(enc, "pw"); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}

func TestEncryptEmpty(t *testing.T) {
	salt, _ := GenerateSalt()
	enc, err := Encrypt(nil, "pw", salt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	dec, err := Decrypt(enc, "pw")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(dec) != 0 {
		t.Errorf("decrypted length = %d, want 0", len(dec))
	}
}

func TestDecryptTooSmall(t *testing.T) {
	if _, err := Decrypt([]byte("short"), "pw"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("err = %v, want ErrCiphertextTooShort", err)
	}
}

func TestEncryptBadSalt(t *testing.T) {
	if _, err := Encrypt([]byte("x"), "pw", []byte("short")); err == nil {
		t.Error("expected error for short salt")
	}
}

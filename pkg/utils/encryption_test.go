package utils

import (
	"encoding/base64"
	"strings"
	"testing"
)

func setTestKey(t *testing.T) {
	t.Helper()
	key := make([]byte, 32)
	copy(key, "0123456789abcdef0123456789abcdef")
	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(key))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	setTestKey(t)

	plain := "person@example.com"
	enc, err := Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if enc == plain || strings.Contains(enc, "example.com") {
		t.Error("ciphertext should not contain the plaintext")
	}

	dec, err := Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if dec != plain {
		t.Errorf("round trip = %q, want %q", dec, plain)
	}
}

func TestEncryptEmptyString(t *testing.T) {
	setTestKey(t)

	enc, err := Encrypt("")
	if err != nil || enc != "" {
		t.Errorf("Encrypt(\"\") = (%q, %v), want empty", enc, err)
	}
	dec, err := Decrypt("")
	if err != nil || dec != "" {
		t.Errorf("Decrypt(\"\") = (%q, %v), want empty", dec, err)
	}
}

func TestEncryptRandomNonce(t *testing.T) {
	setTestKey(t)

	a, err := Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two encryptions of the same input should differ")
	}
}

func TestDecryptRejectsTampered(t *testing.T) {
	setTestKey(t)

	enc, err := Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := base64.StdEncoding.DecodeString(enc)
	raw[len(raw)-1] ^= 0xFF
	if _, err := Decrypt(base64.StdEncoding.EncodeToString(raw)); err == nil {
		t.Error("tampered ciphertext should fail to decrypt")
	}

	if _, err := Decrypt("not base64!!"); err == nil {
		t.Error("invalid base64 should fail")
	}
	if _, err := Decrypt(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Error("truncated ciphertext should fail")
	}
}

func TestGetEncryptionKeyValidation(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")
	if _, err := GetEncryptionKey(); err == nil {
		t.Error("expected error when key unset")
	}

	t.Setenv("ENCRYPTION_KEY", "%%%not-base64%%%")
	if _, err := GetEncryptionKey(); err == nil {
		t.Error("expected error for invalid base64")
	}

	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("too short")))
	if _, err := GetEncryptionKey(); err == nil {
		t.Error("expected error for wrong key length")
	}
}

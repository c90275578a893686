package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s, err := NewFromBase64("", "sprinq-encryption")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	tok, err := s.Sign("migrator", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sub, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "migrator" {
		t.Fatalf("subject: got %q want %q", sub, "migrator")
	}
}

func TestNewFromBase64Seed(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	seed := base64.StdEncoding.EncodeToString(priv.Seed())

	s, err := NewFromBase64(seed, "sprinq-encryption")
	if err != nil {
		t.Fatalf("new signer from seed: %v", err)
	}
	tok, err := s.Sign("migrator", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.Verify(tok); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestNewFromBase64Rejects(t *testing.T) {
	if _, err := NewFromBase64("not base64!!!", "iss"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
	short := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	if _, err := NewFromBase64(short, "iss"); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestVerifyRejectsForeignToken(t *testing.T) {
	a, err := NewFromBase64("", "iss")
	if err != nil {
		t.Fatalf("signer a: %v", err)
	}
	b, err := NewFromBase64("", "iss")
	if err != nil {
		t.Fatalf("signer b: %v", err)
	}
	tok, err := a.Sign("migrator", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := b.Verify(tok); err == nil {
		t.Fatalf("expected verification failure under a different key")
	}
}

package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"shiftwatch/cmd/identity"
)

const testKeyHex = "707172737475767778797a7b7c7d7e7f808182838485868788898a8b8c8d8e8f"

func testCodecConfig() Config {
	cfg := DefaultConfig()
	cfg.TokenKeyHex = testKeyHex
	return cfg
}

func testClaims() Claims {
	return Claims{
		OwnerID:      "01HZX0000000000000000000AA",
		TenantID:     "01HZX0000000000000000000BB",
		Role:         identity.RoleAdmin,
		Purpose:      PurposeAccess,
		CredentialID: "01HZX0000000000000000000CC",
	}
}

func TestCodecIssueVerifyRoundtrip(t *testing.T) {
	codec, err := NewCodec(testCodecConfig())
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, exp, err := codec.Issue(testClaims(), now, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("exp = %v, want %v", exp, now.Add(time.Hour))
	}

	cl, err := codec.Verify(raw, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if cl.OwnerID != "01HZX0000000000000000000AA" {
		t.Fatalf("OwnerID = %q", cl.OwnerID)
	}
	if cl.TenantID != "01HZX0000000000000000000BB" {
		t.Fatalf("TenantID = %q", cl.TenantID)
	}
	if cl.Role != identity.RoleAdmin {
		t.Fatalf("Role = %q", cl.Role)
	}
	if cl.Purpose != PurposeAccess {
		t.Fatalf("Purpose = %q", cl.Purpose)
	}
	if cl.CredentialID != "01HZX0000000000000000000CC" {
		t.Fatalf("CredentialID = %q", cl.CredentialID)
	}
	if !cl.ExpiresAt.Equal(exp) {
		t.Fatalf("ExpiresAt = %v, want %v", cl.ExpiresAt, exp)
	}
}

func TestCodecVerifyExpired(t *testing.T) {
	codec, err := NewCodec(testCodecConfig())
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, _, err := codec.Issue(testClaims(), now, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := codec.Verify(raw, now.Add(2*time.Hour)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify after expiry: err = %v, want ErrTokenExpired", err)
	}

	// Within clock skew the token still verifies.
	if _, err := codec.Verify(raw, now.Add(time.Hour).Add(10*time.Second)); err != nil {
		t.Fatalf("Verify within skew: %v", err)
	}
}

func TestCodecVerifyTampered(t *testing.T) {
	codec, err := NewCodec(testCodecConfig())
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, _, err := codec.Issue(testClaims(), now, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := raw[:len(raw)-2] + "zz"
	if _, err := codec.Verify(tampered, now); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify tampered: err = %v, want ErrTokenInvalid", err)
	}

	if _, err := codec.Verify("not-a-token", now); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify garbage: err = %v, want ErrTokenInvalid", err)
	}
}

func TestCodecVerifyWrongKey(t *testing.T) {
	codec, err := NewCodec(testCodecConfig())
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	otherCfg := testCodecConfig()
	otherCfg.TokenKeyHex = strings.Repeat("42", 32)
	other, err := NewCodec(otherCfg)
	if err != nil {
		t.Fatalf("NewCodec other: %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, _, err := codec.Issue(testClaims(), now, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := other.Verify(raw, now); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify with wrong key: err = %v, want ErrTokenInvalid", err)
	}
}

func TestCodecPeekIgnoresExpiry(t *testing.T) {
	codec, err := NewCodec(testCodecConfig())
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, _, err := codec.Issue(testClaims(), now, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cl, err := codec.Peek(raw)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if cl.OwnerID == "" {
		t.Fatal("Peek returned empty claims")
	}

	// Peek still rejects tokens under a different key.
	otherCfg := testCodecConfig()
	otherCfg.TokenKeyHex = strings.Repeat("42", 32)
	other, err := NewCodec(otherCfg)
	if err != nil {
		t.Fatalf("NewCodec other: %v", err)
	}
	if _, err := other.Peek(raw); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Peek with wrong key: err = %v, want ErrTokenInvalid", err)
	}
}

package session

import (
	"encoding/hex"
	"time"
)

// Config defines all runtime configuration for the credential subsystem.
//
// It controls token TTLs, the rotation grace period, clock skew tolerance,
// the rotation-advice threshold, and the symmetric keys for token encryption
// and digest hashing.
//
// This struct is intentionally explicit and injected from the app config so
// that production deployments can tune security parameters without code
// changes, and so tests can construct it directly.
type Config struct {
	// Issuer is the value set in the "iss" claim of every token.
	Issuer string

	// AccessTokenTTL defines the lifetime of access tokens.
	AccessTokenTTL time.Duration

	// RefreshTTL defines the lifetime of refresh credentials.
	RefreshTTL time.Duration

	// GracePeriod is the window after rotation during which the superseded
	// refresh credential is still accepted as a duplicate, not as reuse.
	GracePeriod time.Duration

	// RotationHintWindow is the remaining-TTL threshold below which
	// NeedsRotationHint advises the client to refresh proactively.
	RotationHintWindow time.Duration

	// ClockSkew defines the allowed time skew during token validation.
	ClockSkew time.Duration

	// AccessCheckStore enables the stateful hardening mode: access tokens are
	// additionally checked against their paired credential record, making
	// revocation visible to in-flight access tokens at the cost of a store
	// read per request.
	AccessCheckStore bool

	// TokenKeyHex is the hex-encoded 32-byte symmetric key used for
	// PASETO v4.local tokens.
	TokenKeyHex string

	// DigestKey is the HMAC-SHA256 key for credential digests. When empty the
	// store falls back to plain SHA-256 (dev only; enforced at startup in
	// production).
	DigestKey []byte
}

// DefaultConfig returns a secure default configuration suitable for
// development. TTLs follow the product defaults: 24h access tokens with a 1h
// rotation-advice window, 7d refresh credentials, 15m rotation grace.
func DefaultConfig() Config {
	return Config{
		Issuer:             "shiftwatch",
		AccessTokenTTL:     24 * time.Hour,
		RefreshTTL:         7 * 24 * time.Hour,
		GracePeriod:        15 * time.Minute,
		RotationHintWindow: time.Hour,
		ClockSkew:          30 * time.Second,
	}
}

// Validate checks config invariants. Returns ErrConfig on violation.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return ErrConfig
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTTL <= 0 {
		return ErrConfig
	}
	if c.RefreshTTL < c.AccessTokenTTL {
		return ErrConfig
	}
	if c.GracePeriod < 0 || c.ClockSkew < 0 {
		return ErrConfig
	}
	if c.RotationHintWindow < 0 || c.RotationHintWindow >= c.AccessTokenTTL {
		return ErrConfig
	}

	key, err := hex.DecodeString(c.TokenKeyHex)
	if err != nil || len(key) != 32 {
		return ErrConfig
	}

	return nil
}

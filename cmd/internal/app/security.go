package app

import (
	"encoding/hex"
	"errors"

	"shiftwatch/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy.
//
// Production is strict: a real symmetric token key and an HMAC digest key of
// at least 32 bytes are mandatory. Development may run with an ephemeral
// token key and unkeyed SHA-256 digests.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.IsProduction() {
		return nil
	}

	key, err := hex.DecodeString(cfg.TokenKey)
	if err != nil || len(key) != 32 {
		return errors.New("security policy: production requires SHIFTWATCH_TOKEN_KEY (64 hex chars, 32 bytes)")
	}

	if err := token.ValidateKey([]byte(cfg.DigestKey), 32); err != nil {
		switch {
		case errors.Is(err, token.ErrKeyMissing):
			return errors.New("security policy: production requires SHIFTWATCH_DIGEST_KEY")
		case errors.Is(err, token.ErrKeyTooShort):
			return errors.New("security policy: SHIFTWATCH_DIGEST_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	return nil
}

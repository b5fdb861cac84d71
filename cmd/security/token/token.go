package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// DigestHex hashes a raw credential for server-side storage.
// Uses HMAC-SHA256 when key is non-empty, SHA-256 otherwise.
func DigestHex(s string, key []byte) string {
	if len(key) == 0 {
		return HashSHA256Hex(s)
	}
	return HashHMACSHA256Hex(s, key)
}

// ValidateKey enforces a minimum digest key length in bytes.
// A nil/empty key -> ErrKeyMissing. Shorter than minBytes -> ErrKeyTooShort.
func ValidateKey(key []byte, minBytes int) error {
	if len(key) == 0 {
		return ErrKeyMissing
	}
	if minBytes > 0 && len(key) < minBytes {
		return ErrKeyTooShort
	}
	return nil
}

// Package token provides credential digest primitives for Shiftwatch.
//
// It is the single source of truth for how raw bearer credentials are hashed
// before storage:
//   - HMAC-SHA256(token, key) when a digest key is configured.
//   - SHA-256(token) as a dev fallback when no key is present.
//
// Output is a stable 64-char hex string suitable for unique indexing. The
// key is injected by the caller; this package holds no state and reads no
// environment.
package token

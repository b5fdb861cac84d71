// Package session implements Shiftwatch's credential lifecycle.
//
// It provides a multi-device session model built on two token kinds:
// short-lived access tokens (stateless PASETO v4.local) and long-lived
// refresh credentials whose digests are persisted in Postgres and are
// revocable per credential and per owner. Refresh rotation creates a
// successor credential; presenting a superseded credential outside the
// rotation grace period is treated as reuse and tears down every
// credential of the owner.
//
// Raw tokens are never stored. The server keeps only an HMAC-SHA256 digest
// (SHA-256 in dev when no digest key is configured).
//
// Transport (HTTP) integration is intentionally out of scope here.
package session

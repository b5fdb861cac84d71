package session

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenInvalid is returned when a token is malformed or fails
	// cryptographic verification. Callers must surface it to clients as a
	// generic unauthorized response, never as a distinct reason.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned when a token verifies but is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrUnauthenticated is returned when no valid session could be
	// established for a presented token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrCredentialNotFound is returned when a digest does not match any
	// stored credential.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrExpired is returned when the matched credential is expired but was
	// never revoked. Plain expiry, not reuse.
	ErrExpired = errors.New("credential expired")

	// ErrSessionInvalidated is returned when refresh reuse is detected.
	// By the time the caller sees it, every credential of the owner has
	// already been revoked.
	ErrSessionInvalidated = errors.New("session invalidated")

	// ErrDigestConflict is returned when a new credential would collide with
	// an existing secret digest.
	ErrDigestConflict = errors.New("credential digest conflict")

	// ErrStorageUnavailable is the kind wrapped by all backing-store failures.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// StorageError wraps a backing-store failure with the failing operation.
// It unwraps to ErrStorageUnavailable so callers can map it to a 5xx.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorageUnavailable, e.Err)
}

func (e StorageError) Unwrap() error { return ErrStorageUnavailable }

func storageErr(op string, err error) error {
	return StorageError{Op: op, Err: err}
}

// IsStorageUnavailable reports whether err represents a backing-store failure.
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

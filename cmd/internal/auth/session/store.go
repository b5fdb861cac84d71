package session

import (
	"context"
	"net"
	"time"
)

// RequestMeta describes the client request a credential was issued from.
// All fields are optional and informational.
type RequestMeta struct {
	IP        net.IP
	UserAgent string
}

// Credential mirrors the shiftwatch.credentials row: one refresh credential,
// bound to one device session of one owner.
//
// The raw refresh token never appears here; only its keyed digest is stored.
type Credential struct {
	ID           string
	OwnerID      string
	TenantID     string
	SecretDigest string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	RotatedAt    *time.Time
	Revoked      bool
	LastUsedAt   *time.Time
	IP           net.IP
	UserAgent    string
}

// Active reports whether the credential is live at the given time: not
// revoked, not rotated, not expired.
func (c Credential) Active(now time.Time) bool {
	return !c.Revoked && c.RotatedAt == nil && now.Before(c.ExpiresAt)
}

// InGrace reports whether a rotated credential is still within the duplicate
// acceptance window after its rotation.
func (c Credential) InGrace(now time.Time, grace time.Duration) bool {
	return c.RotatedAt != nil && now.Sub(*c.RotatedAt) <= grace
}

// CreateInput carries all fields for a new credential row. The ID is minted
// by the caller so the token can carry it as a claim before the row exists.
type CreateInput struct {
	ID           string
	OwnerID      string
	TenantID     string
	SecretDigest string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	Meta         RequestMeta
}

// Store abstracts persistence for refresh credentials.
//
// Implementations must make MarkRotated a compare-and-set: it succeeds for at
// most one caller per credential, so concurrent rotations of the same
// credential cannot both mint successors.
type Store interface {
	// Create inserts a new credential row. A digest collision returns
	// ErrDigestConflict.
	Create(ctx context.Context, in CreateInput) error

	// FindByDigest loads a credential by its secret digest.
	// Missing -> ErrCredentialNotFound.
	FindByDigest(ctx context.Context, digest string) (Credential, error)

	// GetByID loads a credential by ID. Missing -> ErrCredentialNotFound.
	GetByID(ctx context.Context, id string) (Credential, error)

	// FindActiveByOwner lists the owner's live credentials, newest first.
	FindActiveByOwner(ctx context.Context, now time.Time, ownerID string) ([]Credential, error)

	// MarkRotated stamps rotated_at on a live credential. It returns
	// ok=false with a nil error when the credential was already rotated or
	// revoked (the CAS lost).
	MarkRotated(ctx context.Context, now time.Time, id string) (ok bool, err error)

	// Touch updates last_used_at.
	Touch(ctx context.Context, now time.Time, id string) error

	// Revoke revokes a single credential. Revoking an already revoked or
	// missing credential is a no-op.
	Revoke(ctx context.Context, now time.Time, id string) error

	// RevokeAllForOwner revokes every non-revoked credential of the owner and
	// returns how many rows changed.
	RevokeAllForOwner(ctx context.Context, now time.Time, ownerID string) (int64, error)

	// SweepExpired deletes credentials whose expiry is older than the cutoff,
	// plus revoked credentials unused since the cutoff, and returns how many
	// rows were removed.
	SweepExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

package session

import (
	"context"
	"errors"
	"time"

	"shiftwatch/cmd/identity"
	"shiftwatch/cmd/security/token"
)

// AccountResolver is the slice of identity.Directory the guard depends on.
// Rotation re-reads the account so role changes propagate into new tokens.
type AccountResolver interface {
	FindByID(ctx context.Context, id string) (identity.Account, error)
}

// TokenPair is the result of issuing or rotating a session.
type TokenPair struct {
	CredentialID string
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// Guard implements the high-level session operations for Shiftwatch.
//
// It issues token pairs, authenticates access tokens, performs refresh
// rotation with reuse detection, and supports per-device and per-owner
// revocation. All operations take the current time as a parameter; the guard
// holds no mutable state of its own.
type Guard struct {
	cfg      Config
	codec    *Codec
	store    Store
	accounts AccountResolver
}

// NewGuard validates the config and constructs a Guard.
func NewGuard(cfg Config, store Store, accounts AccountResolver) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := NewCodec(cfg)
	if err != nil {
		return nil, err
	}
	return &Guard{cfg: cfg, codec: codec, store: store, accounts: accounts}, nil
}

// Codec exposes the guard's token codec for callers that only need
// cryptographic operations, such as the rotation-advice check.
func (g *Guard) Codec() *Codec { return g.codec }

// Issue creates a new device session for the account and returns a fresh
// token pair. The refresh token is itself a signed token; only its keyed
// digest is persisted.
func (g *Guard) Issue(ctx context.Context, now time.Time, acct identity.Account, meta RequestMeta) (TokenPair, error) {
	return g.issuePair(ctx, now, acct, meta)
}

// Authenticate verifies an access token and returns its claims.
//
// By default verification is purely cryptographic. With AccessCheckStore
// enabled the paired credential is also loaded, so revocation becomes visible
// to in-flight access tokens.
func (g *Guard) Authenticate(ctx context.Context, now time.Time, raw string) (Claims, error) {
	cl, err := g.codec.Verify(raw, now)
	if err != nil {
		return Claims{}, err
	}
	if cl.Purpose != PurposeAccess {
		return Claims{}, ErrTokenInvalid
	}

	if !g.cfg.AccessCheckStore {
		return cl, nil
	}

	cred, err := g.store.GetByID(ctx, cl.CredentialID)
	if errors.Is(err, ErrCredentialNotFound) {
		return Claims{}, ErrUnauthenticated
	}
	if err != nil {
		return Claims{}, err
	}
	if cred.OwnerID != cl.OwnerID {
		return Claims{}, ErrTokenInvalid
	}
	if cred.Revoked {
		return Claims{}, ErrUnauthenticated
	}
	// A rotated credential keeps honoring its paired access token through the
	// grace window, so the rotation race never breaks a live device.
	if cred.RotatedAt != nil && !cred.InGrace(now, g.cfg.GracePeriod) {
		return Claims{}, ErrUnauthenticated
	}

	// Store-backed checks double as activity tracking for the devices list.
	_ = g.store.Touch(ctx, now, cred.ID)

	return cl, nil
}

// Rotate exchanges a refresh token for a fresh token pair.
//
// State machine, in order:
//   - token malformed or expired: ErrTokenInvalid / ErrTokenExpired.
//   - digest not found: the backing row is gone (revoked and swept, or never
//     ours); treated as reuse.
//   - credential expired but never revoked: ErrExpired. Plain expiry, not an
//     incident.
//   - revoked, or rotated outside the grace window: reuse. Every credential
//     of the owner is revoked, then ErrSessionInvalidated.
//   - rotated within the grace window: duplicate delivery of a legitimate
//     rotation; a fresh pair is issued without touching the old row again.
//   - active: MarkRotated compare-and-set, then a successor pair. Losing the
//     CAS re-reads the row and falls back into the grace handling, so two
//     concurrent rotations of the same credential both succeed.
func (g *Guard) Rotate(ctx context.Context, now time.Time, raw string, meta RequestMeta) (TokenPair, error) {
	cl, err := g.codec.Verify(raw, now)
	if err != nil {
		return TokenPair{}, err
	}
	if cl.Purpose != PurposeRefresh {
		return TokenPair{}, ErrTokenInvalid
	}

	digest := token.DigestHex(raw, g.cfg.DigestKey)

	cred, err := g.store.FindByDigest(ctx, digest)
	if errors.Is(err, ErrCredentialNotFound) {
		return TokenPair{}, g.invalidate(ctx, now, cl.OwnerID)
	}
	if err != nil {
		return TokenPair{}, err
	}
	if cred.OwnerID != cl.OwnerID || cred.ID != cl.CredentialID {
		return TokenPair{}, ErrTokenInvalid
	}

	if !cred.Revoked && cred.RotatedAt == nil && !now.Before(cred.ExpiresAt) {
		return TokenPair{}, ErrExpired
	}
	if cred.Revoked {
		return TokenPair{}, g.invalidate(ctx, now, cred.OwnerID)
	}
	if cred.RotatedAt != nil {
		if cred.InGrace(now, g.cfg.GracePeriod) {
			return g.reissue(ctx, now, cl.OwnerID, meta)
		}
		return TokenPair{}, g.invalidate(ctx, now, cred.OwnerID)
	}

	ok, err := g.store.MarkRotated(ctx, now, cred.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		// Lost the rotation race to a concurrent caller.
		cred, err = g.store.GetByID(ctx, cred.ID)
		if err != nil {
			return TokenPair{}, err
		}
		if cred.Revoked || !cred.InGrace(now, g.cfg.GracePeriod) {
			return TokenPair{}, g.invalidate(ctx, now, cred.OwnerID)
		}
	}

	return g.reissue(ctx, now, cl.OwnerID, meta)
}

// Logout revokes the credential behind a refresh token. It is idempotent:
// unusable tokens and already-revoked or missing credentials are a no-op.
func (g *Guard) Logout(ctx context.Context, now time.Time, raw string) error {
	cl, err := g.codec.Peek(raw)
	if err != nil || cl.Purpose != PurposeRefresh {
		return nil
	}

	digest := token.DigestHex(raw, g.cfg.DigestKey)

	cred, err := g.store.FindByDigest(ctx, digest)
	if errors.Is(err, ErrCredentialNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if cred.OwnerID != cl.OwnerID {
		return nil
	}

	return g.store.Revoke(ctx, now, cred.ID)
}

// LogoutAll revokes every credential of the owner and returns how many were
// revoked.
func (g *Guard) LogoutAll(ctx context.Context, now time.Time, ownerID string) (int64, error) {
	return g.store.RevokeAllForOwner(ctx, now, ownerID)
}

// ActiveSessions lists the owner's live credentials, newest first.
func (g *Guard) ActiveSessions(ctx context.Context, now time.Time, ownerID string) ([]Credential, error) {
	return g.store.FindActiveByOwner(ctx, now, ownerID)
}

// Touch updates last_used_at on a credential, best-effort.
func (g *Guard) Touch(ctx context.Context, now time.Time, credentialID string) error {
	return g.store.Touch(ctx, now, credentialID)
}

// NeedsRotationHint reports whether the client should refresh proactively:
// the access token is authentic and its remaining TTL is below the hint
// window. Any parse failure degrades to false; the hint never authorizes.
func (g *Guard) NeedsRotationHint(raw string, now time.Time) bool {
	cl, err := g.codec.Peek(raw)
	if err != nil || cl.Purpose != PurposeAccess {
		return false
	}
	return cl.ExpiresAt.Sub(now) <= g.cfg.RotationHintWindow
}

// invalidate revokes every credential of the owner and reports the incident.
func (g *Guard) invalidate(ctx context.Context, now time.Time, ownerID string) error {
	if _, err := g.store.RevokeAllForOwner(ctx, now, ownerID); err != nil {
		return err
	}
	return ErrSessionInvalidated
}

func (g *Guard) reissue(ctx context.Context, now time.Time, ownerID string, meta RequestMeta) (TokenPair, error) {
	acct, err := g.accounts.FindByID(ctx, ownerID)
	if err != nil {
		if identity.IsNotFound(err) {
			return TokenPair{}, ErrUnauthenticated
		}
		return TokenPair{}, storageErr("guard.reissue", err)
	}
	return g.issuePair(ctx, now, acct, meta)
}

func (g *Guard) issuePair(ctx context.Context, now time.Time, acct identity.Account, meta RequestMeta) (TokenPair, error) {
	credentialID, err := identity.NewULID(now)
	if err != nil {
		return TokenPair{}, err
	}

	base := Claims{
		OwnerID:      acct.ID,
		TenantID:     acct.CompanyID,
		Role:         acct.Role,
		CredentialID: credentialID,
	}

	refreshClaims := base
	refreshClaims.Purpose = PurposeRefresh
	refreshRaw, refreshExp, err := g.codec.Issue(refreshClaims, now, g.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	err = g.store.Create(ctx, CreateInput{
		ID:           credentialID,
		OwnerID:      acct.ID,
		TenantID:     acct.CompanyID,
		SecretDigest: token.DigestHex(refreshRaw, g.cfg.DigestKey),
		IssuedAt:     now,
		ExpiresAt:    refreshExp,
		Meta:         meta,
	})
	if err != nil {
		return TokenPair{}, err
	}

	accessClaims := base
	accessClaims.Purpose = PurposeAccess
	accessRaw, accessExp, err := g.codec.Issue(accessClaims, now, g.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		CredentialID: credentialID,
		AccessToken:  accessRaw,
		AccessExp:    accessExp,
		RefreshToken: refreshRaw,
		RefreshExp:   refreshExp,
	}, nil
}

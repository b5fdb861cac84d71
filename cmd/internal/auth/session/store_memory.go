package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. It backs db-disabled
// development mode and the unit tests; semantics match PostgresStore,
// including the compare-and-set in MarkRotated.
type MemoryStore struct {
	mu       sync.Mutex
	byID     map[string]*Credential
	byDigest map[string]string // digest -> credential id
}

// NewMemoryStore constructs an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]*Credential),
		byDigest: make(map[string]string),
	}
}

// Create inserts a new credential.
func (s *MemoryStore) Create(ctx context.Context, in CreateInput) error {
	if err := ctx.Err(); err != nil {
		return storageErr("store.Create", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byDigest[in.SecretDigest]; exists {
		return ErrDigestConflict
	}

	c := &Credential{
		ID:           in.ID,
		OwnerID:      in.OwnerID,
		TenantID:     in.TenantID,
		SecretDigest: in.SecretDigest,
		IssuedAt:     in.IssuedAt,
		ExpiresAt:    in.ExpiresAt,
		IP:           in.Meta.IP,
		UserAgent:    in.Meta.UserAgent,
	}
	s.byID[in.ID] = c
	s.byDigest[in.SecretDigest] = in.ID

	return nil
}

// FindByDigest loads a credential by its secret digest.
func (s *MemoryStore) FindByDigest(ctx context.Context, digest string) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, storageErr("store.FindByDigest", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byDigest[digest]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return *s.byID[id], nil
}

// GetByID loads a credential by ID.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, storageErr("store.GetByID", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return *c, nil
}

// FindActiveByOwner lists the owner's live credentials, newest first.
func (s *MemoryStore) FindActiveByOwner(ctx context.Context, now time.Time, ownerID string) ([]Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("store.FindActiveByOwner", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Credential
	for _, c := range s.byID {
		if c.OwnerID == ownerID && c.Active(now) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})

	return out, nil
}

// MarkRotated stamps rotated_at on a live credential. The check-and-stamp
// happens under the store lock, so at most one concurrent rotation wins.
func (s *MemoryStore) MarkRotated(ctx context.Context, now time.Time, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storageErr("store.MarkRotated", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok || c.Revoked || c.RotatedAt != nil {
		return false, nil
	}

	rotated := now
	c.RotatedAt = &rotated
	c.LastUsedAt = &rotated

	return true, nil
}

// Touch updates last_used_at.
func (s *MemoryStore) Touch(ctx context.Context, now time.Time, id string) error {
	if err := ctx.Err(); err != nil {
		return storageErr("store.Touch", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.byID[id]; ok {
		used := now
		c.LastUsedAt = &used
	}
	return nil
}

// Revoke revokes a single credential (idempotent).
func (s *MemoryStore) Revoke(ctx context.Context, now time.Time, id string) error {
	if err := ctx.Err(); err != nil {
		return storageErr("store.Revoke", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok || c.Revoked {
		return nil
	}
	c.Revoked = true
	if c.LastUsedAt == nil {
		used := now
		c.LastUsedAt = &used
	}

	return nil
}

// RevokeAllForOwner revokes every non-revoked credential of the owner.
func (s *MemoryStore) RevokeAllForOwner(ctx context.Context, now time.Time, ownerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storageErr("store.RevokeAllForOwner", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, c := range s.byID {
		if c.OwnerID != ownerID || c.Revoked {
			continue
		}
		c.Revoked = true
		if c.LastUsedAt == nil {
			used := now
			c.LastUsedAt = &used
		}
		n++
	}

	return n, nil
}

// SweepExpired deletes credentials that expired before the cutoff, plus
// revoked credentials not used since the cutoff.
func (s *MemoryStore) SweepExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storageErr("store.SweepExpired", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, c := range s.byID {
		stale := c.ExpiresAt.Before(cutoff)
		if !stale && c.Revoked {
			last := c.IssuedAt
			if c.LastUsedAt != nil {
				last = *c.LastUsedAt
			}
			stale = last.Before(cutoff)
		}
		if stale {
			delete(s.byDigest, c.SecretDigest)
			delete(s.byID, id)
			n++
		}
	}

	return n, nil
}

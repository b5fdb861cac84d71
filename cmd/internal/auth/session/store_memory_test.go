package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func testCredentialInput(id, owner, digest string, now time.Time) CreateInput {
	return CreateInput{
		ID:           id,
		OwnerID:      owner,
		TenantID:     "tenant-1",
		SecretDigest: digest,
		IssuedAt:     now,
		ExpiresAt:    now.Add(7 * 24 * time.Hour),
	}
}

func TestMemoryStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()

	if err := s.Create(ctx, testCredentialInput("cred-1", "owner-1", "digest-1", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	c, err := s.FindByDigest(ctx, "digest-1")
	if err != nil {
		t.Fatalf("FindByDigest: %v", err)
	}
	if c.ID != "cred-1" || c.OwnerID != "owner-1" {
		t.Fatalf("unexpected credential %+v", c)
	}
	if !c.Active(now) {
		t.Fatal("fresh credential should be active")
	}

	if _, err := s.FindByDigest(ctx, "missing"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("FindByDigest missing: err = %v", err)
	}
	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("GetByID missing: err = %v", err)
	}

	if err := s.Create(ctx, testCredentialInput("cred-2", "owner-1", "digest-1", now)); !errors.Is(err, ErrDigestConflict) {
		t.Fatalf("Create duplicate digest: err = %v, want ErrDigestConflict", err)
	}
}

func TestMemoryStoreMarkRotatedWinsOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()

	if err := s.Create(ctx, testCredentialInput("cred-1", "owner-1", "digest-1", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const callers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.MarkRotated(ctx, now, "cred-1")
			if err != nil {
				t.Errorf("MarkRotated: %v", err)
				return
			}
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	var won int
	for ok := range wins {
		if ok {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("MarkRotated winners = %d, want exactly 1", won)
	}

	c, err := s.GetByID(ctx, "cred-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if c.RotatedAt == nil || !c.RotatedAt.Equal(now) {
		t.Fatalf("RotatedAt = %v, want %v", c.RotatedAt, now)
	}
	if c.Active(now) {
		t.Fatal("rotated credential must not be active")
	}
	if !c.InGrace(now.Add(10*time.Minute), 15*time.Minute) {
		t.Fatal("credential should be in grace 10m after rotation")
	}
	if c.InGrace(now.Add(20*time.Minute), 15*time.Minute) {
		t.Fatal("credential should be out of grace 20m after rotation")
	}

	// Rotating a revoked credential also loses.
	ok, err := s.MarkRotated(ctx, now, "cred-1")
	if err != nil || ok {
		t.Fatalf("MarkRotated again = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestMemoryStoreRevokeIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()

	if err := s.Create(ctx, testCredentialInput("cred-1", "owner-1", "digest-1", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Revoke(ctx, now, "cred-1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := s.Revoke(ctx, now, "cred-1"); err != nil {
		t.Fatalf("Revoke twice: %v", err)
	}
	if err := s.Revoke(ctx, now, "missing"); err != nil {
		t.Fatalf("Revoke missing: %v", err)
	}

	c, err := s.GetByID(ctx, "cred-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !c.Revoked {
		t.Fatal("credential should be revoked")
	}
}

func TestMemoryStoreRevokeAllForOwner(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()

	for _, in := range []CreateInput{
		testCredentialInput("cred-1", "owner-1", "digest-1", now),
		testCredentialInput("cred-2", "owner-1", "digest-2", now.Add(time.Second)),
		testCredentialInput("cred-3", "owner-2", "digest-3", now),
	} {
		if err := s.Create(ctx, in); err != nil {
			t.Fatalf("Create %s: %v", in.ID, err)
		}
	}

	n, err := s.RevokeAllForOwner(ctx, now, "owner-1")
	if err != nil {
		t.Fatalf("RevokeAllForOwner: %v", err)
	}
	if n != 2 {
		t.Fatalf("revoked = %d, want 2", n)
	}

	active, err := s.FindActiveByOwner(ctx, now, "owner-1")
	if err != nil {
		t.Fatalf("FindActiveByOwner: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("owner-1 active = %d, want 0", len(active))
	}

	other, err := s.FindActiveByOwner(ctx, now, "owner-2")
	if err != nil {
		t.Fatalf("FindActiveByOwner owner-2: %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("owner-2 active = %d, want 1", len(other))
	}

	// Second pass revokes nothing.
	n, err = s.RevokeAllForOwner(ctx, now, "owner-1")
	if err != nil || n != 0 {
		t.Fatalf("RevokeAllForOwner again = (%d, %v), want (0, nil)", n, err)
	}
}

func TestMemoryStoreFindActiveByOwnerOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()

	for _, in := range []CreateInput{
		testCredentialInput("old", "owner-1", "digest-1", now),
		testCredentialInput("new", "owner-1", "digest-2", now.Add(time.Minute)),
	} {
		if err := s.Create(ctx, in); err != nil {
			t.Fatalf("Create %s: %v", in.ID, err)
		}
	}

	active, err := s.FindActiveByOwner(ctx, now.Add(time.Minute), "owner-1")
	if err != nil {
		t.Fatalf("FindActiveByOwner: %v", err)
	}
	if len(active) != 2 || active[0].ID != "new" || active[1].ID != "old" {
		t.Fatalf("unexpected order: %+v", active)
	}
}

func TestMemoryStoreSweepExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()

	expired := testCredentialInput("expired", "owner-1", "digest-1", now.Add(-10*24*time.Hour))
	live := testCredentialInput("live", "owner-1", "digest-2", now)
	revoked := testCredentialInput("revoked", "owner-1", "digest-3", now.Add(-2*24*time.Hour))

	for _, in := range []CreateInput{expired, live, revoked} {
		if err := s.Create(ctx, in); err != nil {
			t.Fatalf("Create %s: %v", in.ID, err)
		}
	}
	if err := s.Revoke(ctx, now.Add(-2*24*time.Hour), "revoked"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	n, err := s.SweepExpired(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 2 {
		t.Fatalf("swept = %d, want 2", n)
	}

	if _, err := s.GetByID(ctx, "expired"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expired credential should be gone, err = %v", err)
	}
	if _, err := s.GetByID(ctx, "revoked"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("stale revoked credential should be gone, err = %v", err)
	}
	if _, err := s.GetByID(ctx, "live"); err != nil {
		t.Fatalf("live credential should remain, err = %v", err)
	}
}

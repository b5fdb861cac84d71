package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const credentialColumns = `
	id, owner_id, tenant_id, secret_digest,
	issued_at, expires_at, rotated_at, revoked,
	last_used_at, ip, user_agent`

// PostgresStore implements Store using PostgreSQL (shiftwatch.credentials).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed credential store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new credential row.
func (s *PostgresStore) Create(ctx context.Context, in CreateInput) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO shiftwatch.credentials (
			id, owner_id, tenant_id, secret_digest,
			issued_at, expires_at, rotated_at, revoked,
			last_used_at, ip, user_agent
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, NULL, FALSE,
			NULL, $7, $8
		)
	`, in.ID, in.OwnerID, in.TenantID, in.SecretDigest,
		in.IssuedAt, in.ExpiresAt, in.Meta.IP, nullIfEmpty(in.Meta.UserAgent))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDigestConflict
		}
		return storageErr("store.Create", err)
	}

	return nil
}

// FindByDigest loads a credential by its secret digest.
func (s *PostgresStore) FindByDigest(ctx context.Context, digest string) (Credential, error) {
	return s.queryOne(ctx, "store.FindByDigest", `
		SELECT `+credentialColumns+`
		FROM shiftwatch.credentials
		WHERE secret_digest = $1
	`, digest)
}

// GetByID loads a credential by ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Credential, error) {
	return s.queryOne(ctx, "store.GetByID", `
		SELECT `+credentialColumns+`
		FROM shiftwatch.credentials
		WHERE id = $1
	`, id)
}

// FindActiveByOwner lists the owner's live credentials, newest first.
func (s *PostgresStore) FindActiveByOwner(ctx context.Context, now time.Time, ownerID string) ([]Credential, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+credentialColumns+`
		FROM shiftwatch.credentials
		WHERE owner_id = $1
		  AND NOT revoked
		  AND rotated_at IS NULL
		  AND expires_at > $2
		ORDER BY issued_at DESC
	`, ownerID, now)
	if err != nil {
		return nil, storageErr("store.FindActiveByOwner", err)
	}
	defer rows.Close()

	var out []Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, storageErr("store.FindActiveByOwner", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("store.FindActiveByOwner", err)
	}

	return out, nil
}

// MarkRotated stamps rotated_at on a live credential via a conditional
// update. The WHERE clause is the compare-and-set: only a credential that is
// still unrotated and unrevoked matches, so at most one concurrent rotation
// wins.
func (s *PostgresStore) MarkRotated(ctx context.Context, now time.Time, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE shiftwatch.credentials
		SET rotated_at = $2,
		    last_used_at = $2
		WHERE id = $1
		  AND rotated_at IS NULL
		  AND NOT revoked
	`, id, now)
	if err != nil {
		return false, storageErr("store.MarkRotated", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Touch updates last_used_at.
func (s *PostgresStore) Touch(ctx context.Context, now time.Time, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE shiftwatch.credentials
		SET last_used_at = $2
		WHERE id = $1
	`, id, now)
	if err != nil {
		return storageErr("store.Touch", err)
	}
	return nil
}

// Revoke revokes a single credential (idempotent).
func (s *PostgresStore) Revoke(ctx context.Context, now time.Time, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE shiftwatch.credentials
		SET revoked = TRUE,
		    last_used_at = COALESCE(last_used_at, $2)
		WHERE id = $1
		  AND NOT revoked
	`, id, now)
	if err != nil {
		return storageErr("store.Revoke", err)
	}
	return nil
}

// RevokeAllForOwner revokes every non-revoked credential of the owner.
func (s *PostgresStore) RevokeAllForOwner(ctx context.Context, now time.Time, ownerID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE shiftwatch.credentials
		SET revoked = TRUE,
		    last_used_at = COALESCE(last_used_at, $2)
		WHERE owner_id = $1
		  AND NOT revoked
	`, ownerID, now)
	if err != nil {
		return 0, storageErr("store.RevokeAllForOwner", err)
	}
	return tag.RowsAffected(), nil
}

// SweepExpired deletes credentials that expired before the cutoff, plus
// revoked credentials not used since the cutoff. A missing row and a revoked
// row produce the same refresh outcome, so sweeping revoked rows is safe.
func (s *PostgresStore) SweepExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM shiftwatch.credentials
		WHERE expires_at < $1
		   OR (revoked AND COALESCE(last_used_at, issued_at) < $1)
	`, cutoff)
	if err != nil {
		return 0, storageErr("store.SweepExpired", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) queryOne(ctx context.Context, op, query string, arg any) (Credential, error) {
	row := s.pool.QueryRow(ctx, query, arg)

	c, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credential{}, ErrCredentialNotFound
	}
	if err != nil {
		return Credential{}, storageErr(op, err)
	}

	return c, nil
}

func scanCredential(row pgx.Row) (Credential, error) {
	var (
		c  Credential
		ua *string
	)
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.TenantID,
		&c.SecretDigest,
		&c.IssuedAt,
		&c.ExpiresAt,
		&c.RotatedAt,
		&c.Revoked,
		&c.LastUsedAt,
		&c.IP,
		&ua,
	)
	if err != nil {
		return Credential{}, err
	}
	if ua != nil {
		c.UserAgent = *ua
	}

	return c, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

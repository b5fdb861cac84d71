package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory implements Directory over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Schema identifiers are validated to avoid SQL injection via identifiers.
//   - Signup is atomic: company + admin account in one transaction.
//   - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresDirectory struct {
	pool   *pgxpool.Pool
	schema string

	// dummyHash is verified against when the email is unknown, so that
	// known and unknown emails cost the same on login.
	dummyHash string
}

// PostgresOption configures the directory.
type PostgresOption func(*PostgresDirectory) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the directory (default "shiftwatch").
func WithSchema(schema string) PostgresOption {
	return func(d *PostgresDirectory) error {
		schema = strings.TrimSpace(schema)
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		d.schema = schema
		return nil
	}
}

// NewPostgresDirectory constructs a PostgresDirectory with secure defaults.
func NewPostgresDirectory(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresDirectory, error) {
	d := &PostgresDirectory{
		pool:   pool,
		schema: "shiftwatch",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	hash, err := HashPassword("dummy-password-for-timing-only", DefaultArgon2idParams())
	if err != nil {
		return nil, err
	}
	d.dummyHash = hash

	return d, nil
}

func (d *PostgresDirectory) table(name string) string {
	return fmt.Sprintf("%q.%q", d.schema, name)
}

// FindByID loads an account by id.
func (d *PostgresDirectory) FindByID(ctx context.Context, id string) (Account, error) {
	const op = "identity.FindByID"

	q := fmt.Sprintf(`
		SELECT id, company_id, name, email, role, created_at
		FROM %s
		WHERE id = $1
	`, d.table("users"))

	var a Account
	err := d.pool.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.CompanyID, &a.Name, &a.Email, &a.Role, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

// VerifyCredentials checks email+password against the stored Argon2id hash.
func (d *PostgresDirectory) VerifyCredentials(ctx context.Context, email, password string) (Account, error) {
	const op = "identity.VerifyCredentials"

	q := fmt.Sprintf(`
		SELECT id, company_id, name, email, role, created_at, password_hash
		FROM %s
		WHERE email_norm = $1
	`, d.table("users"))

	var (
		a    Account
		hash string
	)
	err := d.pool.QueryRow(ctx, q, NormalizeEmail(email)).Scan(
		&a.ID, &a.CompanyID, &a.Name, &a.Email, &a.Role, &a.CreatedAt, &hash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// Timing resistance: burn a verify even when the email is unknown.
		_, _ = VerifyPassword(password, d.dummyHash)
		return Account{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}
	if err != nil {
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := VerifyPassword(password, hash)
	if err != nil || !ok {
		return Account{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}

	return a, nil
}

// Signup creates a company and its admin account in one transaction.
func (d *PostgresDirectory) Signup(ctx context.Context, in SignupInput) (SignupResult, error) {
	const op = "identity.Signup"

	companyName := strings.TrimSpace(in.CompanyName)
	ownerName := strings.TrimSpace(in.OwnerName)
	emailNorm := NormalizeEmail(in.OwnerEmail)
	if companyName == "" || ownerName == "" || emailNorm == "" {
		return SignupResult{}, OpError{Op: op, Kind: ErrInvalidInput}
	}

	hash, err := HashPassword(in.Password, DefaultArgon2idParams())
	if err != nil {
		return SignupResult{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	companyID, err := NewULID(in.Now)
	if err != nil {
		return SignupResult{}, fmt.Errorf("%s: %w", op, err)
	}
	accountID, err := NewULID(in.Now)
	if err != nil {
		return SignupResult{}, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return SignupResult{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	qc := fmt.Sprintf(`
		INSERT INTO %s (id, name, created_at)
		VALUES ($1, $2, $3)
	`, d.table("companies"))
	if _, err := tx.Exec(ctx, qc, companyID, companyName, in.Now); err != nil {
		return SignupResult{}, fmt.Errorf("%s: %w", op, err)
	}

	qu := fmt.Sprintf(`
		INSERT INTO %s (id, company_id, name, email, email_norm, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.table("users"))
	_, err = tx.Exec(ctx, qu,
		accountID, companyID, ownerName, strings.TrimSpace(in.OwnerEmail), emailNorm,
		hash, string(RoleAdmin), in.Now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return SignupResult{}, ConflictError{Op: op, Field: "email"}
		}
		return SignupResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return SignupResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return SignupResult{
		Company: Company{ID: companyID, Name: companyName, CreatedAt: in.Now},
		Account: Account{
			ID:        accountID,
			CompanyID: companyID,
			Name:      ownerName,
			Email:     strings.TrimSpace(in.OwnerEmail),
			Role:      RoleAdmin,
			CreatedAt: in.Now,
		},
	}, nil
}

// GetCompany loads a company by id.
func (d *PostgresDirectory) GetCompany(ctx context.Context, id string) (Company, error) {
	const op = "identity.GetCompany"

	q := fmt.Sprintf(`
		SELECT id, name, created_at
		FROM %s
		WHERE id = $1
	`, d.table("companies"))

	var c Company
	err := d.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return Company{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

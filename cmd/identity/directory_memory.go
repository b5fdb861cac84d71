package identity

import (
	"context"
	"sync"
)

// MemoryDirectory is a dev-only fallback when no database is configured.
// It keeps accounts in process memory with the same semantics as the
// Postgres directory, including timing-resistant credential checks.
type MemoryDirectory struct {
	mu        sync.RWMutex
	accounts  map[string]Account // id -> account
	hashes    map[string]string  // account id -> password hash
	byEmail   map[string]string  // normalized email -> account id
	companies map[string]Company // id -> company

	dummyHash string
}

// NewMemoryDirectory constructs an empty in-memory directory.
func NewMemoryDirectory() (*MemoryDirectory, error) {
	hash, err := HashPassword("dummy-password-for-timing-only", DefaultArgon2idParams())
	if err != nil {
		return nil, err
	}
	return &MemoryDirectory{
		accounts:  make(map[string]Account),
		hashes:    make(map[string]string),
		byEmail:   make(map[string]string),
		companies: make(map[string]Company),
		dummyHash: hash,
	}, nil
}

// FindByID loads an account by id.
func (d *MemoryDirectory) FindByID(ctx context.Context, id string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	a, ok := d.accounts[id]
	if !ok {
		return Account{}, OpError{Op: "identity.FindByID", Kind: ErrNotFound}
	}
	return a, nil
}

// VerifyCredentials checks email+password.
func (d *MemoryDirectory) VerifyCredentials(ctx context.Context, email, password string) (Account, error) {
	const op = "identity.VerifyCredentials"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	d.mu.RLock()
	id, ok := d.byEmail[NormalizeEmail(email)]
	var (
		a    Account
		hash string
	)
	if ok {
		a = d.accounts[id]
		hash = d.hashes[id]
	}
	d.mu.RUnlock()

	if !ok {
		_, _ = VerifyPassword(password, d.dummyHash)
		return Account{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}

	match, err := VerifyPassword(password, hash)
	if err != nil || !match {
		return Account{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}
	return a, nil
}

// Signup creates a company and its admin account.
func (d *MemoryDirectory) Signup(ctx context.Context, in SignupInput) (SignupResult, error) {
	const op = "identity.Signup"
	if err := ctx.Err(); err != nil {
		return SignupResult{}, err
	}

	emailNorm := NormalizeEmail(in.OwnerEmail)
	if in.CompanyName == "" || in.OwnerName == "" || emailNorm == "" {
		return SignupResult{}, OpError{Op: op, Kind: ErrInvalidInput}
	}

	hash, err := HashPassword(in.Password, DefaultArgon2idParams())
	if err != nil {
		return SignupResult{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	companyID, err := NewULID(in.Now)
	if err != nil {
		return SignupResult{}, err
	}
	accountID, err := NewULID(in.Now)
	if err != nil {
		return SignupResult{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byEmail[emailNorm]; exists {
		return SignupResult{}, ConflictError{Op: op, Field: "email"}
	}

	company := Company{ID: companyID, Name: in.CompanyName, CreatedAt: in.Now}
	account := Account{
		ID:        accountID,
		CompanyID: companyID,
		Name:      in.OwnerName,
		Email:     in.OwnerEmail,
		Role:      RoleAdmin,
		CreatedAt: in.Now,
	}

	d.companies[companyID] = company
	d.accounts[accountID] = account
	d.hashes[accountID] = hash
	d.byEmail[emailNorm] = accountID

	return SignupResult{Company: company, Account: account}, nil
}

// GetCompany loads a company by id.
func (d *MemoryDirectory) GetCompany(ctx context.Context, id string) (Company, error) {
	if err := ctx.Err(); err != nil {
		return Company{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.companies[id]
	if !ok {
		return Company{}, OpError{Op: "identity.GetCompany", Kind: ErrNotFound}
	}
	return c, nil
}

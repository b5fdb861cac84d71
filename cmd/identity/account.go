package identity

import (
	"context"
	"strings"
	"time"
)

// Role is the account role within its company.
type Role string

const (
	// RoleAdmin manages the company and its employees.
	RoleAdmin Role = "admin"
	// RoleEmployee is a monitored employee account.
	RoleEmployee Role = "employee"
)

// ParseRole normalizes a raw role string. Unknown values return ok=false.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleEmployee:
		return RoleEmployee, true
	default:
		return "", false
	}
}

// Account is Shiftwatch's canonical security principal.
type Account struct {
	ID        string
	CompanyID string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// Company is the tenant an account belongs to.
type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// SignupInput describes a company signup: the company plus its first admin.
type SignupInput struct {
	CompanyName string
	OwnerName   string
	OwnerEmail  string
	Password    string
	Now         time.Time
}

// SignupResult returns the created company and admin account.
type SignupResult struct {
	Company Company
	Account Account
}

// Directory is the account persistence boundary consumed by the auth layer.
type Directory interface {
	// FindByID loads an account by id. Missing -> ErrNotFound kind.
	FindByID(ctx context.Context, id string) (Account, error)

	// VerifyCredentials checks email+password and returns the account.
	// Unknown email and wrong password are indistinguishable: both return
	// ErrInvalidCredentials, after a constant-cost verify.
	VerifyCredentials(ctx context.Context, email, password string) (Account, error)

	// Signup creates a company and its admin account atomically.
	// Duplicate email -> ConflictError.
	Signup(ctx context.Context, in SignupInput) (SignupResult, error)

	// GetCompany loads a company by id. Missing -> ErrNotFound kind.
	GetCompany(ctx context.Context, id string) (Company, error)
}

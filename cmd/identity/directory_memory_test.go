package identity

import (
	"context"
	"testing"
	"time"
)

func testSignupInput(now time.Time) SignupInput {
	return SignupInput{
		CompanyName: "Initech",
		OwnerName:   "Dana",
		OwnerEmail:  "Dana@Example.com",
		Password:    "correct horse battery",
		Now:         now,
	}
}

func TestMemoryDirectorySignup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	d, err := NewMemoryDirectory()
	if err != nil {
		t.Fatalf("NewMemoryDirectory: %v", err)
	}

	res, err := d.Signup(ctx, testSignupInput(now))
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if res.Company.ID == "" || res.Account.ID == "" {
		t.Fatalf("missing ids: %+v", res)
	}
	if res.Account.CompanyID != res.Company.ID {
		t.Fatal("account must belong to the created company")
	}
	if res.Account.Role != RoleAdmin {
		t.Fatalf("signup role = %q, want admin", res.Account.Role)
	}

	got, err := d.FindByID(ctx, res.Account.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Email != "Dana@Example.com" {
		t.Fatalf("email = %q", got.Email)
	}

	company, err := d.GetCompany(ctx, res.Company.ID)
	if err != nil {
		t.Fatalf("GetCompany: %v", err)
	}
	if company.Name != "Initech" {
		t.Fatalf("company name = %q", company.Name)
	}
}

func TestMemoryDirectorySignupConflict(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	d, err := NewMemoryDirectory()
	if err != nil {
		t.Fatalf("NewMemoryDirectory: %v", err)
	}

	if _, err := d.Signup(ctx, testSignupInput(now)); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	// Same email, different casing: still a conflict.
	in := testSignupInput(now)
	in.OwnerEmail = "dana@example.com"
	if _, err := d.Signup(ctx, in); !IsConflict(err) {
		t.Fatalf("Signup duplicate: err = %v, want conflict", err)
	}
}

func TestMemoryDirectorySignupInvalidInput(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	d, err := NewMemoryDirectory()
	if err != nil {
		t.Fatalf("NewMemoryDirectory: %v", err)
	}

	for _, mutate := range []func(*SignupInput){
		func(in *SignupInput) { in.CompanyName = "" },
		func(in *SignupInput) { in.OwnerName = "" },
		func(in *SignupInput) { in.OwnerEmail = "   " },
		func(in *SignupInput) { in.Password = "short" },
	} {
		in := testSignupInput(now)
		mutate(&in)
		if _, err := d.Signup(ctx, in); !IsInvalidInput(err) {
			t.Fatalf("Signup(%+v): err = %v, want invalid input", in, err)
		}
	}
}

func TestMemoryDirectoryVerifyCredentials(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	d, err := NewMemoryDirectory()
	if err != nil {
		t.Fatalf("NewMemoryDirectory: %v", err)
	}

	res, err := d.Signup(ctx, testSignupInput(now))
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	acct, err := d.VerifyCredentials(ctx, "dana@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("VerifyCredentials: %v", err)
	}
	if acct.ID != res.Account.ID {
		t.Fatalf("account = %q, want %q", acct.ID, res.Account.ID)
	}

	// Wrong password and unknown email are indistinguishable.
	if _, err := d.VerifyCredentials(ctx, "dana@example.com", "wrong password"); !IsInvalidCredentials(err) {
		t.Fatalf("wrong password: err = %v, want invalid credentials", err)
	}
	if _, err := d.VerifyCredentials(ctx, "nobody@example.com", "correct horse battery"); !IsInvalidCredentials(err) {
		t.Fatalf("unknown email: err = %v, want invalid credentials", err)
	}
}

func TestMemoryDirectoryFindByIDNotFound(t *testing.T) {
	d, err := NewMemoryDirectory()
	if err != nil {
		t.Fatalf("NewMemoryDirectory: %v", err)
	}
	if _, err := d.FindByID(context.Background(), "missing"); !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

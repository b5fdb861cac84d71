package identity

import (
	"errors"
	"strings"
	"testing"
)

// testArgon2idParams keeps hashing cheap in unit tests.
func testArgon2idParams() Argon2idParams {
	return Argon2idParams{
		MemoryKiB:   8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery", testArgon2idParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %q", hash)
	}

	ok, err := VerifyPassword("correct horse battery", hash)
	if err != nil || !ok {
		t.Fatalf("VerifyPassword match = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = VerifyPassword("wrong password!", hash)
	if err != nil || ok {
		t.Fatalf("VerifyPassword mismatch = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short", testArgon2idParams()); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("err = %v, want ErrPasswordTooShort", err)
	}
}

func TestHashPasswordUniqueSalt(t *testing.T) {
	a, err := HashPassword("same password!", testArgon2idParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	b, err := HashPassword("same password!", testArgon2idParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ (random salt)")
	}
}

func TestVerifyPasswordInvalidHash(t *testing.T) {
	cases := []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAA",
		// Attacker-inflated parameters.
		"$argon2id$v=19$m=4194304,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$QUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUE",
	}
	for _, encoded := range cases {
		if _, err := VerifyPassword("whatever password", encoded); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("VerifyPassword(%q): err = %v, want ErrInvalidHash", encoded, err)
		}
	}
}

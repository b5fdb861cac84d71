package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"shiftwatch/cmd/identity"
)

func TestRequireAuthContext(t *testing.T) {
	h, _ := newTestHandler(t)
	res := signup(t, h)

	var gotAccount identity.Account
	var sawClaims bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccount, _ = AccountFromContext(r.Context())
		_, sawClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+res.Session.AccessToken)
	w := httptest.NewRecorder()
	h.RequireAuth(inner).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if gotAccount.Email != "dana@example.com" {
		t.Fatalf("account in context = %+v", gotAccount)
	}
	if !sawClaims {
		t.Fatal("claims missing from context")
	}
}

func TestRequireAuthRejectsBadToken(t *testing.T) {
	h, _ := newTestHandler(t)
	signup(t, h)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler must not run")
	})

	for _, tc := range []struct {
		name   string
		mutate func(*http.Request)
	}{
		{"no token", nil},
		{"garbage bearer", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not-a-token")
		}},
		{"wrong scheme", func(r *http.Request) {
			r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		}},
	} {
		r := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if tc.mutate != nil {
			tc.mutate(r)
		}
		w := httptest.NewRecorder()
		h.RequireAuth(inner).ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", tc.name, w.Code)
		}
	}
}

func TestRequireAuthHeaderBeatsCookie(t *testing.T) {
	h, _ := newTestHandler(t)
	res := signup(t, h)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// A valid cookie does not rescue a bad Authorization header.
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	r.AddCookie(&http.Cookie{Name: "sw_access_token", Value: res.Session.AccessToken})
	w := httptest.NewRecorder()
	h.RequireAuth(inner).ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	// Cookie alone is enough.
	r = httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(&http.Cookie{Name: "sw_access_token", Value: res.Session.AccessToken})
	w = httptest.NewRecorder()
	h.RequireAuth(inner).ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("cookie auth status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	h, _ := newTestHandler(t)
	res := signup(t, h)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Signup owners are admins.
	admin := h.RequireAuth(RequireRole(identity.RoleAdmin, inner))
	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	r.Header.Set("Authorization", "Bearer "+res.Session.AccessToken)
	w := httptest.NewRecorder()
	admin.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("admin status = %d, body %s", w.Code, w.Body.String())
	}

	employee := h.RequireAuth(RequireRole(identity.RoleEmployee, inner))
	r = httptest.NewRequest(http.MethodGet, "/employee", nil)
	r.Header.Set("Authorization", "Bearer "+res.Session.AccessToken)
	w = httptest.NewRecorder()
	employee.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("role mismatch status = %d, want 403", w.Code)
	}

	// RequireRole without RequireAuth has no account in context.
	bare := RequireRole(identity.RoleAdmin, inner)
	r = httptest.NewRequest(http.MethodGet, "/admin", nil)
	w = httptest.NewRecorder()
	bare.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bare RequireRole status = %d, want 401", w.Code)
	}
}

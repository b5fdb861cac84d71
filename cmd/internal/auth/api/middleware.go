package authapi

import (
	"context"
	"net/http"
	"strings"

	"shiftwatch/cmd/identity"
	"shiftwatch/cmd/internal/auth/session"
)

// RotationRequiredHeader advises clients to refresh their token pair soon.
// It is purely advisory; authorization never depends on it.
const RotationRequiredHeader = "X-Token-Rotation-Required"

type contextKey int

const (
	accountContextKey contextKey = iota
	claimsContextKey
)

// AccountFromContext returns the authenticated account set by RequireAuth.
func AccountFromContext(ctx context.Context) (identity.Account, bool) {
	a, ok := ctx.Value(accountContextKey).(identity.Account)
	return a, ok
}

// ClaimsFromContext returns the verified token claims set by RequireAuth.
func ClaimsFromContext(ctx context.Context) (session.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(session.Claims)
	return c, ok
}

// RequireAuth authenticates the request and attaches the account and claims
// to the context. The Authorization header takes precedence over the access
// cookie when both are present. On success it also sets the rotation-advice
// header when the token is close to expiry.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, cl, ok := h.authenticate(w, r)
		if !ok {
			return
		}

		ctx := context.WithValue(r.Context(), accountContextKey, acct)
		ctx = context.WithValue(ctx, claimsContextKey, cl)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a handler on the authenticated account's role. It must
// run inside RequireAuth.
func RequireRole(role identity.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, ok := AccountFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if acct.Role != role {
			writeError(w, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the access token into an account, writing the 401/5xx
// response itself on failure. Token-level failures all surface as a generic
// unauthorized; the distinction stays in the logs.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (identity.Account, session.Claims, bool) {
	raw := h.accessToken(r)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing access token")
		return identity.Account{}, session.Claims{}, false
	}

	ctx := r.Context()
	now := h.clock()

	cl, err := h.guard.Authenticate(ctx, now, raw)
	if err != nil {
		if session.IsStorageUnavailable(err) {
			h.log.Error("auth.authenticate.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "please retry later")
			return identity.Account{}, session.Claims{}, false
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return identity.Account{}, session.Claims{}, false
	}

	acct, err := h.directory.FindByID(ctx, cl.OwnerID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return identity.Account{}, session.Claims{}, false
		}
		h.log.Error("auth.authenticate.account.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "please retry later")
		return identity.Account{}, session.Claims{}, false
	}

	if h.guard.NeedsRotationHint(raw, now) {
		w.Header().Set(RotationRequiredHeader, "true")
	}

	return acct, cl, true
}

// accessToken extracts the raw access token: bearer header first, then the
// httpOnly cookie.
func (h *Handler) accessToken(r *http.Request) string {
	if tok := bearerToken(r); tok != "" {
		return tok
	}
	if tok, ok := h.accessTokenFromCookie(r); ok {
		return tok
	}
	return ""
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

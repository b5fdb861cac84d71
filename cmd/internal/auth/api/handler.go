package authapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"shiftwatch/cmd/identity"
	"shiftwatch/cmd/internal/auth/session"
)

// Handler wires the HTTP auth endpoints to the identity directory and the
// session guard.
type Handler struct {
	log *slog.Logger
	cfg Config

	guard     *session.Guard
	directory identity.Directory
	audit     *Auditor
	metrics   *Metrics

	clock func() time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithClock overrides the handler clock. Tests use it to pin time.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || clock == nil {
			return
		}
		h.clock = clock
	}
}

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		if h == nil {
			return
		}
		h.metrics = m
	}
}

// WithAuditor attaches the audit-log writer.
func WithAuditor(a *Auditor) HandlerOption {
	return func(h *Handler) {
		if h == nil {
			return
		}
		h.audit = a
	}
}

// NewHandler constructs the auth Handler.
func NewHandler(log *slog.Logger, cfg Config, guard *session.Guard, directory identity.Directory, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if guard == nil {
		return nil, errors.New("authapi: nil guard")
	}
	if directory == nil {
		return nil, errors.New("authapi: nil directory")
	}

	h := &Handler{
		log:       log,
		cfg:       cfg.normalized(),
		guard:     guard,
		directory: directory,
		audit:     NewAuditor(log, nil),
		clock:     func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}

	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/auth/signup", h.handleSignup)
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/api/auth/logout", h.handleLogout)
	mux.HandleFunc("/api/auth/logout-all", h.handleLogoutAll)
	mux.HandleFunc("/api/auth/me", h.handleMe)
	mux.HandleFunc("/api/auth/sessions", h.handleSessions)
}

// ---- handlers ----

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req signupRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	now := h.clock()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	res, err := h.directory.Signup(ctx, identity.SignupInput{
		CompanyName: strings.TrimSpace(req.CompanyName),
		OwnerName:   strings.TrimSpace(req.Name),
		OwnerEmail:  strings.TrimSpace(req.Email),
		Password:    req.Password,
		Now:         now,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "conflict", "email already registered")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid input")
		default:
			h.log.Error("auth.signup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	pair, err := h.guard.Issue(ctx, now, res.Account, session.RequestMeta{IP: ip, UserAgent: ua})
	if err != nil {
		h.log.Error("auth.signup.issue.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.audit.signup(ctx, res.Account.ID, res.Company.ID, pair.CredentialID, ip, ua)
	h.metrics.Signup()
	h.setSessionCookies(w, pair)

	writeJSON(w, http.StatusCreated, signupResponse{
		Account: toAccountResponse(res.Account),
		Company: toCompanyResponse(res.Company),
		Session: toSessionResponse(pair),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	password := req.Password
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	now := h.clock()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	acct, err := h.directory.VerifyCredentials(ctx, email, password)
	if err != nil {
		if identity.IsInvalidCredentials(err) {
			h.audit.loginFailed(ctx, nil, ip, ua, identity.NormalizeEmail(email), "invalid_credentials")
			h.metrics.Login("failure")
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("auth.login.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	pair, err := h.guard.Issue(ctx, now, acct, session.RequestMeta{IP: ip, UserAgent: ua})
	if err != nil {
		h.log.Error("auth.login.issue.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.audit.loginSuccess(ctx, acct.ID, pair.CredentialID, ip, ua)
	h.metrics.Login("success")
	h.setSessionCookies(w, pair)

	writeJSON(w, http.StatusOK, loginResponse{
		Account: toAccountResponse(acct),
		Session: toSessionResponse(pair),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	}
	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		if cookieToken, ok := h.refreshTokenFromCookie(r); ok {
			refreshToken = cookieToken
		}
	}
	if refreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	ctx := r.Context()
	now := h.clock()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	pair, err := h.guard.Rotate(ctx, now, refreshToken, session.RequestMeta{IP: ip, UserAgent: ua})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionInvalidated):
			owner := ""
			if cl, peekErr := h.guard.Codec().Peek(refreshToken); peekErr == nil {
				owner = cl.OwnerID
			}
			h.audit.reuseDetected(ctx, owner, ip, ua)
			h.metrics.Rotation("reuse")
			h.metrics.ReuseDetected()
			h.clearSessionCookies(w)
			writeError(w, http.StatusUnauthorized, "session_invalidated", "session invalidated")
		case errors.Is(err, session.ErrExpired),
			errors.Is(err, session.ErrTokenExpired),
			errors.Is(err, session.ErrTokenInvalid),
			errors.Is(err, session.ErrUnauthenticated):
			h.metrics.Rotation("rejected")
			h.clearSessionCookies(w)
			writeError(w, http.StatusUnauthorized, "unauthorized", "session not active")
		case session.IsStorageUnavailable(err):
			h.log.Error("auth.refresh.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "please retry later")
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	cl, _ := h.guard.Codec().Peek(pair.AccessToken)
	h.audit.refreshSuccess(ctx, cl.OwnerID, pair.CredentialID, ip, ua)
	h.metrics.Rotation("success")
	h.setSessionCookies(w, pair)

	writeJSON(w, http.StatusOK, refreshResponse{
		Session: toSessionResponse(pair),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req logoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	}
	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		if cookieToken, ok := h.refreshTokenFromCookie(r); ok {
			refreshToken = cookieToken
		}
	}

	ctx := r.Context()
	now := h.clock()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	// Logout is idempotent: no token, an unusable token and an unknown
	// credential all clear the cookies and return 204.
	if refreshToken != "" {
		if err := h.guard.Logout(ctx, now, refreshToken); err != nil {
			h.log.Error("auth.logout.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "please retry later")
			return
		}
		owner := ""
		if cl, err := h.guard.Codec().Peek(refreshToken); err == nil {
			owner = cl.OwnerID
		}
		h.audit.logout(ctx, owner, ip, ua)
		h.metrics.Revoked(1)
	}

	h.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	acct, _, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	now := h.clock()

	revoked, err := h.guard.LogoutAll(ctx, now, acct.ID)
	if err != nil {
		h.log.Error("auth.logout_all.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "please retry later")
		return
	}

	h.audit.logoutAll(ctx, acct.ID, revoked, clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	h.metrics.Revoked(revoked)
	h.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	acct, _, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	company, err := h.directory.GetCompany(r.Context(), acct.CompanyID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		Account: toAccountResponse(acct),
		Company: toCompanyResponse(company),
	})
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	acct, _, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	creds, err := h.guard.ActiveSessions(r.Context(), h.clock(), acct.ID)
	if err != nil {
		h.log.Error("auth.sessions.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "please retry later")
		return
	}

	devices := make([]deviceResponse, 0, len(creds))
	for _, c := range creds {
		devices = append(devices, toDeviceResponse(c))
	}

	writeJSON(w, http.StatusOK, devicesResponse{Devices: devices})
}

// ---- helpers ----

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}

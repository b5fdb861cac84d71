package authapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Auditor writes security events to shiftwatch.audit_log. A nil pool makes
// every write a no-op, which covers db-disabled mode and tests.
//
// Audit writes are best-effort: failures are logged, never surfaced to the
// request path.
type Auditor struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

// NewAuditor constructs an Auditor. pool may be nil.
func NewAuditor(log *slog.Logger, pool *pgxpool.Pool) *Auditor {
	if log == nil {
		log = slog.Default()
	}
	return &Auditor{log: log, pool: pool}
}

func (a *Auditor) loginFailed(ctx context.Context, accountID *string, ip net.IP, ua, email, reason string) {
	a.insert(ctx, "auth.login.failed", accountID, nil, ip, ua, map[string]any{
		"email":  email,
		"reason": reason,
	})
}

func (a *Auditor) loginSuccess(ctx context.Context, accountID, credentialID string, ip net.IP, ua string) {
	a.insert(ctx, "auth.login.success", &accountID, &credentialID, ip, ua, nil)
}

func (a *Auditor) signup(ctx context.Context, accountID, companyID, credentialID string, ip net.IP, ua string) {
	a.insert(ctx, "auth.signup", &accountID, &credentialID, ip, ua, map[string]any{
		"company_id": companyID,
	})
}

func (a *Auditor) refreshSuccess(ctx context.Context, accountID, credentialID string, ip net.IP, ua string) {
	a.insert(ctx, "auth.refresh.success", &accountID, &credentialID, ip, ua, nil)
}

func (a *Auditor) reuseDetected(ctx context.Context, accountID string, ip net.IP, ua string) {
	var owner *string
	if accountID != "" {
		owner = &accountID
	}
	a.insert(ctx, "auth.refresh.reuse_detected", owner, nil, ip, ua, nil)
}

func (a *Auditor) logout(ctx context.Context, accountID string, ip net.IP, ua string) {
	var owner *string
	if accountID != "" {
		owner = &accountID
	}
	a.insert(ctx, "auth.logout", owner, nil, ip, ua, nil)
}

func (a *Auditor) logoutAll(ctx context.Context, accountID string, revoked int64, ip net.IP, ua string) {
	a.insert(ctx, "auth.logout_all", &accountID, nil, ip, ua, map[string]any{
		"revoked": revoked,
	})
}

func (a *Auditor) insert(ctx context.Context, action string, accountID *string, credentialID *string, ip net.IP, ua string, meta map[string]any) {
	if a == nil || a.pool == nil {
		return
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	var ipVal any
	if ip != nil {
		ipVal = ip.String()
	}

	var metaVal *string
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO shiftwatch.audit_log (
			account_id, credential_id, action, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, now(), $4, $5, $6::jsonb)
	`, accountID, credentialID, action, ipVal, trimOrNil(ua), metaVal)
	if err != nil {
		a.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}

package authapi

import (
	"net/http"
	"strings"
	"time"

	"shiftwatch/cmd/internal/auth/session"
)

func (h *Handler) setSessionCookies(w http.ResponseWriter, pair session.TokenPair) {
	if h == nil || w == nil || !h.cfg.CookieEnabled {
		return
	}
	h.setCookie(w, h.cfg.AccessCookieName, pair.AccessToken, pair.AccessExp)
	h.setCookie(w, h.cfg.RefreshCookieName, pair.RefreshToken, pair.RefreshExp)
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	if h == nil || w == nil || !h.cfg.CookieEnabled {
		return
	}
	h.expireCookie(w, h.cfg.AccessCookieName)
	h.expireCookie(w, h.cfg.RefreshCookieName)
}

func (h *Handler) accessTokenFromCookie(r *http.Request) (string, bool) {
	return h.cookieValue(r, h.cfg.AccessCookieName)
}

func (h *Handler) refreshTokenFromCookie(r *http.Request) (string, bool) {
	return h.cookieValue(r, h.cfg.RefreshCookieName)
}

func (h *Handler) cookieValue(r *http.Request, name string) (string, bool) {
	if h == nil || r == nil || !h.cfg.CookieEnabled {
		return "", false
	}
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", false
	}
	return v, true
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

func (h *Handler) expireCookie(w http.ResponseWriter, name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

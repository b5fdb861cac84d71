package authapi

import (
	"net/http"
)

// Config controls auth API behavior and web transport defaults.
//
// It is populated by the app layer from the environment; the defaults here
// are safe for development.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// CookieEnabled turns on the httpOnly cookie transport for browser
	// clients. Tokens are always returned in the JSON body as well.
	CookieEnabled     bool
	AccessCookieName  string
	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// DefaultConfig returns development-safe API defaults.
func DefaultConfig() Config {
	return Config{
		TrustProxy:        false,
		MaxBodyBytes:      1 << 20, // 1 MiB
		CookieEnabled:     true,
		AccessCookieName:  "sw_access_token",
		RefreshCookieName: "sw_refresh_token",
		CookiePath:        "/",
		CookieSecure:      false,
		CookieSameSite:    http.SameSiteLaxMode,
	}
}

// normalized fills zero values with defaults so a partially built config
// still behaves.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.AccessCookieName == "" {
		c.AccessCookieName = def.AccessCookieName
	}
	if c.RefreshCookieName == "" {
		c.RefreshCookieName = def.RefreshCookieName
	}
	if c.CookiePath == "" {
		c.CookiePath = def.CookiePath
	}
	if c.CookieSameSite == 0 {
		c.CookieSameSite = def.CookieSameSite
	}
	return c
}

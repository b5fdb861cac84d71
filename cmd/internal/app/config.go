package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	authapi "shiftwatch/cmd/internal/auth/api"
	"shiftwatch/cmd/internal/auth/session"
)

// Config contains all runtime configuration, loaded from SHIFTWATCH_-prefixed
// environment variables.
type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"ENV" envDefault:"development"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	MaxHeaderBytes    int           `env:"HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	// DatabaseURL empty means db-disabled development mode: in-memory
	// directory and credential store, nothing survives a restart.
	DatabaseURL   string `env:"DATABASE_URL"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns    int32  `env:"DB_MIN_CONNS" envDefault:"0"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// If true, /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool `env:"READINESS_REQUIRE_DB" envDefault:"false"`

	// TokenKey is the hex-encoded 32-byte PASETO v4.local key. In
	// development an ephemeral key is generated when unset; production
	// refuses to start without one.
	TokenKey string `env:"TOKEN_KEY"`
	// DigestKey is the raw HMAC key for refresh credential digests.
	DigestKey string `env:"DIGEST_KEY"`

	TokenIssuer        string        `env:"TOKEN_ISSUER" envDefault:"shiftwatch"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`
	RefreshTTL         time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
	RotationGrace      time.Duration `env:"ROTATION_GRACE_PERIOD" envDefault:"15m"`
	RotationHintWindow time.Duration `env:"ROTATION_HINT_WINDOW" envDefault:"1h"`
	ClockSkew          time.Duration `env:"CLOCK_SKEW" envDefault:"30s"`
	AccessCheckStore   bool          `env:"ACCESS_CHECK_STORE" envDefault:"false"`

	TrustProxy    bool   `env:"TRUST_PROXY" envDefault:"false"`
	MaxBodyBytes  int64  `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	CookieEnabled bool   `env:"COOKIE_ENABLED" envDefault:"true"`
	CookieDomain  string `env:"COOKIE_DOMAIN"`
	CookieSecure  bool   `env:"COOKIE_SECURE" envDefault:"false"`

	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	SweepRetention time.Duration `env:"SWEEP_RETENTION" envDefault:"24h"`
}

// LoadConfig loads Config from SHIFTWATCH_-prefixed environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "SHIFTWATCH_"}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the runtime is in production mode, which
// tightens the startup security policy.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// SessionConfig maps the app config onto the session subsystem config.
func (c Config) SessionConfig() session.Config {
	return session.Config{
		Issuer:             c.TokenIssuer,
		AccessTokenTTL:     c.AccessTokenTTL,
		RefreshTTL:         c.RefreshTTL,
		GracePeriod:        c.RotationGrace,
		RotationHintWindow: c.RotationHintWindow,
		ClockSkew:          c.ClockSkew,
		AccessCheckStore:   c.AccessCheckStore,
		TokenKeyHex:        c.TokenKey,
		DigestKey:          []byte(c.DigestKey),
	}
}

// APIConfig maps the app config onto the auth API config.
func (c Config) APIConfig() authapi.Config {
	api := authapi.DefaultConfig()
	api.TrustProxy = c.TrustProxy
	api.MaxBodyBytes = c.MaxBodyBytes
	api.CookieEnabled = c.CookieEnabled
	api.CookieDomain = c.CookieDomain
	api.CookieSecure = c.CookieSecure || c.IsProduction()
	return api
}

// EnsureTokenKey fills in an ephemeral token key for development runs.
// Production never reaches this fallback: ValidateSecurityConfig rejects a
// missing key first.
func (c *Config) EnsureTokenKey(log Logger) error {
	if c.TokenKey != "" {
		return nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("config: generate token key: %w", err)
	}
	c.TokenKey = hex.EncodeToString(key)
	log.Warn("config.token_key.ephemeral", "msg", "SHIFTWATCH_TOKEN_KEY not set; all tokens invalidate on restart")
	return nil
}

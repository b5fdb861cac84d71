package session

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidateDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TokenKeyHex = testKeyHex

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	base := DefaultConfig()
	base.TokenKeyHex = testKeyHex

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty issuer", func(c *Config) { c.Issuer = "" }},
		{"zero access ttl", func(c *Config) { c.AccessTokenTTL = 0 }},
		{"zero refresh ttl", func(c *Config) { c.RefreshTTL = 0 }},
		{"refresh shorter than access", func(c *Config) { c.RefreshTTL = c.AccessTokenTTL - time.Hour }},
		{"negative grace", func(c *Config) { c.GracePeriod = -time.Minute }},
		{"negative skew", func(c *Config) { c.ClockSkew = -time.Second }},
		{"hint window at access ttl", func(c *Config) { c.RotationHintWindow = c.AccessTokenTTL }},
		{"missing token key", func(c *Config) { c.TokenKeyHex = "" }},
		{"short token key", func(c *Config) { c.TokenKeyHex = "abcd" }},
		{"non-hex token key", func(c *Config) { c.TokenKeyHex = "zz" + testKeyHex[2:] }},
	}

	for _, tc := range cases {
		cfg := base
		tc.mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrConfig) {
			t.Fatalf("%s: Validate = %v, want ErrConfig", tc.name, err)
		}
	}
}

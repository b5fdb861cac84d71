package session

import (
	"time"

	paseto "aidanwoods.dev/go-paseto"

	"shiftwatch/cmd/identity"
)

// Purpose discriminates the two token kinds issued by the codec.
type Purpose string

const (
	// PurposeAccess marks short-lived bearer tokens for request auth.
	PurposeAccess Purpose = "access"
	// PurposeRefresh marks long-lived tokens exchanged for new pairs.
	PurposeRefresh Purpose = "refresh"
)

// Claims is the identity envelope carried by every token.
type Claims struct {
	OwnerID      string
	TenantID     string
	Role         identity.Role
	Purpose      Purpose
	CredentialID string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	Issuer       string
}

// Codec issues and verifies PASETO v4.local tokens.
//
// The codec is purely cryptographic: it never touches storage, and it takes
// the current time as a parameter so that validation is deterministic.
type Codec struct {
	issuer    string
	clockSkew time.Duration

	key paseto.V4SymmetricKey
}

// NewCodec builds a Codec from config. The symmetric key comes from
// Config.TokenKeyHex; issuer and clock skew follow the config as well.
func NewCodec(cfg Config) (*Codec, error) {
	key, err := paseto.V4SymmetricKeyFromHex(cfg.TokenKeyHex)
	if err != nil {
		return nil, ErrConfig
	}
	if cfg.Issuer == "" {
		return nil, ErrConfig
	}

	return &Codec{
		issuer:    cfg.Issuer,
		clockSkew: cfg.ClockSkew,
		key:       key,
	}, nil
}

// Issue encrypts claims into a token valid from now until now+ttl.
// It returns the token and its expiry.
func (c *Codec) Issue(cl Claims, now time.Time, ttl time.Duration) (string, time.Time, error) {
	if cl.OwnerID == "" || cl.CredentialID == "" {
		return "", time.Time{}, ErrTokenInvalid
	}

	exp := now.Add(ttl)

	tok := paseto.NewToken()
	tok.SetIssuer(c.issuer)
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)

	_ = tok.Set("sub", cl.OwnerID)
	_ = tok.Set("tid", cl.TenantID)
	_ = tok.Set("role", string(cl.Role))
	_ = tok.Set("purpose", string(cl.Purpose))
	_ = tok.Set("cid", cl.CredentialID)

	return tok.V4Encrypt(c.key, nil), exp, nil
}

// Verify decrypts and validates a token at the given time.
//
// Malformed or cryptographically invalid tokens return ErrTokenInvalid.
// Tokens that decrypt but are outside their validity window return
// ErrTokenExpired. Time checks are done manually rather than via parser
// rules so the two failure modes stay distinguishable.
func (c *Codec) Verify(raw string, now time.Time) (Claims, error) {
	cl, err := c.decode(raw)
	if err != nil {
		return Claims{}, err
	}

	// Skew tolerance: accept tokens whose nbf is slightly in the future and
	// whose exp is slightly in the past.
	if cl.IssuedAt.After(now.Add(c.clockSkew)) {
		return Claims{}, ErrTokenInvalid
	}
	if !now.Before(cl.ExpiresAt.Add(c.clockSkew)) {
		return Claims{}, ErrTokenExpired
	}

	return cl, nil
}

// Peek decrypts a token without applying time rules. The result is
// authenticated but possibly expired; callers use it for advisory decisions
// such as the rotation hint, never for authentication.
func (c *Codec) Peek(raw string) (Claims, error) {
	return c.decode(raw)
}

func (c *Codec) decode(raw string) (Claims, error) {
	p := paseto.NewParserWithoutExpiryCheck()
	p.AddRule(paseto.IssuedBy(c.issuer))

	parsed, err := p.ParseV4Local(c.key, raw, nil)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}

	iss, _ := parsed.GetIssuer()
	iat, err := parsed.GetIssuedAt()
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}
	exp, err := parsed.GetExpiration()
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}

	sub, err := parsed.GetString("sub")
	if err != nil || sub == "" {
		return Claims{}, ErrTokenInvalid
	}
	cid, err := parsed.GetString("cid")
	if err != nil || cid == "" {
		return Claims{}, ErrTokenInvalid
	}
	purpose, err := parsed.GetString("purpose")
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}
	switch Purpose(purpose) {
	case PurposeAccess, PurposeRefresh:
	default:
		return Claims{}, ErrTokenInvalid
	}
	tid, _ := parsed.GetString("tid")
	role, _ := parsed.GetString("role")

	return Claims{
		OwnerID:      sub,
		TenantID:     tid,
		Role:         identity.Role(role),
		Purpose:      Purpose(purpose),
		CredentialID: cid,
		IssuedAt:     iat,
		ExpiresAt:    exp,
		Issuer:       iss,
	}, nil
}

package authapi

import (
	"time"

	"shiftwatch/cmd/identity"
	"shiftwatch/cmd/internal/auth/session"
)

type signupRequest struct {
	CompanyName string `json:"company_name"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type companyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	CredentialID     string    `json:"credential_id"`
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type signupResponse struct {
	Account accountResponse `json:"account"`
	Company companyResponse `json:"company"`
	Session sessionResponse `json:"session"`
}

type loginResponse struct {
	Account accountResponse `json:"account"`
	Session sessionResponse `json:"session"`
}

type refreshResponse struct {
	Session sessionResponse `json:"session"`
}

type meResponse struct {
	Account accountResponse `json:"account"`
	Company companyResponse `json:"company"`
}

type deviceResponse struct {
	CredentialID string     `json:"credential_id"`
	IssuedAt     time.Time  `json:"issued_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LastUsedAt   *time.Time `json:"last_used_at"`
	IP           string     `json:"ip,omitempty"`
	UserAgent    string     `json:"user_agent,omitempty"`
}

type devicesResponse struct {
	Devices []deviceResponse `json:"devices"`
}

func toAccountResponse(a identity.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		CompanyID: a.CompanyID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      string(a.Role),
		CreatedAt: a.CreatedAt,
	}
}

func toCompanyResponse(c identity.Company) companyResponse {
	return companyResponse{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
	}
}

func toSessionResponse(p session.TokenPair) sessionResponse {
	return sessionResponse{
		CredentialID:     p.CredentialID,
		AccessToken:      p.AccessToken,
		AccessExpiresAt:  p.AccessExp,
		RefreshToken:     p.RefreshToken,
		RefreshExpiresAt: p.RefreshExp,
	}
}

func toDeviceResponse(c session.Credential) deviceResponse {
	d := deviceResponse{
		CredentialID: c.ID,
		IssuedAt:     c.IssuedAt,
		ExpiresAt:    c.ExpiresAt,
		LastUsedAt:   c.LastUsedAt,
		UserAgent:    c.UserAgent,
	}
	if c.IP != nil {
		d.IP = c.IP.String()
	}
	return d
}

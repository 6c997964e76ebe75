package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ProviderDiscord is the only external identity provider
const ProviderDiscord = "discord"

// Account links an external identity to a user
type Account struct {
	UserID            string
	Type              string // "oauth"
	Provider          string
	ProviderAccountID string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
	TokenType         string
	Scope             string
}

// ExternalIdentity is the profile returned by the identity provider
type ExternalIdentity struct {
	ProviderAccountID string
	Username          string
	GlobalName        string
	Email             string
	Avatar            string
}

// DisplayName prefers the global name, falling back to the username
func (e *ExternalIdentity) DisplayName() string {
	if e.GlobalName != "" {
		return e.GlobalName
	}
	return e.Username
}

// OAuthStateClaims is the signed payload carried through the provider redirect
type OAuthStateClaims struct {
	Nonce    string `json:"nonce"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

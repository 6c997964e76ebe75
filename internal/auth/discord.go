package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BradenHooton/littlespace/internal/config"
	"github.com/BradenHooton/littlespace/internal/models"
	"golang.org/x/oauth2"
)

var discordScopes = []string{"identify", "email"}

// DiscordProvider performs the authorization-code exchange and profile fetch
type DiscordProvider struct {
	oauth      *oauth2.Config
	apiBaseURL string
}

// NewDiscordProvider creates a provider from configuration
func NewDiscordProvider(cfg config.DiscordConfig) *DiscordProvider {
	return &DiscordProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       discordScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
	}
}

// AuthCodeURL returns the provider consent URL carrying state
func (p *DiscordProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "none"))
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"`
}

// Exchange trades code for tokens and fetches the caller's profile
func (p *DiscordProvider) Exchange(ctx context.Context, code string) (*models.ExternalIdentity, *models.Account, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: code exchange: %w", models.ErrIdentityProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+"/users/@me", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", models.ErrIdentityProvider, err)
	}

	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: profile request: %w", models.ErrIdentityProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil, fmt.Errorf("%w: profile request returned %d", models.ErrIdentityProvider, resp.StatusCode)
	}

	var profile discordUser
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, nil, fmt.Errorf("%w: decode profile: %w", models.ErrIdentityProvider, err)
	}
	if profile.ID == "" {
		return nil, nil, fmt.Errorf("%w: profile has no id", models.ErrIdentityProvider)
	}

	identity := &models.ExternalIdentity{
		ProviderAccountID: profile.ID,
		Username:          profile.Username,
		GlobalName:        profile.GlobalName,
		Email:             profile.Email,
	}
	if profile.Avatar != "" {
		identity.Avatar = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", profile.ID, profile.Avatar)
	}

	account := &models.Account{
		Type:              "oauth",
		Provider:          models.ProviderDiscord,
		ProviderAccountID: profile.ID,
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
		TokenType:         token.TokenType,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		account.ExpiresAt = &expiry
	}
	if scope, ok := token.Extra("scope").(string); ok {
		account.Scope = scope
	}

	return identity, account, nil
}

package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var Scopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/drive.readonly",
}

func NewGoogleConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}
}

// Provider runs the authorization code flow. The redirect URL is passed per
// call because it is derived from the incoming request behind proxies.
type Provider struct {
	config *oauth2.Config
}

func NewProvider(config *oauth2.Config) *Provider {
	return &Provider{config: config}
}

func (p *Provider) withRedirect(redirectURL string) *oauth2.Config {
	cfg := *p.config
	cfg.RedirectURL = redirectURL
	return &cfg
}

func (p *Provider) AuthCodeURL(state, redirectURL string) string {
	return p.withRedirect(redirectURL).AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades the authorization code for a token and returns the raw
// ID token that came with it.
func (p *Provider) Exchange(ctx context.Context, code, redirectURL string) (*oauth2.Token, string, error) {
	token, err := p.withRedirect(redirectURL).Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("exchange authorization code: %w", err)
	}
	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, "", fmt.Errorf("token response has no id_token")
	}
	return token, rawIDToken, nil
}

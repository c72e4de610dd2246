package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type Identity struct {
	Email   string
	Subject string
	Name    string
}

// TokenValidator checks signature, audience and expiry of a raw ID token.
// Implemented by *idtoken.Validator.
type TokenValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// IDTokenVerifier checks provider-signed ID tokens. Signature, audience and
// expiry are delegated to the validator; issuer and email are checked here.
type IDTokenVerifier struct {
	clientID  string
	issuers   []string
	validator TokenValidator
}

func NewIDTokenVerifier(ctx context.Context, clientID string) (*IDTokenVerifier, error) {
	validator, err := idtoken.NewValidator(ctx,
		option.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("create id token validator: %w", err)
	}
	return newIDTokenVerifier(clientID, validator), nil
}

func newIDTokenVerifier(clientID string, validator TokenValidator) *IDTokenVerifier {
	return &IDTokenVerifier{
		clientID:  clientID,
		issuers:   googleIssuers,
		validator: validator,
	}
}

func (v *IDTokenVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return Identity{}, fmt.Errorf("id token is missing")
	}

	payload, err := v.validator.Validate(ctx, raw, v.clientID)
	if err != nil {
		return Identity{}, fmt.Errorf("id token validation failed: %w", err)
	}

	issuerOK := false
	for _, issuer := range v.issuers {
		if payload.Issuer == issuer {
			issuerOK = true
			break
		}
	}
	if !issuerOK {
		return Identity{}, fmt.Errorf("unexpected id token issuer %q", payload.Issuer)
	}

	email := claimString(payload.Claims, "email")
	if email == "" {
		return Identity{}, fmt.Errorf("id token has no email claim")
	}

	return Identity{
		Email:   email,
		Subject: payload.Subject,
		Name:    claimString(payload.Claims, "name"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	value, _ := claims[key].(string)
	return strings.TrimSpace(value)
}

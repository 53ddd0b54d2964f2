package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

var ErrGoogleDisabled = errors.New("google sign-in is not configured")

// GoogleIdentity is what a verified Google ID token tells us about the user.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier validates a Google ID token.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (GoogleIdentity, error)
}

// IDTokenVerifier checks tokens against Google's public keys for one
// OAuth client ID.
type IDTokenVerifier struct {
	audience  string
	validator *idtoken.Validator
}

func NewIDTokenVerifier(ctx context.Context, clientID string) (*IDTokenVerifier, error) {
	v, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("create id token validator: %w", err)
	}
	return &IDTokenVerifier{audience: clientID, validator: v}, nil
}

func (v *IDTokenVerifier) Verify(ctx context.Context, token string) (GoogleIdentity, error) {
	payload, err := v.validator.Validate(ctx, token, v.audience)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return GoogleIdentity{}, fmt.Errorf("%w: email not verified", ErrInvalidToken)
	}
	return GoogleIdentity{
		Subject: payload.Subject,
		Email:   claim(payload.Claims, "email"),
		Name:    claim(payload.Claims, "name"),
		Picture: claim(payload.Claims, "picture"),
	}, nil
}

func claim(claims map[string]any, name string) string {
	s, _ := claims[name].(string)
	return s
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lazycook/backend/internal/config"
	"google.golang.org/api/idtoken"
)

var ErrUnverifiedEmail = errors.New("google account email is not verified")

type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

type Verifier struct {
	cfg config.Config
}

func NewVerifier(cfg config.Config) Verifier {
	return Verifier{cfg: cfg}
}

func (v Verifier) Verify(ctx context.Context, idToken string) (GoogleIdentity, error) {
	if strings.TrimSpace(idToken) == "" {
		return GoogleIdentity{}, errors.New("id token is required")
	}
	if v.cfg.GoogleClientID == "" {
		return GoogleIdentity{}, errors.New("GOOGLE_CLIENT_ID is not configured")
	}

	payload, err := idtoken.Validate(ctx, idToken, v.cfg.GoogleClientID)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("validate id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if strings.TrimSpace(email) == "" {
		return GoogleIdentity{}, errors.New("google token missing email claim")
	}

	emailVerified, _ := payload.Claims["email_verified"].(bool)
	if !emailVerified {
		return GoogleIdentity{}, ErrUnverifiedEmail
	}

	name, _ := payload.Claims["name"].(string)

	return GoogleIdentity{
		Subject: payload.Subject,
		Email:   strings.ToLower(email),
		Name:    strings.TrimSpace(name),
	}, nil
}

package auth

import (
	"errors"
	"strings"
)

var ErrMissingToken = errors.New("missing bearer token")

// TokenFromHeader extracts the raw token from an Authorization header.
// Only the "Bearer <token>" scheme is accepted.
func TokenFromHeader(authorization string) (string, error) {
	raw := strings.TrimSpace(authorization)
	if raw == "" {
		return "", ErrMissingToken
	}
	if len(raw) < 7 || !strings.EqualFold(raw[:7], "bearer ") {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(raw[7:])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// IsEmailToken reports whether a bearer token is an opaque email credential
// rather than a provider-issued ID token. The email scheme predates real
// token issuance and is kept for frontend compatibility.
func IsEmailToken(token string) bool {
	return strings.Contains(token, "@") && !strings.Contains(token, ".ey")
}

// NormalizeEmail lowercases and trims an email credential.
func NormalizeEmail(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// ============================================================================
// VoxNote - Chunked Dictation Service
// ============================================================================
//
// Package:     auth
// Description: Token-based request authentication
// License:     MIT
// ============================================================================

package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LocalUserID identifies the implicit user when no JWT secret is
// configured. VoxNote then runs in single-user mode, which is the normal
// setup for a personal workstation.
const LocalUserID = "local"

// Claims is the JWT payload VoxNote issues and accepts
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator resolves the user behind an HTTP request
type Authenticator struct {
	secret []byte
}

// New creates an Authenticator. With an empty secret every request is
// attributed to LocalUserID instead of being verified.
func New(secret string) *Authenticator {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	}
	return &Authenticator{secret: key}
}

// SingleUser reports whether authentication is disabled
func (a *Authenticator) SingleUser() bool {
	return a.secret == nil
}

// UserID extracts the authenticated user from a request. It accepts a
// bearer token in the Authorization header or an auth_token cookie.
// Returns an error when a secret is configured and no valid token is
// present.
func (a *Authenticator) UserID(r *http.Request) (string, error) {
	if a.SingleUser() {
		return LocalUserID, nil
	}

	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie("auth_token"); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return "", fmt.Errorf("missing auth token")
	}

	return a.Verify(token)
}

// Verify parses a token and returns the user ID it carries
func (a *Authenticator) Verify(token string) (string, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return "", fmt.Errorf("invalid token")
	}

	return claims.UserID, nil
}

// Sign issues a token for a user, valid for seven days
func (a *Authenticator) Sign(userID, email string) (string, error) {
	if a.SingleUser() {
		return "", fmt.Errorf("no JWT secret configured")
	}

	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// bearerToken extracts the token from an Authorization header
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

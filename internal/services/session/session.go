// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues and verifies the signed access token carried in the
// session cookie.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/portfolio-admin/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that are malformed, tampered with or expired.
var ErrInvalidToken = errors.New("invalid access token")

// Claims identify the logged-in user.
type Claims struct {
	UserID string `json:"_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Manager signs tokens and builds the cookies that carry them.
type Manager struct {
	now        func() time.Time
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewManager creates a session manager from the auth configuration.
func NewManager(cfg *config.AuthConfig) (*Manager, error) {
	if cfg.TokenSecret == "" {
		return nil, errors.New("token secret is required")
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	name := cfg.CookieName
	if name == "" {
		name = "accessToken"
	}

	return &Manager{
		now:        time.Now,
		secret:     []byte(cfg.TokenSecret),
		cookieName: name,
		ttl:        ttl,
		secure:     cfg.CookieSecure,
	}, nil
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Issue returns a signed token for the user.
func (m *Manager) Issue(userID, email string) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token and returns its claims.
func (m *Manager) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Create issues a token and wraps it in the session cookie.
func (m *Manager) Create(userID, email string) (*http.Cookie, error) {
	token, err := m.Issue(userID, email)
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		Expires:  m.now().Add(m.ttl),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Parse reads the session from the request cookie.
// A missing or invalid cookie yields nil claims and no error.
func (m *Manager) Parse(r *http.Request) *Claims {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	claims, err := m.Verify(cookie.Value)
	if err != nil {
		return nil
	}
	return claims
}

// Clear returns a cookie that deletes the session cookie.
func (m *Manager) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

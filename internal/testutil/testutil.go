// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/portfolio-admin/internal/database"
	"codeberg.org/oliverandrich/portfolio-admin/internal/models"
	"codeberg.org/oliverandrich/portfolio-admin/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// TestSecret signs access tokens in tests.
const TestSecret = "test-secret-0123456789abcdef"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates a user with the given password in the database.
func NewTestUser(t *testing.T, repo *repository.Repository, email, password string, verified bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		IsVerified:   verified,
	}
	if !verified {
		user.SetVerifyCode("123456", time.Now().Add(time.Hour).UTC())
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// SentMail is a message captured by MailRecorder.
type SentMail struct {
	To          string
	DisplayName string
	Code        string
}

// MailRecorder is an in-memory verification mail sender.
type MailRecorder struct {
	Err  error
	mu   sync.Mutex
	sent []SentMail
}

// SendVerification records the message, or returns Err when set.
func (m *MailRecorder) SendVerification(_ context.Context, to, displayName, code string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMail{To: to, DisplayName: displayName, Code: code})
	return nil
}

// Sent returns all recorded messages.
func (m *MailRecorder) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}

// Last returns the most recent message. It fails the test if nothing was sent.
func (m *MailRecorder) Last(t *testing.T) SentMail {
	t.Helper()
	sent := m.Sent()
	require.NotEmpty(t, sent, "no verification mail sent")
	return sent[len(sent)-1]
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

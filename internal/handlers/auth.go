// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"codeberg.org/oliverandrich/portfolio-admin/internal/apierr"
	"codeberg.org/oliverandrich/portfolio-admin/internal/auth"
	authsvc "codeberg.org/oliverandrich/portfolio-admin/internal/services/auth"
	"codeberg.org/oliverandrich/portfolio-admin/internal/services/session"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains the signup, verification and login handlers.
type AuthHandlers struct {
	auth     *authsvc.Service
	sessions *session.Manager
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(svc *authsvc.Service, sessions *session.Manager) *AuthHandlers {
	return &AuthHandlers{
		auth:     svc,
		sessions: sessions,
	}
}

// Signup creates or refreshes an unverified account and mails a code.
func (h *AuthHandlers) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bind(c, &req, "Email and password are required"); err != nil {
		return err
	}

	if _, err := h.auth.Signup(c.Request().Context(), authsvc.SignupParams{
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		return err
	}

	return respond(c, http.StatusCreated, nil, "Account created. Verification OTP sent to your email.")
}

// VerifyCode confirms an account with the mailed code.
func (h *AuthHandlers) VerifyCode(c echo.Context) error {
	var req VerifyCodeRequest
	if err := bind(c, &req, "Email and OTP are required"); err != nil {
		return err
	}

	if _, err := h.auth.Verify(c.Request().Context(), req.Email, req.OTP); err != nil {
		return err
	}

	return respond(c, http.StatusOK, nil, "Email verified successfully. You can now login.")
}

// ForgetPassword mails a fresh code to the address in the path.
func (h *AuthHandlers) ForgetPassword(c echo.Context) error {
	raw, err := url.PathUnescape(c.Param("email"))
	if err != nil {
		return apierr.BadRequest("Invalid email address")
	}
	address := strings.TrimSpace(raw)
	if address == "" {
		return apierr.BadRequest("Email is required")
	}

	user, err := h.auth.ForgetPassword(c.Request().Context(), address)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, map[string]string{"email": user.Email}, "OTP Sent Successfully")
}

// ResetPassword sets a new password using a code from ForgetPassword.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bind(c, &req, "Email, OTP and new password are required"); err != nil {
		return err
	}

	if _, err := h.auth.ResetPassword(c.Request().Context(), authsvc.ResetPasswordParams{
		Email:    req.Email,
		Code:     req.OTP,
		Password: req.Password,
	}); err != nil {
		return err
	}

	return respond(c, http.StatusOK, nil, "Password updated successfully. You can now login.")
}

// LoginData is returned by a successful login.
type LoginData struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

// Login checks the credentials and sets the session cookie.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req, "Please provide your credentials"); err != nil {
		return err
	}

	user, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	cookie, err := h.sessions.Create(user.ID, user.Email)
	if err != nil {
		return err
	}
	c.SetCookie(cookie)

	return respond(c, http.StatusOK, LoginData{ID: user.ID, Email: user.Email}, "Login successful")
}

// Logout clears the session cookie. It succeeds with or without a session.
func (h *AuthHandlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	return respond(c, http.StatusOK, nil, "Logged out successfully")
}

// MeData describes the logged-in account.
type MeData struct {
	ID         string `json:"_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"isVerified"`
}

// Me returns the account behind the current session.
func (h *AuthHandlers) Me(c echo.Context) error {
	claims := auth.GetSession(c.Request().Context())
	if claims == nil {
		return apierr.Unauthorized("Unauthorized")
	}

	user, err := h.auth.User(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, MeData{
		ID:         user.ID,
		Email:      user.Email,
		Role:       string(user.Role),
		IsVerified: user.IsVerified,
	}, "Current user")
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements signup with an e-mailed one-time code, code
// verification, password recovery and login.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"codeberg.org/oliverandrich/portfolio-admin/internal/apierr"
	"codeberg.org/oliverandrich/portfolio-admin/internal/config"
	"codeberg.org/oliverandrich/portfolio-admin/internal/models"
	"codeberg.org/oliverandrich/portfolio-admin/internal/repository"
	"codeberg.org/oliverandrich/portfolio-admin/internal/services/email"
	"codeberg.org/oliverandrich/portfolio-admin/internal/services/otp"
	"golang.org/x/crypto/bcrypt"
)

// Client-facing messages.
const (
	MsgUserExists      = "User already exists with this email"
	MsgUserNotFound    = "User not found"
	MsgAlreadyVerified = "Account is already verified"
	MsgCodeExpired     = "OTP has expired. Please sign up again."
	MsgResetExpired    = "OTP has expired. Please request a new one."
	MsgInvalidCode     = "Invalid OTP"
	MsgWrongPassword   = "Incorrect Password"
	MsgNotVerified     = "Please verify your email before logging in"
	MsgInvalidEmail    = "Invalid email address"
	MsgInvalidPassword = "Password does not meet requirements"
	MsgDeliveryFailed  = "Failed to send Verification email"
)

// Display names used when addressing the recipient of a code.
const (
	signupRecipient = "User"
	resetRecipient  = "Admin"
)

// dummyHash keeps login timing similar for unknown accounts.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

type Service struct {
	repo     *repository.Repository
	sender   email.Sender
	config   *config.AuthConfig
	policy   *PasswordPolicy
	now      func() time.Time
	newCode  func() (string, error)
	hashCost int
}

func NewService(repo *repository.Repository, sender email.Sender, cfg *config.AuthConfig) *Service {
	return &Service{
		repo:     repo,
		sender:   sender,
		config:   cfg,
		policy:   DefaultPasswordPolicy(),
		now:      time.Now,
		newCode:  otp.Generate,
		hashCost: bcrypt.DefaultCost,
	}
}

// NormalizeEmail returns the canonical form used as the account key.
func NormalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// CanonicalEmail normalizes address and reports whether it is a bare mailbox
// such as "bob@x.com". Display-name forms like "Bob <bob@x.com>" are rejected
// so every account is keyed by its address alone.
func CanonicalEmail(address string) (string, bool) {
	addr := NormalizeEmail(address)
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return addr, false
	}
	return addr, true
}

// SignupParams holds the parameters for a signup attempt.
type SignupParams struct {
	Email    string
	Password string
}

// Signup creates an unverified account, or refreshes the password and code of
// an existing unverified one, and mails a verification code.
func (s *Service) Signup(ctx context.Context, params SignupParams) (*models.User, error) {
	addr, ok := CanonicalEmail(params.Email)
	if !ok {
		return nil, apierr.BadRequest(MsgInvalidEmail)
	}
	if problems := s.policy.Check(params.Password, addr); len(problems) > 0 {
		return nil, apierr.BadRequest(MsgInvalidPassword, problems...)
	}

	user, err := s.repo.GetUserByEmail(ctx, addr)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = &models.User{Email: addr, Role: models.RoleUser}
	case err != nil:
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	case user.IsVerified:
		slog.Warn("signup_rejected", "email", addr, "reason", "already_verified")
		return nil, apierr.Conflict(MsgUserExists)
	}

	hash, err := s.hashPassword(params.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	code, err := s.issueCode(user)
	if err != nil {
		return nil, err
	}

	if user.ID == "" {
		err = s.repo.CreateUser(ctx, user)
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent signup for the same address.
			return nil, apierr.Conflict(MsgUserExists)
		}
	} else {
		err = s.repo.SaveUser(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}

	if err := s.sender.SendVerification(ctx, addr, signupRecipient, code); err != nil {
		slog.Error("signup_delivery_failed", "user_id", user.ID, "email", addr, "error", err)
		return nil, apierr.Internal(MsgDeliveryFailed, err)
	}

	slog.Info("signup_success", "user_id", user.ID, "email", addr)
	return user, nil
}

// Verify checks a signup code and marks the account as verified.
func (s *Service) Verify(ctx context.Context, address, code string) (*models.User, error) {
	user, err := s.findUser(ctx, address)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, apierr.BadRequest(MsgAlreadyVerified)
	}
	if err := s.checkCode(user, code, MsgCodeExpired); err != nil {
		slog.Warn("verify_failed", "user_id", user.ID, "reason", err.Message)
		return nil, err
	}

	user.IsVerified = true
	user.ClearVerifyCode()
	if err := s.repo.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}

	slog.Info("verify_success", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// ForgetPassword issues a fresh code to an existing account, verified or not.
func (s *Service) ForgetPassword(ctx context.Context, address string) (*models.User, error) {
	user, err := s.findUser(ctx, address)
	if err != nil {
		return nil, err
	}

	code, err := s.issueCode(user)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}

	if err := s.sender.SendVerification(ctx, user.Email, resetRecipient, code); err != nil {
		slog.Error("forget_password_delivery_failed", "user_id", user.ID, "email", user.Email, "error", err)
		return nil, apierr.BadRequest(MsgDeliveryFailed)
	}

	slog.Info("forget_password_code_sent", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// ResetPasswordParams holds the parameters for consuming a recovery code.
type ResetPasswordParams struct {
	Email    string
	Code     string
	Password string
}

// ResetPassword replaces the password of an account holding a valid code.
// The verification state is left untouched.
func (s *Service) ResetPassword(ctx context.Context, params ResetPasswordParams) (*models.User, error) {
	user, err := s.findUser(ctx, params.Email)
	if err != nil {
		return nil, err
	}
	if apiErr := s.checkCode(user, params.Code, MsgResetExpired); apiErr != nil {
		slog.Warn("reset_password_failed", "user_id", user.ID, "reason", apiErr.Message)
		return nil, apiErr
	}
	if problems := s.policy.Check(params.Password, user.Email); len(problems) > 0 {
		return nil, apierr.BadRequest(MsgInvalidPassword, problems...)
	}

	hash, err := s.hashPassword(params.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.ClearVerifyCode()
	if err := s.repo.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}

	slog.Info("reset_password_success", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Login checks the credentials and returns the user. It never modifies the account.
func (s *Service) Login(ctx context.Context, address, password string) (*models.User, error) {
	addr := NormalizeEmail(address)
	user, err := s.repo.GetUserByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", addr, "reason", "user_not_found")
			return nil, apierr.NotFound(MsgUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "email", addr, "reason", "invalid_password")
		return nil, apierr.Unauthorized(MsgWrongPassword)
	}

	if s.config.RequireVerified && !user.IsVerified {
		slog.Warn("login_failed", "email", addr, "reason", "not_verified")
		return nil, apierr.Unauthorized(MsgNotVerified)
	}

	slog.Info("login_success", "user_id", user.ID, "email", addr)
	return user, nil
}

// CreateAdmin creates a verified Admin account, or promotes and re-keys an
// existing one. It is meant for the command line, not the HTTP API.
func (s *Service) CreateAdmin(ctx context.Context, address, password string) (*models.User, error) {
	addr, ok := CanonicalEmail(address)
	if !ok {
		return nil, apierr.BadRequest(MsgInvalidEmail)
	}
	if problems := s.policy.Check(password, addr); len(problems) > 0 {
		return nil, apierr.BadRequest(MsgInvalidPassword, problems...)
	}

	user, err := s.repo.GetUserByEmail(ctx, addr)
	exists := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if !exists {
		user = &models.User{Email: addr}
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.Role = models.RoleAdmin
	user.IsVerified = true
	user.ClearVerifyCode()

	if exists {
		err = s.repo.SaveUser(ctx, user)
	} else {
		err = s.repo.CreateUser(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store admin: %w", err)
	}

	slog.Info("admin_saved", "user_id", user.ID, "email", addr, "promoted", exists)
	return user, nil
}

// User loads the account behind a session.
func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *Service) findUser(ctx context.Context, address string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(address))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// issueCode stores a fresh code with its expiry on the user (not yet persisted).
func (s *Service) issueCode(user *models.User) (string, error) {
	code, err := s.newCode()
	if err != nil {
		return "", err
	}
	user.SetVerifyCode(code, otp.ExpiresAt(s.now(), s.config.OTPTTL))
	return code, nil
}

// checkCode enforces expiry before comparing, so a stale code never matches.
func (s *Service) checkCode(user *models.User, code, expiredMsg string) *apierr.Error {
	if user.CodeExpired(s.now()) {
		return apierr.BadRequest(expiredMsg)
	}
	if !user.HasPendingCode() {
		return apierr.BadRequest(MsgInvalidCode)
	}
	submitted := strings.TrimSpace(code)
	if !otp.Valid(submitted) {
		return apierr.BadRequest(MsgInvalidCode)
	}
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(*user.VerifyCode)) != 1 {
		return apierr.BadRequest(MsgInvalidCode)
	}
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

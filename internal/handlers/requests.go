// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"strings"

	"codeberg.org/oliverandrich/portfolio-admin/internal/apierr"
	authsvc "codeberg.org/oliverandrich/portfolio-admin/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// validator is implemented by request bodies that check themselves after binding.
type validator interface {
	Validate() error
}

// bind decodes the JSON body into req and validates it.
func bind(c echo.Context, req validator, invalid string) error {
	if err := c.Bind(req); err != nil {
		return apierr.BadRequest(invalid, "request body must be a JSON object")
	}
	return req.Validate()
}

func validEmail(address string) bool {
	_, ok := authsvc.CanonicalEmail(address)
	return ok
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SignupRequest) Validate() error {
	var problems []string
	if blank(r.Email) {
		problems = append(problems, "email is required")
	} else if !validEmail(r.Email) {
		problems = append(problems, "email is not a valid address")
	}
	if blank(r.Password) {
		problems = append(problems, "password is required")
	}
	if len(problems) > 0 {
		return apierr.BadRequest("Email and password are required", problems...)
	}
	return nil
}

// VerifyCodeRequest is the body of POST /verify-code.
type VerifyCodeRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (r *VerifyCodeRequest) Validate() error {
	var problems []string
	if blank(r.Email) {
		problems = append(problems, "email is required")
	}
	if blank(r.OTP) {
		problems = append(problems, "otp is required")
	}
	if len(problems) > 0 {
		return apierr.BadRequest("Email and OTP are required", problems...)
	}
	return nil
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	var problems []string
	if blank(r.Email) {
		problems = append(problems, "email is required")
	}
	if blank(r.Password) {
		problems = append(problems, "password is required")
	}
	if len(problems) > 0 {
		return apierr.BadRequest("Please provide your credentials", problems...)
	}
	return nil
}

// ResetPasswordRequest is the body of POST /reset-password.
type ResetPasswordRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

func (r *ResetPasswordRequest) Validate() error {
	var problems []string
	if blank(r.Email) {
		problems = append(problems, "email is required")
	}
	if blank(r.OTP) {
		problems = append(problems, "otp is required")
	}
	if blank(r.Password) {
		problems = append(problems, "password is required")
	}
	if len(problems) > 0 {
		return apierr.BadRequest("Email, OTP and new password are required", problems...)
	}
	return nil
}

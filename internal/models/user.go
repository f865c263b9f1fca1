// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// Role is the account role. It does not yet drive authorization.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID               string     `db:"id" json:"_id"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Role             Role       `db:"role" json:"role"`
	VerifyCode       *string    `db:"verify_code" json:"-"`
	VerifyCodeExpiry *time.Time `db:"verify_code_expiry" json:"-"`
	IsVerified       bool       `db:"is_verified" json:"isVerified"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// SetVerifyCode attaches an outstanding one-time code. Code and expiry are
// always set together.
func (u *User) SetVerifyCode(code string, expiresAt time.Time) {
	u.VerifyCode = &code
	u.VerifyCodeExpiry = &expiresAt
}

// ClearVerifyCode removes the outstanding code and its expiry.
func (u *User) ClearVerifyCode() {
	u.VerifyCode = nil
	u.VerifyCodeExpiry = nil
}

// HasPendingCode reports whether a one-time code is outstanding.
func (u *User) HasPendingCode() bool {
	return u.VerifyCode != nil && u.VerifyCodeExpiry != nil
}

// CodeExpired reports whether the outstanding code is no longer accepted at
// now. A code expires at its expiry instant, not after it.
func (u *User) CodeExpired(now time.Time) bool {
	if u.VerifyCodeExpiry == nil {
		return false
	}
	return !now.Before(*u.VerifyCodeExpiry)
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/portfolio-admin/internal/models"
	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, role, verify_code, verify_code_expiry, is_verified, created_at, updated_at`

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by their (normalized) email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// CreateUser inserts a new user. ID, role and timestamps are filled in when empty.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if !user.Role.Valid() {
		return ErrInvalidRole
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (:id, :email, :password_hash, :role, :verify_code, :verify_code_expiry, :is_verified, :created_at, :updated_at)`,
		user)
	return wrapError(err)
}

// SaveUser persists all mutable fields of an existing user.
func (r *Repository) SaveUser(ctx context.Context, user *models.User) error {
	if !user.Role.Valid() {
		return ErrInvalidRole
	}
	user.UpdatedAt = time.Now().UTC()

	res, err := r.db.NamedExecContext(ctx,
		`UPDATE users SET
			email = :email,
			password_hash = :password_hash,
			role = :role,
			verify_code = :verify_code,
			verify_code_expiry = :verify_code_expiry,
			is_verified = :is_verified,
			updated_at = :updated_at
		 WHERE id = :id`,
		user)
	if err != nil {
		return wrapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

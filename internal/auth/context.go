// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"

	"codeberg.org/oliverandrich/portfolio-admin/internal/ctxkeys"
	"codeberg.org/oliverandrich/portfolio-admin/internal/services/session"
)

// WithSession returns a copy of ctx carrying the verified session claims.
func WithSession(ctx context.Context, claims *session.Claims) context.Context {
	return context.WithValue(ctx, ctxkeys.Session{}, claims)
}

// GetSession returns the session claims from the context, or nil if not authenticated.
func GetSession(ctx context.Context) *session.Claims {
	if claims, ok := ctx.Value(ctxkeys.Session{}).(*session.Claims); ok {
		return claims
	}
	return nil
}

// IsAuthenticated returns true if the context has a verified session.
func IsAuthenticated(ctx context.Context) bool {
	return GetSession(ctx) != nil
}

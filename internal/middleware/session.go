// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"

	"codeberg.org/oliverandrich/portfolio-admin/internal/apierr"
	"codeberg.org/oliverandrich/portfolio-admin/internal/auth"
	"codeberg.org/oliverandrich/portfolio-admin/internal/services/session"
	"github.com/labstack/echo/v4"
)

// SessionParser reads verified claims from a request.
type SessionParser interface {
	Parse(r *http.Request) *session.Claims
}

// LoadSession verifies the session cookie and stores its claims in the request context.
// Requests without a valid cookie pass through unauthenticated.
func LoadSession(sessions SessionParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if claims := sessions.Parse(c.Request()); claims != nil {
				ctx := auth.WithSession(c.Request().Context(), claims)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// RequireSession rejects API requests without a verified session.
func RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !auth.IsAuthenticated(c.Request().Context()) {
				return apierr.Unauthorized("Unauthorized")
			}
			return next(c)
		}
	}
}

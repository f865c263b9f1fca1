// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/portfolio-admin/internal/auth"
	"github.com/labstack/echo/v4"
)

// RouteClass tells the session gate how to treat a path.
type RouteClass int

const (
	Protected RouteClass = iota
	PublicExact
	PublicPrefix
)

func (c RouteClass) String() string {
	switch c {
	case PublicExact:
		return "public-exact"
	case PublicPrefix:
		return "public-prefix"
	default:
		return "protected"
	}
}

// IsPublic reports whether the class needs no session.
func (c RouteClass) IsPublic() bool {
	return c != Protected
}

const (
	LoginPath = "/login"
	HomePath  = "/"
)

var publicExact = map[string]struct{}{
	"/login":           {},
	"/forget-password": {},
	"/signup":          {},
}

var publicPrefixes = []string{
	"/reset-password",
	"/verify-code",
	"/api",
	"/src/api",
}

var apiPrefixes = []string{"/api", "/src/api"}

// AssetPrefixes hold the dashboard's static files and bundler output.
var AssetPrefixes = []string{"/static/", "/assets/"}

// HealthPath is the liveness probe.
const HealthPath = "/health"

// Classify returns the route class of a request path.
func Classify(path string) RouteClass {
	if _, ok := publicExact[path]; ok {
		return PublicExact
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return PublicPrefix
		}
	}
	return Protected
}

// IsAssetPath reports whether the path points at a dashboard asset.
func IsAssetPath(path string) bool {
	for _, prefix := range AssetPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// IsAPIPath reports whether the path belongs to the JSON API.
func IsAPIPath(path string) bool {
	for _, prefix := range apiPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Decide returns where to redirect a request, or "" to let it through.
// Visitors without a session are sent to the login page for protected paths.
// Logged-in users are sent home from the public UI pages, never from the API.
func Decide(path string, authenticated bool) string {
	class := Classify(path)
	switch {
	case !authenticated && !class.IsPublic():
		return LoginPath
	case authenticated && class.IsPublic() && !IsAPIPath(path):
		return HomePath
	default:
		return ""
	}
}

// Gate redirects requests according to Decide. It relies on LoadSession
// having run before it.
func Gate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if skipGate(path) {
				return next(c)
			}

			if target := Decide(path, auth.IsAuthenticated(c.Request().Context())); target != "" {
				return c.Redirect(http.StatusTemporaryRedirect, target)
			}
			return next(c)
		}
	}
}

// skipGate lets assets and the health probe through, so the login page can
// load its bundle without a session.
func skipGate(path string) bool {
	return path == HealthPath || path == "/favicon.ico" || IsAssetPath(path)
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// StripTrailingSlash makes "/login/" and "/login" the same route so the gate
// classifies both alike. Page requests are redirected to the canonical URL;
// API calls are rewritten in place because a redirect would drop their body.
// Register it with e.Pre.
func StripTrailingSlash() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if path == "/" || !strings.HasSuffix(path, "/") {
				return next(c)
			}

			canonical := strings.TrimRight(path, "/")
			if canonical == "" {
				canonical = "/"
			}

			if IsAPIPath(canonical) || (req.Method != http.MethodGet && req.Method != http.MethodHead) {
				req.URL.Path = canonical
				req.URL.RawPath = ""
				return next(c)
			}

			target := canonical
			if req.URL.RawQuery != "" {
				target += "?" + req.URL.RawQuery
			}
			return c.Redirect(http.StatusMovedPermanently, target)
		}
	}
}

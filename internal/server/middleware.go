// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/portfolio-admin/internal/config"
	"codeberg.org/oliverandrich/portfolio-admin/internal/middleware"
	"github.com/go-chi/cors"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func setupMiddleware(e *echo.Echo, cfg *config.Config, sessions middleware.SessionParser) {
	e.Pre(middleware.StripTrailingSlash())

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Secure())
	if len(cfg.Server.CORSOrigins) > 0 {
		e.Use(echo.WrapMiddleware(corsHandler(cfg.Server.CORSOrigins)))
	}
	e.Use(echomw.Gzip())
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dM", max(cfg.Server.MaxBodySize, 1))))
	e.Use(staticCacheHeaders())
	e.Use(middleware.Locale())
	e.Use(middleware.LoadSession(sessions))
	e.Use(middleware.Gate())
}

// corsHandler lets a dashboard served from another origin use the API with
// the session cookie.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{echo.HeaderAccept, echo.HeaderContentType, "Accept-Language"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// staticCacheHeaders marks fingerprinted dashboard assets as immutable.
func staticCacheHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if isHashedAsset(path) {
				c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			return next(c)
		}
	}
}

// isHashedAsset checks for bundler output such as /assets/index-3f9a1c2b.js
// or /static/app.3f9a1c2b.css: a run of at least eight hex characters right
// before the extension.
func isHashedAsset(path string) bool {
	if !middleware.IsAssetPath(path) {
		return false
	}

	name := path[strings.LastIndex(path, "/")+1:]
	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return false
	}
	stem := name[:dot]
	sep := strings.LastIndexAny(stem, ".-")
	if sep < 0 {
		return false
	}

	hash := stem[sep+1:]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		isDigit := c >= '0' && c <= '9'
		isHexLetter := (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isDigit && !isHexLetter {
			return false
		}
	}
	return true
}

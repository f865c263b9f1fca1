// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"log/slog"
	"os"

	"codeberg.org/oliverandrich/portfolio-admin/internal/config"
	"codeberg.org/oliverandrich/portfolio-admin/internal/handlers"
	"codeberg.org/oliverandrich/portfolio-admin/internal/middleware"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// apiPrefixes are the mount points of the JSON API. /src/api is kept for
// clients built against the old path layout.
var apiPrefixes = []string{"/api", "/src/api"}

func setupRoutes(e *echo.Echo, cfg *config.Config, svc *Services) {
	h := handlers.New(svc.Repo)
	ah := handlers.NewAuth(svc.Auth, svc.Sessions)

	e.GET(middleware.HealthPath, h.Health)

	for _, prefix := range apiPrefixes {
		api := e.Group(prefix)
		api.POST("/signup", ah.Signup)
		api.POST("/verify-code", ah.VerifyCode)
		api.GET("/forget-password/:email", ah.ForgetPassword)
		api.POST("/reset-password", ah.ResetPassword)
		api.POST("/login", ah.Login)
		api.DELETE("/logout", ah.Logout)
		api.GET("/me", ah.Me, middleware.RequireSession())
	}

	setupWebUI(e, cfg.Server.WebDir)
}

// setupWebUI serves the built dashboard. Unknown paths fall back to
// index.html so client-side routing works.
func setupWebUI(e *echo.Echo, dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		slog.Warn("web directory not found, dashboard is not served", "dir", dir)
		return
	}

	e.Use(echomw.StaticWithConfig(echomw.StaticConfig{
		Root:  dir,
		HTML5: true,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == middleware.HealthPath || middleware.IsAPIPath(path)
		},
	}))
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/portfolio-admin/internal/apierr"
	"github.com/labstack/echo/v4"
)

// Response is the envelope around every successful API answer.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the envelope around every failed API answer. Data is always null.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// respond writes a success envelope.
func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// ErrorHandler is installed as echo's HTTPErrorHandler. API errors keep their
// status and message, echo errors keep their status, and everything else is
// logged and answered with a generic 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := errorResponse(err)
	if resp.StatusCode >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", resp.StatusCode,
			"error", err,
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(resp.StatusCode)
	} else {
		writeErr = c.JSON(resp.StatusCode, resp)
	}
	if writeErr != nil {
		slog.Error("failed to write error response", "error", writeErr)
	}
}

func errorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Errors: []string{}}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		resp.StatusCode = he.Code
		resp.Message = httpErrorMessage(he)
		return resp
	}

	apiErr := apierr.As(err)
	resp.StatusCode = apiErr.Status
	resp.Message = apiErr.Message
	if len(apiErr.Errors) > 0 {
		resp.Errors = apiErr.Errors
	}
	return resp
}

func httpErrorMessage(he *echo.HTTPError) string {
	if he.Code >= http.StatusInternalServerError {
		return apierr.MsgInternal
	}
	switch m := he.Message.(type) {
	case string:
		return m
	case nil:
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}

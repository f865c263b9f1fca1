// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package apierr defines the error type carried from services to the JSON
// error envelope.
package apierr

import (
	"errors"
	"net/http"
)

// Error is an API failure with an HTTP status and a client-facing message.
type Error struct {
	Status  int
	Message string
	Errors  []string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an Error with the given status and message.
func New(status int, message string, details ...string) *Error {
	return &Error{Status: status, Message: message, Errors: details}
}

// Wrap creates an Error that keeps err as its cause.
func Wrap(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, cause: err}
}

func BadRequest(message string, details ...string) *Error {
	return New(http.StatusBadRequest, message, details...)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, message)
}

// Internal wraps an unexpected failure. The message is still shown to the client.
func Internal(message string, err error) *Error {
	return Wrap(http.StatusInternalServerError, message, err)
}

// MsgInternal is shown for failures that carry no client-facing message.
const MsgInternal = "Something went wrong"

// As extracts an *Error from err. Any other error becomes a 500 with a generic
// message and err as its cause.
func As(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(MsgInternal, err)
}

// Package apperr defines the error taxonomy shared by every component.
// Exactly four kinds cross the HTTP boundary: ValidationError (400),
// NotFoundError (404), UnauthorizedError (401) and InternalServerError (500).
package apperr

import (
	"errors"
	"net/http"
)

// Error is the only error type serialized to clients. Message and Action are
// user-facing; the wrapped cause is for logs only and never leaves the server.
type Error struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	Action     string `json:"action"`
	StatusCode int    `json:"statusCode"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Validation builds a 400 ValidationError with custom copy.
func Validation(message, action string) *Error {
	return &Error{
		Name:       "ValidationError",
		Message:    message,
		Action:     action,
		StatusCode: http.StatusBadRequest,
	}
}

// DuplicateUsername is the ValidationError for a username already in use.
func DuplicateUsername() *Error {
	return Validation(
		"The username provided is already in use.",
		"Use another username to perform this operation.",
	)
}

// DuplicateEmail is the ValidationError for an email already in use.
func DuplicateEmail() *Error {
	return Validation(
		"The email provided is already in use.",
		"Use another email to perform this operation.",
	)
}

// UserNotFound is the NotFoundError for an unknown username.
func UserNotFound() *Error {
	return &Error{
		Name:       "NotFoundError",
		Message:    "The username provided was not found in the system.",
		Action:     "Check that the username is typed correctly.",
		StatusCode: http.StatusNotFound,
	}
}

// NoActiveSession is the UnauthorizedError for a missing, unknown or expired
// session token. All three cases share this exact payload so the response
// never reveals whether a token exists.
func NoActiveSession() *Error {
	return &Error{
		Name:       "UnauthorizedError",
		Message:    "User does not have an active session.",
		Action:     "Check that this user is logged in and try again.",
		StatusCode: http.StatusUnauthorized,
	}
}

// InvalidCredentials is the UnauthorizedError for a failed login. Unknown
// email and wrong password are indistinguishable on purpose.
func InvalidCredentials() *Error {
	return &Error{
		Name:       "UnauthorizedError",
		Message:    "Authentication data does not match.",
		Action:     "Check that the data sent is correct.",
		StatusCode: http.StatusUnauthorized,
	}
}

// Internal wraps an unexpected failure. The cause stays server-side.
func Internal(cause error) *Error {
	return &Error{
		Name:       "InternalServerError",
		Message:    "An unexpected internal error occurred.",
		Action:     "Contact support.",
		StatusCode: http.StatusInternalServerError,
		cause:      cause,
	}
}

// From returns err as an *Error, converting anything unrecognized into an
// InternalServerError so no internal detail reaches the client.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for both an unknown username and a
	// wrong password, so responses cannot be used for username enumeration.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountInactive is returned when credentials are correct but the
	// account has been deactivated.
	ErrAccountInactive = errors.New("account is inactive")

	// ErrTooManyAttempts is returned when the login rate limit is exhausted.
	ErrTooManyAttempts = errors.New("too many login attempts")

	// ErrUnauthorized is returned by enforcement middleware when a protected
	// route is reached without an authenticated identity.
	ErrUnauthorized = errors.New("unauthorized")
)

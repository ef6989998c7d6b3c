package auth

import "errors"

// Sentinel errors for authentication and token validation.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenInvalid       = errors.New("auth: token invalid")
	ErrScopeDenied        = errors.New("auth: insufficient scope")
)

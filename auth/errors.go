package auth

import "errors"

// Authentication failures. All of them are fatal to a room connection.
var (
	ErrMissingToken   = errors.New("missing token")
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrMissingSubject = errors.New("token has no subject claim")
	ErrTokenRevoked   = errors.New("token has been revoked")
)

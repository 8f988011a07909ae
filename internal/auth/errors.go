package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrForbidden    = errors.New("auth: forbidden")

	// ErrInvalidToken indicates a token failed verification. It is collapsed
	// into ErrUnauthorized before it reaches a caller outside this package;
	// the distinction exists for logging only.
	ErrInvalidToken = errors.New("auth: invalid token")
)

package domain

import "errors"

// Outcome sentinels shared by services and transport. Services wrap them with %w.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTokenExpired       = errors.New("token expired")
	ErrMalformedToken     = errors.New("malformed token")
	ErrConflict           = errors.New("conflict")
	ErrInvalidTarget      = errors.New("invalid target")
	ErrStorageFailure     = errors.New("storage failure")
)

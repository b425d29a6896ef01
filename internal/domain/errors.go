package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation marks input that is missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated indicates a missing, invalid or expired token.
	ErrUnauthenticated = errors.New("not authorized, token failed")
	// ErrForbidden indicates the caller lacks the role or ownership required.
	ErrForbidden = errors.New("not authorized")
	// ErrConflict indicates the stored version no longer matches the caller's.
	ErrConflict = errors.New("version conflict")
	// ErrInvalidTransition is returned by the strict status policy.
	ErrInvalidTransition = errors.New("invalid status transition")
)

package repository

import "errors"

var (
	// ErrNotFound is returned when a requested document doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrCorrupt is returned when a document exists but cannot be decoded
	ErrCorrupt = errors.New("document corrupt")

	// ErrExists is returned when an immutable document is written twice
	ErrExists = errors.New("already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)

package archive

import (
	"errors"
	"fmt"
)

var (
	// ErrArchiveMissing indicates a requested week was never archived.
	ErrArchiveMissing = errors.New("archive missing")
	// ErrArchiveExists indicates the week was already archived.
	ErrArchiveExists = errors.New("archive already exists")
	// ErrInvalidInput indicates an invalid aggregation request.
	ErrInvalidInput = errors.New("invalid archive input")
)

// MissingError names the week whose archive is missing.
type MissingError struct {
	WeekID int
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("archive for week %d missing", e.WeekID)
}

func (e *MissingError) Unwrap() error { return ErrArchiveMissing }

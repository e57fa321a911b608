package ballot

import (
	"errors"
	"fmt"

	"github.com/rpggio/hitparade/internal/domain/window"
)

var (
	// ErrWeekNotFound indicates the requested week is not the active one.
	ErrWeekNotFound = window.ErrWeekNotFound
	// ErrAuthRequired indicates a ballot without a verified user.
	ErrAuthRequired = errors.New("verified user required")
	// ErrInvalidSelection indicates an empty, oversized or unknown song selection.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrAlreadyVoted indicates the user already cast a ballot this week.
	ErrAlreadyVoted = errors.New("already voted")
	// ErrNoBallot indicates the user has not voted this week.
	ErrNoBallot = errors.New("no ballot")
)

// Selection rejection reasons.
const (
	ReasonEmpty      = "empty"
	ReasonTooMany    = "too_many"
	ReasonUnknownIDs = "unknown_ids"
)

// SelectionError describes why a selection was rejected.
type SelectionError struct {
	Reason     string
	Limit      int
	InvalidIDs []int
}

func (e *SelectionError) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "invalid selection: no songs selected"
	case ReasonTooMany:
		return fmt.Sprintf("invalid selection: at most %d songs allowed", e.Limit)
	default:
		return fmt.Sprintf("invalid selection: unknown song ids %v", e.InvalidIDs)
	}
}

func (e *SelectionError) Unwrap() error { return ErrInvalidSelection }

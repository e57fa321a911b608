package window

import "errors"

var (
	// ErrWeekNotFound indicates the requested week is not the active one.
	ErrWeekNotFound = errors.New("week not found")
	// ErrVotingNotOpenedYet indicates voting was never opened for the week.
	ErrVotingNotOpenedYet = errors.New("voting not opened yet")
	// ErrVotingClosed indicates the week's voting window has ended.
	ErrVotingClosed = errors.New("voting closed")
	// ErrInvalidInput indicates invalid window input.
	ErrInvalidInput = errors.New("invalid window input")
)

package rollover

import (
	"errors"

	"github.com/rpggio/hitparade/internal/domain/window"
)

var (
	// ErrNoPreviousWeek indicates a rollover into the first week.
	ErrNoPreviousWeek = errors.New("no previous week")
	// ErrWeekNotFound indicates the previous week is not the active one.
	ErrWeekNotFound = window.ErrWeekNotFound
	// ErrInvalidInput indicates invalid rollover input.
	ErrInvalidInput = errors.New("invalid rollover input")
)

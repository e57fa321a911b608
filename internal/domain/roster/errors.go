package roster

import (
	"errors"

	"github.com/rpggio/hitparade/internal/domain/window"
)

var (
	// ErrWeekNotFound indicates the requested week is not the active one.
	ErrWeekNotFound = window.ErrWeekNotFound
	// ErrRefusedEmptyWrite indicates an attempt to replace a non-empty roster with nothing.
	ErrRefusedEmptyWrite = errors.New("refusing to overwrite non-empty roster with empty list")
	// ErrBadInputNormalizeWiped indicates non-empty input that normalized to nothing.
	ErrBadInputNormalizeWiped = errors.New("normalization removed every submitted entry")
)

package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/hitparade/internal/domain/archive"
	"github.com/rpggio/hitparade/internal/domain/ballot"
	"github.com/rpggio/hitparade/internal/domain/rollover"
	"github.com/rpggio/hitparade/internal/domain/roster"
	"github.com/rpggio/hitparade/internal/domain/window"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var errorTable = []struct {
	target error
	code   string
	hint   string
}{
	{window.ErrWeekNotFound, "WEEK_NOT_FOUND", "Call current_week and use the active week id"},
	{window.ErrVotingNotOpenedYet, "VOTING_NOT_OPENED_YET", "Call open_voting first"},
	{window.ErrVotingClosed, "VOTING_CLOSED", "Pass force=true to reopen, or roll over to the next week"},
	{ballot.ErrInvalidSelection, "INVALID_SELECTION", "Check song ids against list_songs"},
	{ballot.ErrAlreadyVoted, "ALREADY_VOTED", ""},
	{roster.ErrRefusedEmptyWrite, "REFUSED_EMPTY_WRITE", "Pass allow_empty=true to clear the roster on purpose"},
	{roster.ErrBadInputNormalizeWiped, "BAD_INPUT_NORMALIZE_WIPED", "Every item needs a positive id, an artist and a title"},
	{rollover.ErrNoPreviousWeek, "NO_PREVIOUS_WEEK", "Week 1 has no predecessor; replace_roster instead"},
	{archive.ErrArchiveMissing, "ARCHIVE_MISSING", "Archive the week first with archive_week"},
	{archive.ErrArchiveExists, "ARCHIVE_EXISTS", "Archives are write-once; read it instead"},
	{window.ErrInvalidInput, "INVALID_INPUT", "Check argument values"},
	{rollover.ErrInvalidInput, "INVALID_INPUT", "Every new track needs an artist and a title"},
	{archive.ErrInvalidInput, "INVALID_INPUT", "Pass at least one week id"},
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, row := range errorTable {
		if errors.Is(err, row.target) {
			out := &APIError{Code: row.code, Message: err.Error(), RecoveryHint: row.hint}
			var missing *archive.MissingError
			if errors.As(err, &missing) {
				out.Details = map[string]any{"week_id": missing.WeekID}
			}
			return out
		}
	}
	return &APIError{Code: "INTERNAL", Message: err.Error()}
}

func invalidInput(format string, args ...any) *APIError {
	return &APIError{Code: "INVALID_INPUT", Message: fmt.Sprintf(format, args...), RecoveryHint: "Check argument values"}
}

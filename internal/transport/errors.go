package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rpggio/hitparade/internal/domain/activity"
	"github.com/rpggio/hitparade/internal/domain/archive"
	"github.com/rpggio/hitparade/internal/domain/ballot"
	"github.com/rpggio/hitparade/internal/domain/rollover"
	"github.com/rpggio/hitparade/internal/domain/roster"
	"github.com/rpggio/hitparade/internal/domain/window"
	"github.com/rpggio/hitparade/internal/identity"
)

// Error codes returned in the "error" field.
const (
	CodeWeekNotFound           = "WEEK_NOT_FOUND"
	CodeAuthRequired           = "AUTH_REQUIRED"
	CodeAuthInvalid            = "AUTH_INVALID"
	CodeVotingNotOpenedYet     = "VOTING_NOT_OPENED_YET"
	CodeVotingClosed           = "VOTING_CLOSED"
	CodeInvalidSelection       = "INVALID_SELECTION"
	CodeAlreadyVoted           = "ALREADY_VOTED"
	CodeNoBallot               = "NO_BALLOT"
	CodeRefusedEmptyWrite      = "REFUSED_EMPTY_WRITE"
	CodeBadInputNormalizeWiped = "BAD_INPUT_NORMALIZE_WIPED"
	CodeNoPreviousWeek         = "NO_PREVIOUS_WEEK"
	CodeArchiveMissing         = "ARCHIVE_MISSING"
	CodeArchiveExists          = "ARCHIVE_EXISTS"
	CodeConfigError            = "CONFIG_ERROR"
	CodeBadAdminToken          = "BAD_ADMIN_TOKEN"
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeInternal               = "INTERNAL"
)

// APIError is the JSON error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// errBadRequest marks malformed requests caught by the handlers themselves.
var errBadRequest = errors.New("bad request")

var errorTable = []struct {
	target error
	status int
	code   string
}{
	{window.ErrWeekNotFound, http.StatusNotFound, CodeWeekNotFound},
	{identity.ErrAuthRequired, http.StatusUnauthorized, CodeAuthRequired},
	{ballot.ErrAuthRequired, http.StatusUnauthorized, CodeAuthRequired},
	{identity.ErrAuthInvalid, http.StatusUnauthorized, CodeAuthInvalid},
	{window.ErrVotingNotOpenedYet, http.StatusForbidden, CodeVotingNotOpenedYet},
	{window.ErrVotingClosed, http.StatusForbidden, CodeVotingClosed},
	{ballot.ErrInvalidSelection, http.StatusBadRequest, CodeInvalidSelection},
	{ballot.ErrAlreadyVoted, http.StatusConflict, CodeAlreadyVoted},
	{ballot.ErrNoBallot, http.StatusNotFound, CodeNoBallot},
	{roster.ErrRefusedEmptyWrite, http.StatusConflict, CodeRefusedEmptyWrite},
	{roster.ErrBadInputNormalizeWiped, http.StatusBadRequest, CodeBadInputNormalizeWiped},
	{rollover.ErrNoPreviousWeek, http.StatusConflict, CodeNoPreviousWeek},
	{archive.ErrArchiveMissing, http.StatusNotFound, CodeArchiveMissing},
	{archive.ErrArchiveExists, http.StatusConflict, CodeArchiveExists},
	{ErrAdminNotConfigured, http.StatusInternalServerError, CodeConfigError},
	{ErrUnauthorized, http.StatusForbidden, CodeBadAdminToken},
	{errBadRequest, http.StatusBadRequest, CodeInvalidRequest},
	{window.ErrInvalidInput, http.StatusBadRequest, CodeInvalidRequest},
	{rollover.ErrInvalidInput, http.StatusBadRequest, CodeInvalidRequest},
	{archive.ErrInvalidInput, http.StatusBadRequest, CodeInvalidRequest},
	{activity.ErrInvalidInput, http.StatusBadRequest, CodeInvalidRequest},
}

// MapError maps domain errors to an HTTP status and error code. Unknown
// errors become a 500 with a generic message.
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
			return &APIError{Status: row.status, Code: row.code, Message: err.Error(), Details: details(err)}
		}
	}
	return &APIError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error"}
}

func details(err error) any {
	var sel *ballot.SelectionError
	if errors.As(err, &sel) {
		d := map[string]any{"reason": sel.Reason}
		if sel.Limit > 0 {
			d["limit"] = sel.Limit
		}
		if len(sel.InvalidIDs) > 0 {
			d["song_ids"] = sel.InvalidIDs
		}
		return d
	}
	var missing *archive.MissingError
	if errors.As(err, &missing) {
		return map[string]any{"week_id": missing.WeekID}
	}
	return nil
}

func badRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: CodeInvalidRequest, Message: message}
}

// WriteJSON writes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError writes the error envelope for err.
func WriteError(w http.ResponseWriter, err error) *APIError {
	apiErr := MapError(err)
	WriteJSON(w, apiErr.Status, apiErr)
	return apiErr
}

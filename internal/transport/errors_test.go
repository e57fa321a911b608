package transport

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpggio/hitparade/internal/domain/archive"
	"github.com/rpggio/hitparade/internal/domain/ballot"
	"github.com/rpggio/hitparade/internal/domain/rollover"
	"github.com/rpggio/hitparade/internal/domain/roster"
	"github.com/rpggio/hitparade/internal/domain/window"
	"github.com/rpggio/hitparade/internal/identity"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("loading: %w", roster.ErrWeekNotFound), http.StatusNotFound, CodeWeekNotFound},
		{identity.ErrAuthRequired, http.StatusUnauthorized, CodeAuthRequired},
		{ballot.ErrAuthRequired, http.StatusUnauthorized, CodeAuthRequired},
		{fmt.Errorf("%w: signature mismatch", identity.ErrAuthInvalid), http.StatusUnauthorized, CodeAuthInvalid},
		{window.ErrVotingNotOpenedYet, http.StatusForbidden, CodeVotingNotOpenedYet},
		{window.ErrVotingClosed, http.StatusForbidden, CodeVotingClosed},
		{ballot.ErrAlreadyVoted, http.StatusConflict, CodeAlreadyVoted},
		{roster.ErrRefusedEmptyWrite, http.StatusConflict, CodeRefusedEmptyWrite},
		{roster.ErrBadInputNormalizeWiped, http.StatusBadRequest, CodeBadInputNormalizeWiped},
		{rollover.ErrNoPreviousWeek, http.StatusConflict, CodeNoPreviousWeek},
		{archive.ErrArchiveExists, http.StatusConflict, CodeArchiveExists},
		{ErrAdminNotConfigured, http.StatusInternalServerError, CodeConfigError},
		{ErrUnauthorized, http.StatusForbidden, CodeBadAdminToken},
		{rollover.ErrInvalidInput, http.StatusBadRequest, CodeInvalidRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			apiErr := MapError(tt.err)
			require.Equal(t, tt.status, apiErr.Status)
			require.Equal(t, tt.code, apiErr.Code)
		})
	}
	require.Nil(t, MapError(nil))
}

func TestMapError_Details(t *testing.T) {
	apiErr := MapError(&ballot.SelectionError{Reason: ballot.ReasonUnknownIDs, InvalidIDs: []int{7, 9}})
	require.Equal(t, CodeInvalidSelection, apiErr.Code)
	require.Equal(t, map[string]any{"reason": ballot.ReasonUnknownIDs, "song_ids": []int{7, 9}}, apiErr.Details)

	apiErr = MapError(&archive.MissingError{WeekID: 4})
	require.Equal(t, CodeArchiveMissing, apiErr.Code)
	require.Equal(t, map[string]any{"week_id": 4}, apiErr.Details)
}

func TestMapError_InternalHidesMessage(t *testing.T) {
	apiErr := MapError(errors.New("open /data/votes.json: permission denied"))
	require.Equal(t, "internal error", apiErr.Message)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, badRequest("bad params"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"INVALID_REQUEST","message":"bad params"}`, rec.Body.String())
}

func TestParseWeekList(t *testing.T) {
	ids, err := ParseWeekList("3, 4,6-8")
	require.NoError(t, err)
	require.Equal(t, []int{3, 4, 6, 7, 8}, ids)

	_, err = ParseWeekList("3,x")
	require.Error(t, err)
	_, err = ParseWeekList("8-6")
	require.Error(t, err)
}

package transport_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rpggio/hitparade/internal/config"
	"github.com/rpggio/hitparade/internal/domain/enrich"
	"github.com/rpggio/hitparade/internal/testserver"
	"github.com/rpggio/hitparade/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

var weekOneRoster = []map[string]any{
	{"id": 1, "artist": "Queen", "title": "Bohemian Rhapsody", "is_new": true},
	{"id": 2, "artist": "ABBA", "title": "Waterloo", "weeks_in_chart": 3},
	{"id": 3, "artist": "Blur", "title": "Song 2", "weeks_in_chart": 10},
}

type weekView struct {
	ID       int        `json:"id"`
	Title    string     `json:"title"`
	Status   string     `json:"status"`
	ClosesAt *time.Time `json:"closes_at"`
	Songs    int        `json:"songs"`
	MaxVotes int        `json:"max_votes"`
}

type songView struct {
	ID           int    `json:"id"`
	Artist       string `json:"artist"`
	IsNew        bool   `json:"is_new"`
	WeeksInChart int    `json:"weeks_in_chart"`
	Source       string `json:"source"`
}

func songIDs(songs []songView) []int {
	out := make([]int, 0, len(songs))
	for _, s := range songs {
		out = append(out, s.ID)
	}
	return out
}

func seedAndOpen(t *testing.T, ts *testserver.TestServer) {
	t.Helper()
	resp := ts.Admin(t, http.MethodPut, "/admin/weeks/current/songs", weekOneRoster)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	resp = ts.Admin(t, http.MethodPost, "/admin/weeks/current/open", nil)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
}

func TestHTTPServer_Health(t *testing.T) {
	ts := testserver.New(t)

	resp := ts.Do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	var body struct {
		OK     bool  `json:"ok"`
		TS     int64 `json:"ts"`
		WeekID int   `json:"week_id"`
	}
	resp.JSON(t, &body)
	require.True(t, body.OK)
	require.Equal(t, testserver.Start.Unix(), body.TS)
	require.Equal(t, 1, body.WeekID)
	require.NotEmpty(t, resp.Body)
}

func TestHTTPServer_WeekLifecycle(t *testing.T) {
	ts := testserver.New(t)

	var week weekView
	resp := ts.Do(t, http.MethodGet, "/weeks/current", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	resp.JSON(t, &week)
	require.Equal(t, 1, week.ID)
	require.Equal(t, "Week 1", week.Title)
	require.Equal(t, "not_opened", week.Status)
	require.Equal(t, 10, week.MaxVotes)

	resp = ts.Admin(t, http.MethodPut, "/admin/weeks/current/songs", weekOneRoster)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	var songs []songView
	ts.Do(t, http.MethodGet, "/weeks/1/songs?filter=new", nil, nil).JSON(t, &songs)
	require.Equal(t, []int{1}, songIDs(songs))
	ts.Do(t, http.MethodGet, "/weeks/1/songs?filter=current", nil, nil).JSON(t, &songs)
	require.Equal(t, []int{2, 3}, songIDs(songs))
	ts.Do(t, http.MethodGet, "/weeks/1/songs?search=QUEEN", nil, nil).JSON(t, &songs)
	require.Equal(t, []int{1}, songIDs(songs))

	resp = ts.Do(t, http.MethodGet, "/weeks/1/songs?filter=old", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.Status)
	resp = ts.Do(t, http.MethodGet, "/weeks/2/songs", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.Status)
	require.Equal(t, transport.CodeWeekNotFound, resp.ErrorCode(t))

	vote := map[string]any{"song_ids": []int{1, 2}}
	resp = ts.AsUser(t, 42, http.MethodPost, "/weeks/1/vote", vote)
	require.Equal(t, http.StatusForbidden, resp.Status)
	require.Equal(t, transport.CodeVotingNotOpenedYet, resp.ErrorCode(t))

	resp = ts.Admin(t, http.MethodPost, "/admin/weeks/current/open", nil)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	resp.JSON(t, &week)
	require.Equal(t, "open", week.Status)
	require.NotNil(t, week.ClosesAt)
	require.True(t, week.ClosesAt.Equal(time.Date(2026, time.October, 17, 15, 0, 0, 0, time.UTC)), week.ClosesAt)

	resp = ts.Do(t, http.MethodPost, "/weeks/1/vote", vote, nil)
	require.Equal(t, http.StatusUnauthorized, resp.Status)
	require.Equal(t, transport.CodeAuthRequired, resp.ErrorCode(t))

	resp = ts.Do(t, http.MethodPost, "/weeks/1/vote", vote, map[string]string{
		transport.InitDataHeader: strings.Replace(ts.InitData(42), "hash=", "hash=00", 1),
	})
	require.Equal(t, http.StatusUnauthorized, resp.Status)
	require.Equal(t, transport.CodeAuthInvalid, resp.ErrorCode(t))

	resp = ts.AsUser(t, 42, http.MethodPost, "/weeks/1/vote", vote)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	var accepted struct {
		OK           bool   `json:"ok"`
		WeekID       int    `json:"week_id"`
		UserID       string `json:"user_id"`
		VotedSongIDs []int  `json:"voted_song_ids"`
		BallotID     string `json:"ballot_id"`
	}
	resp.JSON(t, &accepted)
	require.True(t, accepted.OK)
	require.Equal(t, "42", accepted.UserID)
	require.Equal(t, []int{1, 2}, accepted.VotedSongIDs)
	require.NotEmpty(t, accepted.BallotID)

	resp = ts.AsUser(t, 42, http.MethodPost, "/weeks/1/vote", map[string]any{"song_ids": []int{3}})
	require.Equal(t, http.StatusConflict, resp.Status)
	require.Equal(t, transport.CodeAlreadyVoted, resp.ErrorCode(t))

	resp = ts.AsUser(t, 43, http.MethodPost, "/weeks/1/vote", map[string]any{"song_ids": []int{2, 99}})
	require.Equal(t, http.StatusBadRequest, resp.Status)
	require.Equal(t, transport.CodeInvalidSelection, resp.ErrorCode(t))
	require.Contains(t, string(resp.Body), `"song_ids":[99]`)

	resp = ts.AsUser(t, 43, http.MethodPost, "/weeks/1/vote", map[string]any{"song_ids": []int{2}})
	require.Equal(t, http.StatusOK, resp.Status)

	resp = ts.Do(t, http.MethodGet, "/weeks/1/results", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	require.JSONEq(t, `[{"song_id":1,"votes":1},{"song_id":2,"votes":2}]`, string(resp.Body))

	var mine struct {
		Voted   bool  `json:"voted"`
		SongIDs []int `json:"song_ids"`
	}
	ts.AsUser(t, 42, http.MethodGet, "/weeks/1/my-vote", nil).JSON(t, &mine)
	require.True(t, mine.Voted)
	require.Equal(t, []int{1, 2}, mine.SongIDs)
	ts.AsUser(t, 44, http.MethodGet, "/weeks/1/my-vote", nil).JSON(t, &mine)
	require.False(t, mine.Voted)

	var summary struct {
		Voters     int `json:"voters"`
		TotalVotes int `json:"total_votes"`
		Items      []struct {
			SongID int `json:"song_id"`
			Votes  int `json:"votes"`
		} `json:"items"`
	}
	ts.Do(t, http.MethodGet, "/weeks/1/summary", nil, nil).JSON(t, &summary)
	require.Equal(t, 2, summary.Voters)
	require.Equal(t, 3, summary.TotalVotes)
	require.Len(t, summary.Items, 3)
	require.Equal(t, 2, summary.Items[0].SongID)

	ts.Clock.Set(time.Date(2026, time.October, 17, 16, 0, 0, 0, time.UTC))
	resp = ts.AsUser(t, 44, http.MethodPost, "/weeks/1/vote", map[string]any{"song_ids": []int{1}})
	require.Equal(t, http.StatusForbidden, resp.Status)
	require.Equal(t, transport.CodeVotingClosed, resp.ErrorCode(t))

	resp = ts.Admin(t, http.MethodPost, "/admin/rollover", map[string]any{"new": []string{"Muse - Uprising"}})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	var rolled struct {
		FromWeekID int  `json:"from_week_id"`
		WeekID     int  `json:"week_id"`
		Carried    int  `json:"carried"`
		Retired    int  `json:"retired"`
		Added      int  `json:"added"`
		Total      int  `json:"total"`
		Archived   bool `json:"archived"`
		Opened     bool `json:"opened"`
	}
	resp.JSON(t, &rolled)
	require.Equal(t, 1, rolled.FromWeekID)
	require.Equal(t, 2, rolled.WeekID)
	require.Equal(t, 2, rolled.Carried)
	require.Equal(t, 1, rolled.Retired)
	require.Equal(t, 1, rolled.Added)
	require.Equal(t, 3, rolled.Total)
	require.True(t, rolled.Archived)
	require.True(t, rolled.Opened)

	ts.Do(t, http.MethodGet, "/weeks/current", nil, nil).JSON(t, &week)
	require.Equal(t, 2, week.ID)
	require.Equal(t, "open", week.Status)
	require.True(t, week.ClosesAt.Equal(time.Date(2026, time.October, 24, 15, 0, 0, 0, time.UTC)))

	ts.Do(t, http.MethodGet, "/weeks/2/songs", nil, nil).JSON(t, &songs)
	require.Len(t, songs, 3)
	byID := map[int]songView{}
	for _, s := range songs {
		byID[s.ID] = s
	}
	require.Equal(t, 4, byID[2].WeeksInChart)
	require.False(t, byID[1].IsNew)
	require.True(t, byID[4].IsNew)
	require.Equal(t, "Muse", byID[4].Artist)

	resp = ts.Do(t, http.MethodGet, "/weeks/1/results", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.Status)
	resp = ts.Do(t, http.MethodGet, "/weeks/2/results", nil, nil)
	require.JSONEq(t, `[]`, string(resp.Body))
}

func TestHTTPServer_Archives(t *testing.T) {
	ts := testserver.New(t)
	seedAndOpen(t, ts)
	require.Equal(t, http.StatusOK, ts.AsUser(t, 7, http.MethodPost, "/weeks/1/vote", map[string]any{"song_ids": []int{3}}).Status)

	resp := ts.Admin(t, http.MethodGet, "/admin/archives/1", nil)
	require.Equal(t, http.StatusNotFound, resp.Status)
	require.Equal(t, transport.CodeArchiveMissing, resp.ErrorCode(t))

	resp = ts.Admin(t, http.MethodPost, "/admin/weeks/1/archive", nil)
	require.Equal(t, http.StatusCreated, resp.Status, string(resp.Body))
	resp = ts.Admin(t, http.MethodPost, "/admin/weeks/1/archive", nil)
	require.Equal(t, http.StatusConflict, resp.Status)
	require.Equal(t, transport.CodeArchiveExists, resp.ErrorCode(t))

	resp = ts.Admin(t, http.MethodGet, "/admin/archives", nil)
	require.JSONEq(t, `{"week_ids":[1]}`, string(resp.Body))

	var agg struct {
		WeekIDs []int `json:"week_ids"`
		Items   []struct {
			Rank   int `json:"rank"`
			SongID int `json:"song_id"`
			Votes  int `json:"votes"`
		} `json:"items"`
	}
	resp = ts.Admin(t, http.MethodPost, "/admin/archives/aggregate", map[string]any{"week_ids": []int{1}})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	resp.JSON(t, &agg)
	require.Equal(t, []int{1}, agg.WeekIDs)
	require.Equal(t, 3, agg.Items[0].SongID)
	require.Equal(t, 1, agg.Items[0].Rank)

	resp = ts.Admin(t, http.MethodPost, "/admin/archives/aggregate?weeks=1,2", nil)
	require.Equal(t, http.StatusNotFound, resp.Status)
	require.Equal(t, transport.CodeArchiveMissing, resp.ErrorCode(t))
}

func TestHTTPServer_AdminGuards(t *testing.T) {
	ts := testserver.New(t)

	resp := ts.Do(t, http.MethodPut, "/admin/weeks/current/songs", weekOneRoster, nil)
	require.Equal(t, http.StatusForbidden, resp.Status)
	require.Equal(t, transport.CodeBadAdminToken, resp.ErrorCode(t))

	resp = ts.Do(t, http.MethodPut, "/admin/weeks/current/songs", weekOneRoster, map[string]string{
		transport.AdminTokenHeader: "guess",
	})
	require.Equal(t, http.StatusForbidden, resp.Status)

	unconfigured := testserver.New(t, func(c *config.Config) { c.Auth.AdminToken = "" })
	resp = unconfigured.Admin(t, http.MethodGet, "/admin/activity", nil)
	require.Equal(t, http.StatusInternalServerError, resp.Status)
	require.Equal(t, transport.CodeConfigError, resp.ErrorCode(t))
}

func TestHTTPServer_RosterGuardrails(t *testing.T) {
	ts := testserver.New(t)
	seedAndOpen(t, ts)

	resp := ts.Admin(t, http.MethodPut, "/admin/weeks/current/songs", []any{})
	require.Equal(t, http.StatusConflict, resp.Status)
	require.Equal(t, transport.CodeRefusedEmptyWrite, resp.ErrorCode(t))

	resp = ts.Admin(t, http.MethodPut, "/admin/weeks/current/songs", []any{map[string]any{"id": 0, "artist": "x"}})
	require.Equal(t, http.StatusBadRequest, resp.Status)
	require.Equal(t, transport.CodeBadInputNormalizeWiped, resp.ErrorCode(t))

	var songs []songView
	ts.Do(t, http.MethodGet, "/weeks/1/songs", nil, nil).JSON(t, &songs)
	require.Len(t, songs, 3)

	resp = ts.Admin(t, http.MethodPut, "/admin/weeks/current/songs?allow_empty=true", "[]")
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	ts.Do(t, http.MethodGet, "/weeks/1/songs", nil, nil).JSON(t, &songs)
	require.Empty(t, songs)

	resp = ts.Admin(t, http.MethodPut, "/admin/weeks/current/songs", map[string]any{"items": weekOneRoster[:1]})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	resp = ts.Admin(t, http.MethodPut, "/admin/weeks/current/songs", "{not json")
	require.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestHTTPServer_RolloverPreconditions(t *testing.T) {
	ts := testserver.New(t)
	seedAndOpen(t, ts)

	resp := ts.Admin(t, http.MethodPost, "/admin/rollover", map[string]any{"week_id": 1})
	require.Equal(t, http.StatusConflict, resp.Status)
	require.Equal(t, transport.CodeNoPreviousWeek, resp.ErrorCode(t))

	resp = ts.Admin(t, http.MethodPost, "/admin/rollover", map[string]any{"new": []string{"no separator"}})
	require.Equal(t, http.StatusBadRequest, resp.Status)

	resp = ts.Admin(t, http.MethodPost, "/admin/rollover", map[string]any{
		"new_tracks": []map[string]string{{"artist": "", "title": "Nameless"}},
	})
	require.Equal(t, http.StatusBadRequest, resp.Status)

	// nothing was mutated by the rejected requests
	var week weekView
	ts.Do(t, http.MethodGet, "/weeks/current", nil, nil).JSON(t, &week)
	require.Equal(t, 1, week.ID)
}

func TestHTTPServer_OpenAndCloseEarly(t *testing.T) {
	ts := testserver.New(t)
	seedAndOpen(t, ts)

	resp := ts.Admin(t, http.MethodPost, "/admin/weeks/current/close", nil)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	resp = ts.AsUser(t, 5, http.MethodPost, "/weeks/1/vote", map[string]any{"song_ids": []int{1}})
	require.Equal(t, transport.CodeVotingClosed, resp.ErrorCode(t))

	resp = ts.Admin(t, http.MethodPost, "/admin/weeks/current/open", nil)
	require.Equal(t, http.StatusForbidden, resp.Status)
	require.Equal(t, transport.CodeVotingClosed, resp.ErrorCode(t))

	resp = ts.Admin(t, http.MethodPost, "/admin/weeks/current/open", map[string]any{"force": true})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	resp = ts.AsUser(t, 5, http.MethodPost, "/weeks/1/vote", map[string]any{"song_ids": []int{1}})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
}

func TestHTTPServer_Enrich(t *testing.T) {
	ts := testserver.New(t)
	resp := ts.Admin(t, http.MethodPut, "/admin/weeks/current/songs", weekOneRoster)
	require.Equal(t, http.StatusOK, resp.Status)

	ts.Catalog.Media["queen - bohemian rhapsody"] = &enrich.Media{Cover: "https://img/queen.jpg", PreviewURL: "https://p/queen.m4a"}

	resp = ts.Admin(t, http.MethodPost, "/admin/weeks/current/songs/enrich", map[string]any{"publish": true})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	var res struct {
		Processed int  `json:"processed"`
		Updated   int  `json:"updated"`
		NotFound  int  `json:"not_found"`
		Opened    bool `json:"opened"`
	}
	resp.JSON(t, &res)
	require.Equal(t, 3, res.Processed)
	require.Equal(t, 1, res.Updated)
	require.Equal(t, 2, res.NotFound)
	require.True(t, res.Opened)

	resp = ts.Do(t, http.MethodGet, "/weeks/1/songs?search=queen", nil, nil)
	require.Contains(t, string(resp.Body), "https://img/queen.jpg")
}

func TestHTTPServer_StateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ts := testserver.NewInDir(t, dir)
	seedAndOpen(t, ts)
	require.Equal(t, http.StatusOK, ts.AsUser(t, 42, http.MethodPost, "/weeks/1/vote", map[string]any{"song_ids": []int{1, 3}}).Status)

	restarted := testserver.NewInDir(t, dir)
	resp := restarted.Do(t, http.MethodGet, "/weeks/1/results", nil, nil)
	require.JSONEq(t, `[{"song_id":1,"votes":1},{"song_id":3,"votes":1}]`, string(resp.Body))

	resp = restarted.AsUser(t, 42, http.MethodPost, "/weeks/1/vote", map[string]any{"song_ids": []int{2}})
	require.Equal(t, transport.CodeAlreadyVoted, resp.ErrorCode(t))
}

func TestHTTPServer_ActivityAndMetrics(t *testing.T) {
	ts := testserver.New(t)
	seedAndOpen(t, ts)
	ts.AsUser(t, 1, http.MethodPost, "/weeks/1/vote", map[string]any{"song_ids": []int{1}})
	ts.AsUser(t, 1, http.MethodPost, "/weeks/1/vote", map[string]any{"song_ids": []int{1}})

	var activity struct {
		Items []struct {
			Type   string `json:"type"`
			WeekID int    `json:"week_id"`
		} `json:"items"`
	}
	resp := ts.Admin(t, http.MethodGet, "/admin/activity?limit=10", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	resp.JSON(t, &activity)
	require.Len(t, activity.Items, 2)
	require.Equal(t, "voting_opened", activity.Items[0].Type)
	require.Equal(t, "roster_replaced", activity.Items[1].Type)

	resp = ts.Do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	body := string(resp.Body)
	require.Contains(t, body, "hitparade_ballots_accepted_total 1")
	require.Contains(t, body, `hitparade_ballots_rejected_total{code="ALREADY_VOTED"} 1`)
	require.Contains(t, body, "hitparade_http_requests_total")
}

func TestHTTPServer_MCPRequiresBearer(t *testing.T) {
	ts := testserver.New(t)

	resp := ts.Do(t, http.MethodPost, "/mcp", `{"jsonrpc":"2.0","method":"ping","id":1}`, nil)
	require.Equal(t, http.StatusUnauthorized, resp.Status)
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}

func TestHTTPServer_MCPOverHTTP(t *testing.T) {
	ts := testserver.New(t)
	ctx := context.Background()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "console", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint: ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearerTransport{
			token: testserver.AdminToken,
			base:  http.DefaultTransport,
		}},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "replace_roster",
		Arguments: map[string]any{"items": weekOneRoster},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	// the console and the HTTP API share one service graph
	var songs []songView
	ts.Do(t, http.MethodGet, "/weeks/1/songs", nil, nil).JSON(t, &songs)
	require.Len(t, songs, 3)
}

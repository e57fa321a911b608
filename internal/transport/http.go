package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/hitparade/internal/app"
	"github.com/rpggio/hitparade/internal/domain/ballot"
	"github.com/rpggio/hitparade/internal/domain/chart"
)

const maxBodyBytes = 1 << 20

// Options configures optional routes.
type Options struct {
	// MCP is mounted at /mcp behind bearer auth when set.
	MCP http.Handler
	// Now stamps the health response; defaults to time.Now.
	Now func() time.Time
}

// Server wires HTTP handlers.
type Server struct {
	app    *app.App
	logger *slog.Logger
	now    func() time.Time
}

// NewServer creates an HTTP server router with middleware.
func NewServer(a *app.App, opts Options) *chi.Mux {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	srv := &Server{app: a, logger: a.Logger, now: opts.Now}
	admin := AdminMiddleware(StaticToken(a.Config.Auth.AdminToken))

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(a.Logger, a.Metrics))

	r.Get("/health", srv.handleHealth)
	r.Method(http.MethodGet, "/metrics", a.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware(a.Identity))
		r.Get("/weeks/current", srv.handleCurrentWeek)
		r.Route("/weeks/{weekID}", func(r chi.Router) {
			r.Get("/songs", srv.handleSongs)
			r.Post("/vote", srv.handleVote)
			r.Get("/my-vote", srv.handleMyVote)
			r.Get("/results", srv.handleResults)
			r.Get("/summary", srv.handleSummary)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(admin)
		r.Put("/weeks/current/songs", srv.handleReplaceRoster)
		r.Post("/weeks/current/open", srv.handleOpenVoting)
		r.Post("/weeks/current/close", srv.handleCloseVoting)
		r.Post("/weeks/current/songs/enrich", srv.handleEnrich)
		r.Post("/rollover", srv.handleRollover)
		r.Post("/weeks/{weekID}/archive", srv.handleArchive)
		r.Get("/archives", srv.handleListArchives)
		r.Get("/archives/{weekID}", srv.handleGetArchive)
		r.Post("/archives/aggregate", srv.handleAggregate)
		r.Get("/activity", srv.handleActivity)
	})

	if opts.MCP != nil {
		mcpAuth := AuthMiddleware(StaticToken(a.Config.Auth.AdminToken))
		r.Handle("/mcp", mcpAuth(opts.MCP))
		r.Handle("/mcp/*", mcpAuth(opts.MCP))
	}

	return r
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) *APIError {
	apiErr := WriteError(w, err)
	requestID, _ := RequestIDFromContext(r.Context())
	if apiErr.Status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", requestID, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "request_id", requestID, "code", apiErr.Code, "error", err)
	}
	return apiErr
}

func weekParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "weekID")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, badRequest(fmt.Sprintf("invalid week id %q", raw))
	}
	return id, nil
}

// decodeBody decodes an optional JSON body; an empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"ok": true, "ts": s.now().Unix()}
	if weekID, err := s.app.Window.ActiveWeek(r.Context()); err == nil {
		resp["week_id"] = weekID
	}
	WriteJSON(w, http.StatusOK, resp)
}

type currentWeekResponse struct {
	ID       int        `json:"id"`
	Title    string     `json:"title"`
	Status   string     `json:"status"`
	OpenedAt *time.Time `json:"opened_at,omitempty"`
	ClosesAt *time.Time `json:"closes_at,omitempty"`
	Songs    int        `json:"songs"`
	MaxVotes int        `json:"max_votes"`
}

func (s *Server) handleCurrentWeek(w http.ResponseWriter, r *http.Request) {
	week, err := s.app.Roster.Current(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, currentWeekResponse{
		ID:       week.ID,
		Title:    week.Title,
		Status:   string(week.Status),
		OpenedAt: week.OpenedAt,
		ClosesAt: week.ClosesAt,
		Songs:    week.Songs,
		MaxVotes: s.app.Ballots.MaxVotes(),
	})
}

func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	weekID, err := weekParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	kind, err := chart.ParseFilterKind(r.URL.Query().Get("filter"))
	if err != nil {
		s.fail(w, r, badRequest(err.Error()))
		return
	}
	entries, err := s.app.Roster.Filter(r.Context(), weekID, kind, r.URL.Query().Get("search"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, entries)
}

type voteRequest struct {
	SongIDs []int `json:"song_ids"`
}

type voteResponse struct {
	OK           bool   `json:"ok"`
	WeekID       int    `json:"week_id"`
	UserID       string `json:"user_id"`
	VotedSongIDs []int  `json:"voted_song_ids"`
	BallotID     string `json:"ballot_id"`
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	weekID, err := weekParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req voteRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	user, authErr := UserFromContext(r.Context())
	userID := ""
	if user != nil {
		userID = user.ID
	}
	b, err := s.app.Ballots.Cast(r.Context(), ballot.CastRequest{
		WeekID:  weekID,
		UserID:  userID,
		SongIDs: req.SongIDs,
	})
	if err != nil {
		// Window state is reported before identity problems.
		if errors.Is(err, ballot.ErrAuthRequired) && authErr != nil {
			err = authErr
		}
		apiErr := s.fail(w, r, err)
		s.app.Metrics.BallotRejected(apiErr.Code)
		return
	}
	s.app.Metrics.BallotAccepted()
	WriteJSON(w, http.StatusOK, voteResponse{
		OK:           true,
		WeekID:       weekID,
		UserID:       b.UserID,
		VotedSongIDs: b.SongIDs,
		BallotID:     b.ID,
	})
}

func (s *Server) handleMyVote(w http.ResponseWriter, r *http.Request) {
	weekID, err := weekParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := UserFromContext(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.app.Ballots.MyBallot(r.Context(), weekID, user.ID)
	if errors.Is(err, ballot.ErrNoBallot) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"week_id": weekID, "user_id": user.ID, "voted": false, "song_ids": []int{},
		})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"week_id":   weekID,
		"user_id":   b.UserID,
		"voted":     true,
		"song_ids":  b.SongIDs,
		"ballot_id": b.ID,
		"cast_at":   b.CastAt,
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	weekID, err := weekParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	counts, err := s.app.Ballots.Tally(r.Context(), weekID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, counts)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	weekID, err := weekParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summary, err := s.app.Ballots.Summary(r.Context(), weekID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(key)))
	return err == nil && v
}

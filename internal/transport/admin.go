package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/hitparade/internal/domain/activity"
	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/domain/enrich"
	"github.com/rpggio/hitparade/internal/domain/rollover"
	"github.com/rpggio/hitparade/internal/domain/roster"
	"github.com/rpggio/hitparade/internal/domain/window"
)

// decodeRoster accepts a bare list of entries or an object with "items".
func decodeRoster(r *http.Request) ([]chart.RawEntry, error) {
	var raw json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, badRequest("roster body is required")
	}
	if strings.HasPrefix(trimmed, "[") {
		return decodeRawItems(raw)
	}
	var envelope struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Items) == 0 {
		return nil, badRequest(`roster body must be a list or {"items": [...]}`)
	}
	return decodeRawItems(envelope.Items)
}

func decodeRawItems(data json.RawMessage) ([]chart.RawEntry, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var values []any
	if err := dec.Decode(&values); err != nil {
		return nil, badRequest("roster items must be a list: " + err.Error())
	}
	items := make([]chart.RawEntry, 0, len(values))
	for _, v := range values {
		// Non-object items count as dropped during normalization.
		obj, _ := v.(map[string]any)
		items = append(items, chart.RawEntry(obj))
	}
	return items, nil
}

func (s *Server) handleReplaceRoster(w http.ResponseWriter, r *http.Request) {
	items, err := decodeRoster(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	weekID, err := s.app.Window.ActiveWeek(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.app.Roster.Replace(r.Context(), weekID, items, roster.SaveOptions{
		AllowEmpty: queryBool(r, "allow_empty"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

type openRequest struct {
	ClosesAt *time.Time `json:"closes_at"`
	Force    bool       `json:"force"`
}

func (s *Server) handleOpenVoting(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	info, err := s.app.Window.Open(r.Context(), window.OpenRequest{
		ClosesAt: req.ClosesAt,
		Force:    req.Force || queryBool(r, "force"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, info)
}

func (s *Server) handleCloseVoting(w http.ResponseWriter, r *http.Request) {
	weekID, err := s.app.Window.ActiveWeek(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	info, err := s.app.Window.Close(r.Context(), weekID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, info)
}

type enrichRequest struct {
	Force   bool `json:"force"`
	Publish bool `json:"publish"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.app.Enrich.Enrich(r.Context(), enrich.Request{
		Force:   req.Force || queryBool(r, "force"),
		Publish: req.Publish || queryBool(r, "publish"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

type rolloverRequest struct {
	WeekID          int           `json:"week_id"`
	NewTracks       []chart.Track `json:"new_tracks"`
	New             []string      `json:"new"`
	TopN            int           `json:"top_n"`
	MaxWeeksInChart int           `json:"max_weeks_in_chart"`
	OpenVoting      *bool         `json:"open_voting"`
}

func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	var req rolloverRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	tracks := append([]chart.Track(nil), req.NewTracks...)
	for _, line := range req.New {
		t, ok := rollover.ParseTrack(line)
		if !ok {
			s.fail(w, r, badRequest(fmt.Sprintf(`track %q must look like "Artist - Title"`, line)))
			return
		}
		tracks = append(tracks, t)
	}
	res, err := s.app.Rollover(r.Context(), rollover.Request{
		WeekID:          req.WeekID,
		NewTracks:       tracks,
		TopN:            req.TopN,
		MaxWeeksInChart: req.MaxWeeksInChart,
		OpenVoting:      req.OpenVoting,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	weekID, err := weekParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := s.app.Archive.Archive(r.Context(), weekID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleListArchives(w http.ResponseWriter, r *http.Request) {
	ids, err := s.app.Archive.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"week_ids": ids})
}

func (s *Server) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	weekID, err := weekParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := s.app.Archive.Get(r.Context(), weekID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, snap)
}

type aggregateRequest struct {
	WeekIDs []int `json:"week_ids"`
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if weeks := r.URL.Query().Get("weeks"); weeks != "" {
		ids, err := ParseWeekList(weeks)
		if err != nil {
			s.fail(w, r, badRequest(err.Error()))
			return
		}
		req.WeekIDs = append(req.WeekIDs, ids...)
	}
	agg, err := s.app.Archive.Aggregate(r.Context(), req.WeekIDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, agg)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := activity.ListActivityOptions{}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.fail(w, r, badRequest("invalid limit"))
			return
		}
		opts.Limit = limit
	}
	if v := q.Get("week_id"); v != "" {
		weekID, err := strconv.Atoi(v)
		if err != nil {
			s.fail(w, r, badRequest("invalid week_id"))
			return
		}
		opts.WeekID = weekID
	}
	if v := q.Get("type"); v != "" {
		t := activity.ActivityType(v)
		opts.ActivityType = &t
	}
	entries, err := s.app.Activity.GetRecentActivity(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": entries})
}

// ParseWeekList parses "3,4" or "3-5" style week lists.
func ParseWeekList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			from, err1 := strconv.Atoi(strings.TrimSpace(lo))
			to, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil || from > to || to-from > 520 {
				return nil, fmt.Errorf("invalid week range %q", part)
			}
			for id := from; id <= to; id++ {
				out = append(out, id)
			}
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid week id %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}

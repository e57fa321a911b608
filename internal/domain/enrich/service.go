package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rpggio/hitparade/internal/domain/activity"
	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/domain/window"
)

// Service fills missing cover art and previews for the active roster.
type Service struct {
	lookup     Lookup
	roster     Roster
	weeks      Weeks
	activities activity.Logger
	logger     *slog.Logger
}

// NewService creates a new enrichment service.
func NewService(lookup Lookup, r Roster, w Weeks, activities activity.Logger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{lookup: lookup, roster: r, weeks: w, activities: activities, logger: logger}
}

// found is a catalog hit for a roster entry as it looked when the lookup ran.
type found struct {
	artist string
	title  string
	media  *Media
}

// Enrich looks up media for entries that lack it. Entries with lockMedia
// are never touched. Lookup failures are counted and never fail the pass.
// Lookups run without the roster lock; hits are merged by id into the
// roster as it is at save time, so a replacement made meanwhile survives.
func (s *Service) Enrich(ctx context.Context, req Request) (*Result, error) {
	weekID, err := s.weeks.ActiveWeek(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.roster.Load(ctx, weekID)
	if err != nil {
		return nil, err
	}

	res := &Result{WeekID: weekID}
	hits := make(map[int]found)
	for _, e := range entries {
		res.Processed++
		if e.LockMedia {
			res.Locked++
			continue
		}
		if e.HasMedia() && !req.Force {
			res.Skipped++
			continue
		}

		media, err := s.lookup.Lookup(ctx, e.Artist, e.Title)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.Failed++
			s.logger.Warn("catalog lookup failed", "song_id", e.ID, "artist", e.Artist, "title", e.Title, "error", err)
			continue
		}
		if media == nil {
			res.NotFound++
			continue
		}
		hits[e.ID] = found{artist: e.Artist, title: e.Title, media: media}
	}

	if len(hits) > 0 {
		err := s.roster.Update(ctx, weekID, func(current []chart.Entry) bool {
			for i := range current {
				e := &current[i]
				hit, ok := hits[e.ID]
				if !ok || e.LockMedia || e.Artist != hit.artist || e.Title != hit.title {
					continue
				}
				if apply(e, hit.media, req.Force) {
					res.Updated++
				}
			}
			return res.Updated > 0
		})
		if err != nil {
			return nil, fmt.Errorf("saving enriched roster: %w", err)
		}
		res.Skipped += len(hits) - res.Updated
	}
	if req.Publish {
		info, err := s.weeks.Open(ctx, window.OpenRequest{WeekID: weekID})
		if err != nil {
			return nil, fmt.Errorf("opening voting: %w", err)
		}
		res.Opened = info.Status == window.StateOpen
		res.ClosesAt = info.ClosesAt
	}

	s.logger.Info("roster enriched", "week_id", weekID, "updated", res.Updated, "failed", res.Failed, "not_found", res.NotFound)
	activity.Record(ctx, s.activities, s.logger, activity.ActivityEntry{
		ActivityType: activity.TypeRosterEnriched,
		WeekID:       weekID,
		Summary:      fmt.Sprintf("enriched %d of %d entries", res.Updated, res.Processed),
		Details: map[string]any{
			"updated": res.Updated, "skipped": res.Skipped, "locked": res.Locked,
			"not_found": res.NotFound, "failed": res.Failed, "force": req.Force, "publish": req.Publish,
		},
	})
	return res, nil
}

// apply copies media onto the entry. Without force only empty fields are filled.
func apply(e *chart.Entry, m *Media, force bool) bool {
	changed := false
	if m.Cover != "" && (force || e.Cover == nil || *e.Cover == "") {
		if e.Cover == nil || *e.Cover != m.Cover {
			e.Cover = chart.StringPtr(m.Cover)
			changed = true
		}
	}
	if m.PreviewURL != "" && (force || e.PreviewURL == nil || *e.PreviewURL == "") {
		if e.PreviewURL == nil || *e.PreviewURL != m.PreviewURL {
			e.PreviewURL = chart.StringPtr(m.PreviewURL)
			changed = true
		}
	}
	return changed
}

package rollover

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rpggio/hitparade/internal/domain/activity"
	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/domain/roster"
	"github.com/rpggio/hitparade/internal/domain/window"
)

// Options configures rollover defaults.
type Options struct {
	TopN              int
	MaxWeeksInChart   int
	ArchiveOnRollover bool
	OpenVoting        bool
}

// Service moves the chart from one week to the next.
type Service struct {
	roster     Roster
	ballots    Ballots
	weeks      Weeks
	archiver   Archiver
	activities activity.Logger
	opts       Options
	logger     *slog.Logger

	mu sync.Mutex
}

// NewService creates a new rollover service. archiver may be nil when
// archiving on rollover is disabled.
func NewService(r Roster, b Ballots, w Weeks, a Archiver, activities activity.Logger, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.MaxWeeksInChart <= 0 {
		opts.MaxWeeksInChart = DefaultMaxWeeksInChart
	}
	return &Service{roster: r, ballots: b, weeks: w, archiver: a, activities: activities, opts: opts, logger: logger}
}

// Rollover builds week W+1 from week W's results, resets its ballots and
// makes it the active week.
func (s *Service) Rollover(ctx context.Context, req Request) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range req.NewTracks {
		if !t.Valid() {
			return nil, fmt.Errorf("track %d needs artist and title: %w", i+1, ErrInvalidInput)
		}
	}
	if req.TopN < 0 || req.MaxWeeksInChart < 0 {
		return nil, fmt.Errorf("negative limits: %w", ErrInvalidInput)
	}
	topN := s.opts.TopN
	if req.TopN > 0 {
		topN = req.TopN
	}
	maxWeeks := s.opts.MaxWeeksInChart
	if req.MaxWeeksInChart > 0 {
		maxWeeks = req.MaxWeeksInChart
	}
	open := s.opts.OpenVoting
	if req.OpenVoting != nil {
		open = *req.OpenVoting
	}

	active, err := s.weeks.ActiveWeek(ctx)
	if err != nil {
		return nil, err
	}
	target := req.WeekID
	if target == 0 {
		target = active + 1
	}
	if target <= 1 {
		return nil, ErrNoPreviousWeek
	}
	prev := target - 1
	if prev != active {
		return nil, fmt.Errorf("previous week %d is not active week %d: %w", prev, active, ErrWeekNotFound)
	}

	lastID, err := s.weeks.LastSongID(ctx)
	if err != nil {
		return nil, err
	}

	var (
		plan     Plan
		previous []chart.Entry
		archived bool
	)
	staged, resumed, err := s.roster.Pending(ctx, target)
	if err != nil {
		return nil, err
	}
	if resumed {
		s.logger.Warn("finishing interrupted rollover", "from", prev, "to", target, "entries", len(staged))
		plan = Plan{Entries: staged, LastSongID: max(lastID, chart.MaxID(staged))}
	} else {
		previous, err = s.roster.Load(ctx, prev)
		if err != nil {
			return nil, err
		}
		counts, err := s.ballots.Counts(ctx, prev)
		if err != nil {
			return nil, err
		}
		plan = Compute(previous, counts, req.NewTracks, lastID, topN, maxWeeks)

		archived, err = s.archivePrevious(ctx, prev)
		if err != nil {
			return nil, err
		}
		if len(plan.Entries) == 0 {
			s.logger.Warn("rollover produced an empty roster", "week_id", target)
		}
		if err := s.roster.Publish(ctx, target, plan.Entries, roster.SaveOptions{AllowEmpty: len(plan.Entries) == 0}); err != nil {
			return nil, fmt.Errorf("publishing week %d: %w", target, err)
		}
	}

	if err := s.ballots.Reset(ctx, target); err != nil {
		return nil, s.unpublish(ctx, prev, previous, resumed, fmt.Errorf("resetting ballots for week %d: %w", target, err))
	}
	info, err := s.weeks.Advance(ctx, window.AdvanceRequest{
		FromWeekID: prev,
		ToWeekID:   target,
		LastSongID: plan.LastSongID,
		Open:       open,
	})
	if err != nil {
		return nil, s.unpublish(ctx, prev, previous, resumed, fmt.Errorf("advancing to week %d: %w", target, err))
	}

	res := &Result{
		FromWeekID: prev,
		WeekID:     target,
		Carried:    plan.Carried,
		Retired:    plan.Retired,
		Added:      plan.Added,
		Total:      len(plan.Entries),
		NextSongID: plan.LastSongID + 1,
		Archived:   archived,
		Opened:     info.Status == window.StateOpen,
		ClosesAt:   info.ClosesAt,
		Resumed:    resumed,
		Entries:    chart.Clone(plan.Entries),
	}
	s.logger.Info("rollover complete",
		"from", prev, "to", target, "carried", res.Carried, "retired", res.Retired, "added", res.Added)
	activity.Record(ctx, s.activities, s.logger, activity.ActivityEntry{
		ActivityType: activity.TypeWeekRolledOver,
		WeekID:       target,
		Summary:      fmt.Sprintf("rolled over week %d into week %d", prev, target),
		Details: map[string]any{
			"carried": res.Carried, "retired": res.Retired, "added": res.Added,
			"total": res.Total, "archived": archived, "top_n": topN, "max_weeks_in_chart": maxWeeks,
			"resumed": resumed,
		},
	})
	return res, nil
}

// unpublish puts the previous week's roster back so the active week keeps
// serving. A roster published by an earlier attempt is left for the next retry.
func (s *Service) unpublish(ctx context.Context, weekID int, entries []chart.Entry, resumed bool, cause error) error {
	if resumed {
		return cause
	}
	if err := s.roster.Restore(ctx, weekID, entries); err != nil {
		s.logger.Error("could not restore roster after failed rollover; rerun rollover to finish it",
			"week_id", weekID, "error", err)
	}
	return cause
}

func (s *Service) archivePrevious(ctx context.Context, weekID int) (bool, error) {
	if !s.opts.ArchiveOnRollover || s.archiver == nil {
		return false, nil
	}
	exists, err := s.archiver.Exists(ctx, weekID)
	if err != nil {
		return false, fmt.Errorf("checking archive for week %d: %w", weekID, err)
	}
	if exists {
		return false, nil
	}
	if _, err := s.archiver.Archive(ctx, weekID); err != nil {
		return false, fmt.Errorf("archiving week %d: %w", weekID, err)
	}
	return true, nil
}

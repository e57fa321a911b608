package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rpggio/hitparade/internal/domain/activity"
	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/repository"
)

// Service is the single source of truth for the active week's entries.
type Service struct {
	repo       Repository
	weeks      Weeks
	activities activity.Logger
	logger     *slog.Logger

	mu      sync.Mutex
	loaded  bool
	corrupt bool
	weekID  int
	entries []chart.Entry
}

// NewService creates a new roster service.
func NewService(repo Repository, weeks Weeks, activities activity.Logger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, weeks: weeks, activities: activities, logger: logger}
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	active, err := s.weeks.ActiveWeek(ctx)
	if err != nil {
		return err
	}

	doc, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Info("roster document absent, starting empty", "week_id", active)
		doc = &Document{WeekID: active}
	case errors.Is(err, repository.ErrCorrupt):
		s.logger.Error("roster document unreadable, serving empty roster", "week_id", active, "error", err)
		s.corrupt = true
		doc = &Document{WeekID: active}
	case err != nil:
		return fmt.Errorf("loading roster: %w", err)
	}
	if doc.WeekID == 0 {
		doc.WeekID = active
	}

	res := chart.Normalize(doc.Items)
	switch {
	case res.Fallback:
		s.logger.Warn("roster normalization fell back to lenient parse",
			"week_id", doc.WeekID, "input", res.Input, "kept", len(res.Entries))
	case res.Input > 0 && len(res.Entries) == 0:
		s.logger.Error("roster normalization found no usable entries", "week_id", doc.WeekID, "input", res.Input)
	case res.Dropped > 0:
		s.logger.Warn("roster entries dropped during normalization", "week_id", doc.WeekID, "dropped", res.Dropped)
	}
	if doc.WeekID != active {
		s.logger.Error("roster document belongs to another week", "document_week_id", doc.WeekID, "active_week_id", active)
	}

	s.weekID = doc.WeekID
	s.entries = res.Entries
	s.loaded = true
	return nil
}

func (s *Service) activeEntries(ctx context.Context, weekID int) ([]chart.Entry, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	active, err := s.weeks.ActiveWeek(ctx)
	if err != nil {
		return nil, err
	}
	if weekID != active || weekID != s.weekID {
		return nil, fmt.Errorf("week %d: %w", weekID, ErrWeekNotFound)
	}
	return s.entries, nil
}

// Load returns a copy of the week's entries in storage order.
func (s *Service) Load(ctx context.Context, weekID int) ([]chart.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.activeEntries(ctx, weekID)
	if err != nil {
		return nil, err
	}
	return chart.Clone(entries), nil
}

// Filter returns the week's entries projected by kind and search text.
func (s *Service) Filter(ctx context.Context, weekID int, kind chart.FilterKind, search string) ([]chart.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.activeEntries(ctx, weekID)
	if err != nil {
		return nil, err
	}
	return chart.Clone(chart.Filter(entries, kind, search)), nil
}

// Current describes the active week together with its voting window.
func (s *Service) Current(ctx context.Context) (Week, error) {
	info, err := s.weeks.Current(ctx)
	if err != nil {
		return Week{}, err
	}
	entries, err := s.Load(ctx, info.ID)
	if err != nil {
		return Week{}, err
	}
	return Week{
		ID:       info.ID,
		Title:    info.Title,
		Status:   info.Status,
		OpenedAt: info.OpenedAt,
		ClosesAt: info.ClosesAt,
		Songs:    len(entries),
	}, nil
}

// Save persists entries for the active week.
func (s *Service) Save(ctx context.Context, weekID int, entries []chart.Entry, opts SaveOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.activeEntries(ctx, weekID); err != nil {
		return err
	}
	return s.write(ctx, weekID, chart.NormalizeEntries(entries), opts)
}

// Update applies fn to a copy of the week's current entries while holding
// the roster lock and saves the copy when fn reports a change.
func (s *Service) Update(ctx context.Context, weekID int, fn func(entries []chart.Entry) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.activeEntries(ctx, weekID)
	if err != nil {
		return err
	}
	next := chart.Clone(entries)
	if !fn(next) {
		return nil
	}
	return s.write(ctx, weekID, chart.NormalizeEntries(next), SaveOptions{})
}

// Pending returns the roster already published for weekID when weekID is
// the week after the active one. ok is false when no such roster is stored.
func (s *Service) Pending(ctx context.Context, weekID int) (entries []chart.Entry, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, false, err
	}
	active, err := s.weeks.ActiveWeek(ctx)
	if err != nil {
		return nil, false, err
	}
	if weekID != active+1 || s.weekID != weekID {
		return nil, false, nil
	}
	return chart.Clone(s.entries), true, nil
}

// Restore writes the active week's entries back after a publish whose week
// never became active.
func (s *Service) Restore(ctx context.Context, weekID int, entries []chart.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	active, err := s.weeks.ActiveWeek(ctx)
	if err != nil {
		return err
	}
	if weekID != active {
		return fmt.Errorf("restoring week %d with active week %d: %w", weekID, active, ErrWeekNotFound)
	}
	if err := s.write(ctx, weekID, entries, SaveOptions{AllowEmpty: true}); err != nil {
		return err
	}
	s.logger.Warn("roster restored after unfinished rollover", "week_id", weekID, "entries", len(entries))
	return nil
}

// Publish writes the roster for the week that is about to become active.
// Only the week directly after the active one may be published.
func (s *Service) Publish(ctx context.Context, weekID int, entries []chart.Entry, opts SaveOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	active, err := s.weeks.ActiveWeek(ctx)
	if err != nil {
		return err
	}
	if weekID != active+1 {
		return fmt.Errorf("publishing week %d with active week %d: %w", weekID, active, ErrWeekNotFound)
	}
	return s.write(ctx, weekID, chart.NormalizeEntries(entries), opts)
}

// Replace normalizes raw items and replaces the active week's roster with them.
func (s *Service) Replace(ctx context.Context, weekID int, items []chart.RawEntry, opts SaveOptions) (*ReplaceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.activeEntries(ctx, weekID); err != nil {
		return nil, err
	}

	res := chart.Normalize(items)
	if len(items) > 0 && len(res.Entries) == 0 {
		return nil, fmt.Errorf("%d items submitted: %w", len(items), ErrBadInputNormalizeWiped)
	}
	if err := s.write(ctx, weekID, res.Entries, opts); err != nil {
		return nil, err
	}
	if err := s.weeks.EnsureSongIDAtLeast(ctx, chart.MaxID(res.Entries)); err != nil {
		return nil, fmt.Errorf("advancing song id counter: %w", err)
	}

	s.logger.Info("roster replaced", "week_id", weekID, "entries", len(res.Entries), "dropped", res.Dropped)
	activity.Record(ctx, s.activities, s.logger, activity.ActivityEntry{
		ActivityType: activity.TypeRosterReplaced,
		WeekID:       weekID,
		Summary:      fmt.Sprintf("roster replaced with %d entries", len(res.Entries)),
		Details:      map[string]any{"input": res.Input, "dropped": res.Dropped, "fallback": res.Fallback},
	})
	return &ReplaceResult{
		WeekID:   weekID,
		Entries:  chart.Clone(res.Entries),
		Input:    res.Input,
		Dropped:  res.Dropped,
		Fallback: res.Fallback,
	}, nil
}

// write persists and then swaps in-memory state. Caller holds mu.
func (s *Service) write(ctx context.Context, weekID int, entries []chart.Entry, opts SaveOptions) error {
	if len(entries) == 0 && !opts.AllowEmpty && (len(s.entries) > 0 || s.corrupt) {
		s.logger.Warn("refused empty roster write", "week_id", weekID, "previous", len(s.entries))
		return ErrRefusedEmptyWrite
	}
	if err := s.repo.Save(ctx, weekID, entries); err != nil {
		return fmt.Errorf("saving roster for week %d: %w", weekID, err)
	}
	s.weekID = weekID
	s.entries = chart.Clone(entries)
	s.corrupt = false
	return nil
}

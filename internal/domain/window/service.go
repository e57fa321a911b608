package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/hitparade/internal/domain/activity"
	"github.com/rpggio/hitparade/internal/repository"
)

// Options configures the window service.
type Options struct {
	Schedule      Schedule
	InitialWeekID int
	Clock         func() time.Time
}

// OpenRequest opens voting for a week.
type OpenRequest struct {
	// WeekID defaults to the active week.
	WeekID int
	// ClosesAt overrides the scheduled close.
	ClosesAt *time.Time
	// Force restamps openedAt even if the week is already open.
	Force bool
}

// AdvanceRequest moves the active week forward after a rollover.
type AdvanceRequest struct {
	FromWeekID int
	ToWeekID   int
	LastSongID int
	Open       bool
}

// Service owns the week meta document: the active week, the song id
// counter and each week's voting window.
type Service struct {
	repo       Repository
	activities activity.Logger
	opts       Options
	logger     *slog.Logger

	mu   sync.Mutex
	meta *Meta
}

// NewService creates a new window service.
func NewService(repo Repository, activities activity.Logger, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Schedule.Location == nil {
		opts.Schedule = DefaultSchedule()
	}
	if opts.InitialWeekID <= 0 {
		opts.InitialWeekID = 1
	}
	return &Service{repo: repo, activities: activities, opts: opts, logger: logger}
}

// Schedule returns the configured weekly close.
func (s *Service) Schedule() Schedule {
	return s.opts.Schedule
}

func (s *Service) load(ctx context.Context) (*Meta, error) {
	if s.meta != nil {
		return s.meta, nil
	}
	meta, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Info("week meta absent, cold start", "active_week_id", s.opts.InitialWeekID)
		meta = &Meta{}
	case errors.Is(err, repository.ErrCorrupt):
		s.logger.Error("week meta unreadable, starting from defaults", "error", err)
		meta = &Meta{}
	case err != nil:
		return nil, fmt.Errorf("loading week meta: %w", err)
	}
	if meta.ActiveWeekID <= 0 {
		meta.ActiveWeekID = s.opts.InitialWeekID
	}
	if meta.Weeks == nil {
		meta.Weeks = map[int]*WeekState{}
	}
	s.meta = meta
	return meta, nil
}

func (s *Service) commit(ctx context.Context, next *Meta) error {
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("saving week meta: %w", err)
	}
	s.meta = next
	return nil
}

// ActiveWeek returns the id of the week currently served.
func (s *Service) ActiveWeek(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return meta.ActiveWeekID, nil
}

// EnsureActive returns ErrWeekNotFound unless weekID is the active week.
func (s *Service) EnsureActive(ctx context.Context, weekID int) error {
	active, err := s.ActiveWeek(ctx)
	if err != nil {
		return err
	}
	if weekID != active {
		return fmt.Errorf("week %d: %w", weekID, ErrWeekNotFound)
	}
	return nil
}

// LastSongID returns the highest song id ever issued.
func (s *Service) LastSongID(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return meta.LastSongID, nil
}

// EnsureSongIDAtLeast advances the id counter so it never falls behind ids
// already present in a roster.
func (s *Service) EnsureSongIDAtLeast(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, err := s.load(ctx)
	if err != nil {
		return err
	}
	if id <= meta.LastSongID {
		return nil
	}
	next := meta.clone()
	next.LastSongID = id
	return s.commit(ctx, next)
}

// Week returns the window view of the active week.
func (s *Service) Week(ctx context.Context, weekID int) (WeekInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, err := s.load(ctx)
	if err != nil {
		return WeekInfo{}, err
	}
	if weekID != meta.ActiveWeekID {
		return WeekInfo{}, fmt.Errorf("week %d: %w", weekID, ErrWeekNotFound)
	}
	return s.info(weekID, meta.Weeks[weekID]), nil
}

// Current returns the window view of the active week.
func (s *Service) Current(ctx context.Context) (WeekInfo, error) {
	active, err := s.ActiveWeek(ctx)
	if err != nil {
		return WeekInfo{}, err
	}
	return s.Week(ctx, active)
}

// Check reports whether a ballot may be cast for weekID right now.
func (s *Service) Check(ctx context.Context, weekID int) error {
	info, err := s.Week(ctx, weekID)
	if err != nil {
		return err
	}
	return StateError(info.Status)
}

// Open stamps openedAt and computes the close time for the week.
func (s *Service) Open(ctx context.Context, req OpenRequest) (WeekInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, err := s.load(ctx)
	if err != nil {
		return WeekInfo{}, err
	}
	weekID := req.WeekID
	if weekID == 0 {
		weekID = meta.ActiveWeekID
	}
	if weekID != meta.ActiveWeekID {
		return WeekInfo{}, fmt.Errorf("week %d: %w", weekID, ErrWeekNotFound)
	}

	now := s.opts.Clock().UTC()
	if req.ClosesAt != nil && !req.ClosesAt.After(now) {
		return WeekInfo{}, fmt.Errorf("closes_at %s is not in the future: %w", req.ClosesAt.Format(time.RFC3339), ErrInvalidInput)
	}

	current := meta.Weeks[weekID]
	switch Evaluate(current, now) {
	case StateOpen:
		if !req.Force && req.ClosesAt == nil {
			return s.info(weekID, current), nil
		}
	case StateClosed:
		if !req.Force {
			return WeekInfo{}, ErrVotingClosed
		}
	}

	next := meta.clone()
	ws := next.Weeks[weekID]
	if ws == nil {
		ws = &WeekState{WeekID: weekID}
		next.Weeks[weekID] = ws
	}
	if ws.OpenedAt == nil || req.Force {
		ws.OpenedAt = &now
	}
	if req.ClosesAt != nil {
		closesAt := req.ClosesAt.UTC()
		ws.ClosesAt = &closesAt
		ws.ClosesAtOverride = true
	} else {
		closesAt := ComputeNextWindowClose(*ws.OpenedAt, s.opts.Schedule).UTC()
		ws.ClosesAt = &closesAt
		ws.ClosesAtOverride = false
	}
	if err := s.commit(ctx, next); err != nil {
		return WeekInfo{}, err
	}

	info := s.info(weekID, ws)
	s.logger.Info("voting opened", "week_id", weekID, "closes_at", info.ClosesAt)
	activity.Record(ctx, s.activities, s.logger, activity.ActivityEntry{
		ActivityType: activity.TypeVotingOpened,
		WeekID:       weekID,
		Summary:      fmt.Sprintf("voting opened for week %d", weekID),
		Details:      map[string]any{"closes_at": ws.ClosesAt, "force": req.Force},
	})
	return info, nil
}

// Close ends voting for the active week immediately.
func (s *Service) Close(ctx context.Context, weekID int) (WeekInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, err := s.load(ctx)
	if err != nil {
		return WeekInfo{}, err
	}
	if weekID == 0 {
		weekID = meta.ActiveWeekID
	}
	if weekID != meta.ActiveWeekID {
		return WeekInfo{}, fmt.Errorf("week %d: %w", weekID, ErrWeekNotFound)
	}
	now := s.opts.Clock().UTC()
	switch Evaluate(meta.Weeks[weekID], now) {
	case StateNotOpened:
		return WeekInfo{}, ErrVotingNotOpenedYet
	case StateClosed:
		return s.info(weekID, meta.Weeks[weekID]), nil
	}

	next := meta.clone()
	ws := next.Weeks[weekID]
	ws.ClosesAt = &now
	ws.ClosesAtOverride = true
	if err := s.commit(ctx, next); err != nil {
		return WeekInfo{}, err
	}
	s.logger.Info("voting closed early", "week_id", weekID)
	activity.Record(ctx, s.activities, s.logger, activity.ActivityEntry{
		ActivityType: activity.TypeVotingClosed,
		WeekID:       weekID,
		Summary:      fmt.Sprintf("voting closed for week %d", weekID),
	})
	return s.info(weekID, ws), nil
}

// Advance makes req.ToWeekID the active week, records the id counter and
// optionally opens voting for it.
func (s *Service) Advance(ctx context.Context, req AdvanceRequest) (WeekInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, err := s.load(ctx)
	if err != nil {
		return WeekInfo{}, err
	}
	if req.FromWeekID != meta.ActiveWeekID || req.ToWeekID != req.FromWeekID+1 {
		return WeekInfo{}, fmt.Errorf("advancing %d -> %d with active week %d: %w",
			req.FromWeekID, req.ToWeekID, meta.ActiveWeekID, ErrWeekNotFound)
	}

	next := meta.clone()
	next.ActiveWeekID = req.ToWeekID
	if req.LastSongID > next.LastSongID {
		next.LastSongID = req.LastSongID
	}
	ws := &WeekState{WeekID: req.ToWeekID}
	if req.Open {
		now := s.opts.Clock().UTC()
		closesAt := ComputeNextWindowClose(now, s.opts.Schedule).UTC()
		ws.OpenedAt = &now
		ws.ClosesAt = &closesAt
	}
	next.Weeks[req.ToWeekID] = ws
	if err := s.commit(ctx, next); err != nil {
		return WeekInfo{}, err
	}
	s.logger.Info("active week advanced", "from", req.FromWeekID, "to", req.ToWeekID, "open", req.Open)
	return s.info(req.ToWeekID, ws), nil
}

func (s *Service) info(weekID int, ws *WeekState) WeekInfo {
	info := WeekInfo{
		ID:     weekID,
		Title:  Title(weekID),
		Status: Evaluate(ws, s.opts.Clock()),
	}
	if ws != nil {
		info.OpenedAt = copyTime(ws.OpenedAt)
		info.ClosesAt = copyTime(ws.ClosesAt)
	}
	return info
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

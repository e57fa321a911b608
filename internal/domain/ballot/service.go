package ballot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/repository"
)

// Options configures the ballot service.
type Options struct {
	MaxVotes int
	Clock    func() time.Time
	NewID    func() string
}

// Service records one ballot per user per week and keeps live tallies.
type Service struct {
	repo   Repository
	roster Roster
	window Window
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	ledger *Ledger
}

// NewService creates a new ballot service.
func NewService(repo Repository, roster Roster, win Window, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxVotes <= 0 {
		opts.MaxVotes = DefaultMaxVotes
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{repo: repo, roster: roster, window: win, opts: opts, logger: logger}
}

// MaxVotes returns the per-user selection limit.
func (s *Service) MaxVotes() int {
	return s.opts.MaxVotes
}

func (s *Service) load(ctx context.Context) (*Ledger, error) {
	if s.ledger != nil {
		return s.ledger, nil
	}
	ledger, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Info("vote ledger absent, starting empty")
		ledger = &Ledger{}
	case errors.Is(err, repository.ErrCorrupt):
		s.logger.Error("vote ledger unreadable, starting empty", "error", err)
		ledger = &Ledger{}
	case err != nil:
		return nil, fmt.Errorf("loading vote ledger: %w", err)
	}
	if ledger.Weeks == nil {
		ledger.Weeks = map[int]*WeekLedger{}
	}
	for weekID, wl := range ledger.Weeks {
		if wl == nil {
			ledger.Weeks[weekID] = newWeekLedger()
			continue
		}
		if wl.Ballots == nil {
			wl.Ballots = map[string]Ballot{}
		}
		stored := wl.Tallies
		wl.Recount()
		if stored != nil && !equalCounts(stored, wl.Tallies) {
			s.logger.Warn("stored tallies disagree with ballots, recounted", "week_id", weekID)
		}
	}
	s.ledger = ledger
	return ledger, nil
}

// withWeek returns a shallow copy of the ledger whose weekID entry is a deep copy.
func (l *Ledger) withWeek(weekID int, fresh bool) (*Ledger, *WeekLedger) {
	next := &Ledger{Weeks: make(map[int]*WeekLedger, len(l.Weeks)+1)}
	for id, wl := range l.Weeks {
		next.Weeks[id] = wl
	}
	wl := newWeekLedger()
	if cur, ok := l.Weeks[weekID]; ok && !fresh {
		for user, b := range cur.Ballots {
			wl.Ballots[user] = b
		}
		for id, n := range cur.Tallies {
			wl.Tallies[id] = n
		}
	}
	next.Weeks[weekID] = wl
	return next, wl
}

// Cast validates and records a ballot. Nothing is mutated unless every
// check passes and the ledger was persisted.
func (s *Service) Cast(ctx context.Context, req CastRequest) (*Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.window.Check(ctx, req.WeekID); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, ErrAuthRequired
	}

	songIDs := dedupe(req.SongIDs)
	if len(songIDs) == 0 {
		return nil, &SelectionError{Reason: ReasonEmpty, Limit: s.opts.MaxVotes}
	}
	if len(songIDs) > s.opts.MaxVotes {
		return nil, &SelectionError{Reason: ReasonTooMany, Limit: s.opts.MaxVotes}
	}
	entries, err := s.roster.Load(ctx, req.WeekID)
	if err != nil {
		return nil, err
	}
	known := chart.IDs(entries)
	var invalid []int
	for _, id := range songIDs {
		if _, ok := known[id]; !ok {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return nil, &SelectionError{Reason: ReasonUnknownIDs, Limit: s.opts.MaxVotes, InvalidIDs: invalid}
	}

	ledger, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if wl, ok := ledger.Weeks[req.WeekID]; ok {
		if _, voted := wl.Ballots[userID]; voted {
			return nil, ErrAlreadyVoted
		}
	}

	b := Ballot{
		ID:      s.opts.NewID(),
		UserID:  userID,
		SongIDs: songIDs,
		CastAt:  s.opts.Clock().UTC(),
	}
	next, wl := ledger.withWeek(req.WeekID, false)
	wl.Ballots[userID] = b
	for _, id := range songIDs {
		wl.Tallies[id]++
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("saving vote ledger: %w", err)
	}
	s.ledger = next

	s.logger.Info("ballot accepted", "week_id", req.WeekID, "user_id", userID, "songs", len(songIDs))
	out := b
	out.SongIDs = append([]int(nil), b.SongIDs...)
	return &out, nil
}

// MyBallot returns the user's ballot for the week.
func (s *Service) MyBallot(ctx context.Context, weekID int, userID string) (*Ballot, error) {
	if err := s.window.EnsureActive(ctx, weekID); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrAuthRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	wl, ok := ledger.Weeks[weekID]
	if !ok {
		return nil, ErrNoBallot
	}
	b, ok := wl.Ballots[userID]
	if !ok {
		return nil, ErrNoBallot
	}
	b.SongIDs = append([]int(nil), b.SongIDs...)
	return &b, nil
}

// Tally returns the voted songs of the active week ascending by song id.
func (s *Service) Tally(ctx context.Context, weekID int) ([]Count, error) {
	if err := s.window.EnsureActive(ctx, weekID); err != nil {
		return nil, err
	}
	counts, err := s.Counts(ctx, weekID)
	if err != nil {
		return nil, err
	}
	out := make([]Count, 0, len(counts))
	for id, n := range counts {
		out = append(out, Count{SongID: id, Votes: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SongID < out[j].SongID })
	return out, nil
}

// Counts returns a copy of the week's tallies.
func (s *Service) Counts(ctx context.Context, weekID int) (map[int]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := map[int]int{}
	if wl, ok := ledger.Weeks[weekID]; ok {
		for id, n := range wl.Tallies {
			if n > 0 {
				out[id] = n
			}
		}
	}
	return out, nil
}

// Voters returns the number of ballots cast for the week.
func (s *Service) Voters(ctx context.Context, weekID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	if wl, ok := ledger.Weeks[weekID]; ok {
		return len(wl.Ballots), nil
	}
	return 0, nil
}

// Summary ranks every roster entry by votes, then artist and title.
func (s *Service) Summary(ctx context.Context, weekID int) (*Summary, error) {
	entries, err := s.roster.Load(ctx, weekID)
	if err != nil {
		return nil, err
	}
	counts, err := s.Counts(ctx, weekID)
	if err != nil {
		return nil, err
	}
	voters, err := s.Voters(ctx, weekID)
	if err != nil {
		return nil, err
	}

	chart.SortByVotes(entries, counts)
	sum := &Summary{WeekID: weekID, Voters: voters, Rows: make([]SummaryRow, 0, len(entries))}
	for _, e := range entries {
		sum.Rows = append(sum.Rows, SummaryRow{
			SongID:       e.ID,
			Artist:       e.Artist,
			Title:        e.Title,
			IsNew:        e.IsNew,
			WeeksInChart: e.WeeksInChart,
			Votes:        counts[e.ID],
		})
	}
	for _, n := range counts {
		sum.TotalVotes += n
	}
	return sum, nil
}

// Reset clears the week's ballots and tallies.
func (s *Service) Reset(ctx context.Context, weekID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, err := s.load(ctx)
	if err != nil {
		return err
	}
	next, _ := ledger.withWeek(weekID, true)
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("saving vote ledger: %w", err)
	}
	s.ledger = next
	s.logger.Info("vote ledger reset", "week_id", weekID)
	return nil
}

func dedupe(ids []int) []int {
	out := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func equalCounts(a, b map[int]int) bool {
	clean := func(m map[int]int) map[int]int {
		out := make(map[int]int, len(m))
		for k, v := range m {
			if v != 0 {
				out[k] = v
			}
		}
		return out
	}
	ca, cb := clean(a), clean(b)
	if len(ca) != len(cb) {
		return false
	}
	for k, v := range ca {
		if cb[k] != v {
			return false
		}
	}
	return true
}

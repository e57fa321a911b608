package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rpggio/hitparade/internal/domain/activity"
	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/repository"
)

// Service snapshots finished weeks and aggregates them.
type Service struct {
	repo       Repository
	roster     Roster
	ballots    Ballots
	activities activity.Logger
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new archive service.
func NewService(repo Repository, roster Roster, ballots Ballots, activities activity.Logger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, roster: roster, ballots: ballots, activities: activities, logger: logger, now: time.Now}
}

// WithClock overrides the archive timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Archive snapshots the active week's roster, tallies and voter count.
func (s *Service) Archive(ctx context.Context, weekID int) (*Snapshot, error) {
	entries, err := s.roster.Load(ctx, weekID)
	if err != nil {
		return nil, err
	}
	counts, err := s.ballots.Counts(ctx, weekID)
	if err != nil {
		return nil, err
	}
	voters, err := s.ballots.Voters(ctx, weekID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		WeekID:     weekID,
		ArchivedAt: s.now().UTC(),
		Entries:    entries,
		Tallies:    counts,
		Voters:     voters,
	}
	for _, n := range counts {
		snap.TotalVotes += n
	}

	if err := s.repo.Create(ctx, snap); err != nil {
		if errors.Is(err, repository.ErrExists) {
			return nil, fmt.Errorf("week %d: %w", weekID, ErrArchiveExists)
		}
		return nil, fmt.Errorf("writing archive for week %d: %w", weekID, err)
	}

	s.logger.Info("week archived", "week_id", weekID, "entries", len(entries), "voters", voters)
	activity.Record(ctx, s.activities, s.logger, activity.ActivityEntry{
		ActivityType: activity.TypeWeekArchived,
		WeekID:       weekID,
		Summary:      fmt.Sprintf("week %d archived", weekID),
		Details:      map[string]any{"entries": len(entries), "voters": voters, "total_votes": snap.TotalVotes},
	})
	return snap, nil
}

// Exists reports whether the week has a snapshot.
func (s *Service) Exists(ctx context.Context, weekID int) (bool, error) {
	_, err := s.repo.Get(ctx, weekID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Get returns a week's snapshot.
func (s *Service) Get(ctx context.Context, weekID int) (*Snapshot, error) {
	snap, err := s.repo.Get(ctx, weekID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &MissingError{WeekID: weekID}
	}
	if err != nil {
		return nil, fmt.Errorf("reading archive for week %d: %w", weekID, err)
	}
	return snap, nil
}

// List returns archived week ids ascending.
func (s *Service) List(ctx context.Context) ([]int, error) {
	ids, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}
	sort.Ints(ids)
	return ids, nil
}

// Aggregate sums tallies over the given archived weeks. Every week must
// have been archived.
func (s *Service) Aggregate(ctx context.Context, weekIDs []int) (*Aggregate, error) {
	ids := uniqueSorted(weekIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("no weeks requested: %w", ErrInvalidInput)
	}

	snaps := make([]*Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return Combine(snaps), nil
}

// Combine builds the ranked table for snapshots ordered by week id.
// Names come from the latest week an entry appeared in.
func Combine(snaps []*Snapshot) *Aggregate {
	agg := &Aggregate{WeekIDs: make([]int, 0, len(snaps))}
	rows := map[int]*AggregateRow{}
	row := func(songID int) *AggregateRow {
		r, ok := rows[songID]
		if !ok {
			r = &AggregateRow{SongID: songID, PerWeek: map[int]int{}}
			rows[songID] = r
		}
		return r
	}

	for _, snap := range snaps {
		agg.WeekIDs = append(agg.WeekIDs, snap.WeekID)
		agg.Voters += snap.Voters
		for _, e := range snap.Entries {
			r := row(e.ID)
			r.Artist, r.Title = e.Artist, e.Title
			r.Weeks++
			r.PerWeek[snap.WeekID] = snap.Tallies[e.ID]
		}
		present := chart.IDs(snap.Entries)
		for songID, n := range snap.Tallies {
			r := row(songID)
			r.Votes += n
			agg.TotalVotes += n
			if _, ok := present[songID]; !ok {
				r.PerWeek[snap.WeekID] = n
			}
		}
	}

	agg.Rows = make([]AggregateRow, 0, len(rows))
	for _, r := range rows {
		agg.Rows = append(agg.Rows, *r)
	}
	sort.Slice(agg.Rows, func(i, j int) bool {
		a, b := agg.Rows[i], agg.Rows[j]
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		if !strings.EqualFold(a.Artist, b.Artist) || !strings.EqualFold(a.Title, b.Title) {
			return chart.LessByName(a.Artist, a.Title, b.Artist, b.Title)
		}
		return a.SongID < b.SongID
	})
	for i := range agg.Rows {
		agg.Rows[i].Rank = i + 1
	}
	return agg
}

func uniqueSorted(ids []int) []int {
	seen := map[int]struct{}{}
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id <= 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

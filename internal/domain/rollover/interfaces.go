package rollover

import (
	"context"

	"github.com/rpggio/hitparade/internal/domain/archive"
	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/domain/roster"
	"github.com/rpggio/hitparade/internal/domain/window"
)

// Roster reads the finished week and publishes the next one. Pending and
// Restore let an interrupted rollover be finished or undone.
type Roster interface {
	Load(ctx context.Context, weekID int) ([]chart.Entry, error)
	Publish(ctx context.Context, weekID int, entries []chart.Entry, opts roster.SaveOptions) error
	Pending(ctx context.Context, weekID int) ([]chart.Entry, bool, error)
	Restore(ctx context.Context, weekID int, entries []chart.Entry) error
}

// Ballots provides tallies and clears the new week.
type Ballots interface {
	Counts(ctx context.Context, weekID int) (map[int]int, error)
	Reset(ctx context.Context, weekID int) error
}

// Weeks tracks the active week and the song id counter.
type Weeks interface {
	ActiveWeek(ctx context.Context) (int, error)
	LastSongID(ctx context.Context) (int, error)
	Advance(ctx context.Context, req window.AdvanceRequest) (window.WeekInfo, error)
}

// Archiver snapshots the finished week.
type Archiver interface {
	Exists(ctx context.Context, weekID int) (bool, error)
	Archive(ctx context.Context, weekID int) (*archive.Snapshot, error)
}

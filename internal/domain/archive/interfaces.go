package archive

import (
	"context"

	"github.com/rpggio/hitparade/internal/domain/chart"
)

// Repository stores write-once week snapshots.
type Repository interface {
	Create(ctx context.Context, snap *Snapshot) error
	Get(ctx context.Context, weekID int) (*Snapshot, error)
	List(ctx context.Context) ([]int, error)
}

// Roster provides the week's entries.
type Roster interface {
	Load(ctx context.Context, weekID int) ([]chart.Entry, error)
}

// Ballots provides the week's tallies and voter count.
type Ballots interface {
	Counts(ctx context.Context, weekID int) (map[int]int, error)
	Voters(ctx context.Context, weekID int) (int, error)
}

package ballot

import (
	"context"

	"github.com/rpggio/hitparade/internal/domain/chart"
)

// Repository persists the vote ledger document.
type Repository interface {
	Load(ctx context.Context) (*Ledger, error)
	Save(ctx context.Context, ledger *Ledger) error
}

// Roster provides the entries ballots are validated against.
type Roster interface {
	Load(ctx context.Context, weekID int) ([]chart.Entry, error)
}

// Window gates ballots on the voting window.
type Window interface {
	Check(ctx context.Context, weekID int) error
	EnsureActive(ctx context.Context, weekID int) error
}

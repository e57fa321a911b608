package roster

import (
	"context"

	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/domain/window"
)

// Repository persists the roster document.
type Repository interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, weekID int, entries []chart.Entry) error
}

// Weeks is the slice of the window service the roster depends on.
type Weeks interface {
	ActiveWeek(ctx context.Context) (int, error)
	Current(ctx context.Context) (window.WeekInfo, error)
	EnsureSongIDAtLeast(ctx context.Context, id int) error
}

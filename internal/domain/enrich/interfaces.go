package enrich

import (
	"context"

	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/domain/window"
)

// Lookup finds media for a track. A nil result with nil error means the
// catalog has no match.
type Lookup interface {
	Lookup(ctx context.Context, artist, title string) (*Media, error)
}

// Roster reads the active week's entries and updates them in place.
type Roster interface {
	Load(ctx context.Context, weekID int) ([]chart.Entry, error)
	Update(ctx context.Context, weekID int, fn func(entries []chart.Entry) bool) error
}

// Weeks resolves the active week and opens voting.
type Weeks interface {
	ActiveWeek(ctx context.Context) (int, error)
	Open(ctx context.Context, req window.OpenRequest) (window.WeekInfo, error)
}

package roster

import (
	"time"

	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/domain/window"
)

// Document is the persisted roster as read back from storage.
// WeekID is zero for legacy documents that only held a list.
type Document struct {
	WeekID int
	Items  []chart.RawEntry
}

// SaveOptions controls guardrails on save.
type SaveOptions struct {
	AllowEmpty bool
}

// Week is the public view of the active week.
type Week struct {
	ID       int          `json:"id"`
	Title    string       `json:"title"`
	Status   window.State `json:"status"`
	OpenedAt *time.Time   `json:"opened_at,omitempty"`
	ClosesAt *time.Time   `json:"closes_at,omitempty"`
	Songs    int          `json:"songs"`
}

// ReplaceResult reports a roster replacement.
type ReplaceResult struct {
	WeekID   int           `json:"week_id"`
	Entries  []chart.Entry `json:"items"`
	Input    int           `json:"input"`
	Dropped  int           `json:"dropped"`
	Fallback bool          `json:"fallback"`
}

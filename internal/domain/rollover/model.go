package rollover

import (
	"time"

	"github.com/rpggio/hitparade/internal/domain/chart"
)

// Defaults used when neither the request nor the options set a value.
const (
	DefaultTopN            = 20
	DefaultMaxWeeksInChart = 10
)

// Request triggers a rollover into WeekID.
type Request struct {
	// WeekID is the week to create; zero means active week + 1.
	WeekID          int
	NewTracks       []chart.Track
	TopN            int
	MaxWeeksInChart int
	// OpenVoting defaults to the service option when nil.
	OpenVoting *bool
}

// Plan is the computed next roster.
type Plan struct {
	Entries    []chart.Entry
	Carried    int
	Retired    int
	Added      int
	LastSongID int
}

// Result reports a completed rollover.
type Result struct {
	FromWeekID int           `json:"from_week_id"`
	WeekID     int           `json:"week_id"`
	Carried    int           `json:"carried"`
	Retired    int           `json:"retired"`
	Added      int           `json:"added"`
	Total      int           `json:"total"`
	NextSongID int           `json:"next_song_id"`
	Archived   bool          `json:"archived"`
	Opened     bool          `json:"opened"`
	ClosesAt   *time.Time    `json:"closes_at,omitempty"`
	// Resumed is set when the roster had already been published by an
	// earlier attempt; the plan counts are zero then.
	Resumed bool          `json:"resumed,omitempty"`
	Entries []chart.Entry `json:"items"`
}

package archive

import (
	"time"

	"github.com/rpggio/hitparade/internal/domain/chart"
)

// Snapshot is the immutable record of a finished week.
type Snapshot struct {
	WeekID     int           `json:"week_id"`
	ArchivedAt time.Time     `json:"archived_at"`
	Entries    []chart.Entry `json:"items"`
	Tallies    map[int]int   `json:"tallies"`
	Voters     int           `json:"voters"`
	TotalVotes int           `json:"total_votes"`
}

// AggregateRow is one song's standing across several archived weeks.
type AggregateRow struct {
	Rank    int         `json:"rank"`
	SongID  int         `json:"song_id"`
	Artist  string      `json:"artist"`
	Title   string      `json:"title"`
	Votes   int         `json:"votes"`
	Weeks   int         `json:"weeks"`
	PerWeek map[int]int `json:"per_week"`
}

// Aggregate is a ranked table over a set of archived weeks.
type Aggregate struct {
	WeekIDs    []int          `json:"week_ids"`
	Voters     int            `json:"voters"`
	TotalVotes int            `json:"total_votes"`
	Rows       []AggregateRow `json:"items"`
}

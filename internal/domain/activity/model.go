package activity

import "time"

// ActivityType represents the type of operator action recorded.
type ActivityType string

const (
	TypeRosterReplaced ActivityType = "roster_replaced"
	TypeVotingOpened   ActivityType = "voting_opened"
	TypeVotingClosed   ActivityType = "voting_closed"
	TypeRosterEnriched ActivityType = "roster_enriched"
	TypeWeekRolledOver ActivityType = "week_rolled_over"
	TypeWeekArchived   ActivityType = "week_archived"
)

// ActivityEntry represents an event in the operator audit log.
type ActivityEntry struct {
	ID           string         `json:"id"`
	ActivityType ActivityType   `json:"type"`
	WeekID       int            `json:"week_id"`
	Summary      string         `json:"summary"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

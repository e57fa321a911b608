package mcp

import "github.com/rpggio/hitparade/internal/domain/roster"

type CurrentWeekParams struct{}

type CurrentWeekResponse struct {
	roster.Week
	MaxVotes int `json:"max_votes"`
}

type ListSongsParams struct {
	WeekID int    `json:"week_id,omitempty" jsonschema:"week id, omit for the active week"`
	Filter string `json:"filter,omitempty" jsonschema:"all, new or current"`
	Search string `json:"search,omitempty" jsonschema:"case-insensitive text matched against artist and title"`
}

type WeekSummaryParams struct {
	WeekID int `json:"week_id,omitempty" jsonschema:"week id, omit for the active week"`
}

type ReplaceRosterParams struct {
	Items      []map[string]any `json:"items" jsonschema:"roster entries with id, artist, title and optional is_new, weeks_in_chart, source, cover, preview_url, lock_media"`
	AllowEmpty bool             `json:"allow_empty,omitempty" jsonschema:"allow clearing a non-empty roster"`
}

type OpenVotingParams struct {
	ClosesAt string `json:"closes_at,omitempty" jsonschema:"RFC3339 close time overriding the weekly schedule"`
	Force    bool   `json:"force,omitempty" jsonschema:"restamp an open week or reopen a closed one"`
}

type CloseVotingParams struct{}

type EnrichRosterParams struct {
	Force   bool `json:"force,omitempty" jsonschema:"look up and overwrite media even when present"`
	Publish bool `json:"publish,omitempty" jsonschema:"open voting after enrichment"`
}

type RolloverWeekParams struct {
	WeekID          int      `json:"week_id,omitempty" jsonschema:"week to create, omit for active week + 1"`
	NewTracks       []string `json:"new_tracks,omitempty" jsonschema:"new entries as 'Artist - Title'"`
	TopN            int      `json:"top_n,omitempty" jsonschema:"how many carried entries to keep"`
	MaxWeeksInChart int      `json:"max_weeks_in_chart,omitempty" jsonschema:"retire entries that reach this many weeks"`
	OpenVoting      *bool    `json:"open_voting,omitempty" jsonschema:"open voting for the new week (default true)"`
}

type ArchiveWeekParams struct {
	WeekID int `json:"week_id,omitempty" jsonschema:"week to archive, omit for the active week"`
}

type AggregateArchivesParams struct {
	WeekIDs []int `json:"week_ids" jsonschema:"archived week ids to combine"`
}

type RecentActivityParams struct {
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum entries, default 50"`
	WeekID int    `json:"week_id,omitempty" jsonschema:"only entries for this week"`
	Type   string `json:"type,omitempty" jsonschema:"only entries of this type"`
}

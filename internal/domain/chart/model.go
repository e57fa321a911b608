package chart

import "strings"

// Source tags describe how an entry entered the roster.
const (
	SourceNew       = "new"
	SourceCurrent   = "current"
	SourceCarryover = "carryover"
	SourceManual    = "manual"
)

// Entry is one track in a week's roster.
type Entry struct {
	ID           int     `json:"id"`
	Artist       string  `json:"artist"`
	Title        string  `json:"title"`
	IsNew        bool    `json:"is_new"`
	WeeksInChart int     `json:"weeks_in_chart"`
	Source       string  `json:"source"`
	Cover        *string `json:"cover"`
	PreviewURL   *string `json:"preview_url"`
	LockMedia    bool    `json:"lock_media"`
}

// IsCarried reports whether the entry was retained from a previous week.
func (e Entry) IsCarried() bool {
	return e.Source == SourceCurrent || e.Source == SourceCarryover
}

// HasMedia reports whether both cover and preview are populated.
func (e Entry) HasMedia() bool {
	return e.Cover != nil && *e.Cover != "" && e.PreviewURL != nil && *e.PreviewURL != ""
}

// Label returns "artist title", the text search runs against.
func (e Entry) Label() string {
	return e.Artist + " " + e.Title
}

// Track is an operator-submitted artist/title pair.
type Track struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// Valid reports whether both artist and title are non-blank.
func (t Track) Valid() bool {
	return strings.TrimSpace(t.Artist) != "" && strings.TrimSpace(t.Title) != ""
}

// RawEntry is an entry as found in a stored or submitted document, before validation.
type RawEntry map[string]any

// Clone returns a deep copy of the entries.
func Clone(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e
		out[i].Cover = cloneString(e.Cover)
		out[i].PreviewURL = cloneString(e.PreviewURL)
	}
	return out
}

// IDs returns the set of ids present in the entries.
func IDs(entries []Entry) map[int]struct{} {
	ids := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		ids[e.ID] = struct{}{}
	}
	return ids
}

// MaxID returns the highest id in entries, or 0.
func MaxID(entries []Entry) int {
	maxID := 0
	for _, e := range entries {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	return maxID
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to s, or nil when s is blank.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

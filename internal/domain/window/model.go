package window

import "time"

// State is the voting state of a week.
type State string

const (
	StateNotOpened State = "not_opened"
	StateOpen      State = "open"
	StateClosed    State = "closed"
)

// Meta is the persisted administrative state shared by all weeks.
type Meta struct {
	ActiveWeekID int                `json:"active_week_id"`
	LastSongID   int                `json:"last_song_id"`
	Weeks        map[int]*WeekState `json:"weeks"`
}

// WeekState records when voting opened and closes for one week.
type WeekState struct {
	WeekID           int        `json:"week_id"`
	OpenedAt         *time.Time `json:"opened_at,omitempty"`
	ClosesAt         *time.Time `json:"closes_at,omitempty"`
	ClosesAtOverride bool       `json:"closes_at_override,omitempty"`
}

// WeekInfo is a read-only view of a week's window.
type WeekInfo struct {
	ID       int        `json:"id"`
	Title    string     `json:"title"`
	Status   State      `json:"status"`
	OpenedAt *time.Time `json:"opened_at,omitempty"`
	ClosesAt *time.Time `json:"closes_at,omitempty"`
}

func (m *Meta) clone() *Meta {
	out := &Meta{
		ActiveWeekID: m.ActiveWeekID,
		LastSongID:   m.LastSongID,
		Weeks:        make(map[int]*WeekState, len(m.Weeks)),
	}
	for id, ws := range m.Weeks {
		copied := *ws
		out.Weeks[id] = &copied
	}
	return out
}

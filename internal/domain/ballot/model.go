package ballot

import "time"

// DefaultMaxVotes is the per-user selection limit when none is configured.
const DefaultMaxVotes = 10

// Ballot is one user's vote for one week.
type Ballot struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	SongIDs []int     `json:"song_ids"`
	CastAt  time.Time `json:"cast_at"`
}

// WeekLedger holds a week's ballots keyed by user id and the derived tallies.
type WeekLedger struct {
	Ballots map[string]Ballot `json:"ballots"`
	Tallies map[int]int       `json:"tallies"`
}

// Ledger is the persisted vote document.
type Ledger struct {
	Weeks map[int]*WeekLedger `json:"weeks"`
}

// Count is a song's vote count.
type Count struct {
	SongID int `json:"song_id"`
	Votes  int `json:"votes"`
}

// SummaryRow is a roster entry with its vote count.
type SummaryRow struct {
	SongID       int    `json:"song_id"`
	Artist       string `json:"artist"`
	Title        string `json:"title"`
	IsNew        bool   `json:"is_new"`
	WeeksInChart int    `json:"weeks_in_chart"`
	Votes        int    `json:"votes"`
}

// Summary ranks the whole roster by votes.
type Summary struct {
	WeekID     int          `json:"week_id"`
	Voters     int          `json:"voters"`
	TotalVotes int          `json:"total_votes"`
	Rows       []SummaryRow `json:"items"`
}

// CastRequest is a ballot submission.
type CastRequest struct {
	WeekID  int
	UserID  string
	SongIDs []int
}

func newWeekLedger() *WeekLedger {
	return &WeekLedger{Ballots: map[string]Ballot{}, Tallies: map[int]int{}}
}

// Recount rebuilds tallies from ballots.
func (w *WeekLedger) Recount() {
	w.Tallies = make(map[int]int)
	for _, b := range w.Ballots {
		for _, id := range b.SongIDs {
			w.Tallies[id]++
		}
	}
}

package rollover

import (
	"strings"

	"github.com/rpggio/hitparade/internal/domain/chart"
)

// Compute derives the next week's roster. Entries are ranked by votes with
// an alphabetical tie-break; of the top topN, those that reached
// maxWeeksInChart retire and the rest carry over. New tracks receive ids
// after lastSongID.
func Compute(entries []chart.Entry, counts map[int]int, tracks []chart.Track, lastSongID, topN, maxWeeksInChart int) Plan {
	ranked := chart.Clone(entries)
	chart.SortByVotes(ranked, counts)
	if topN < len(ranked) {
		ranked = ranked[:max(topN, 0)]
	}

	plan := Plan{Entries: make([]chart.Entry, 0, len(ranked)+len(tracks))}
	for _, e := range ranked {
		if e.WeeksInChart >= maxWeeksInChart {
			plan.Retired++
			continue
		}
		e.IsNew = false
		e.Source = chart.SourceCurrent
		e.WeeksInChart++
		plan.Entries = append(plan.Entries, e)
		plan.Carried++
	}

	next := max(lastSongID, chart.MaxID(entries))
	for _, t := range tracks {
		next++
		plan.Entries = append(plan.Entries, chart.Entry{
			ID:           next,
			Artist:       strings.TrimSpace(t.Artist),
			Title:        strings.TrimSpace(t.Title),
			IsNew:        true,
			WeeksInChart: 1,
			Source:       chart.SourceNew,
		})
		plan.Added++
	}
	plan.LastSongID = next
	return plan
}

// ParseTrack splits "Artist - Title".
func ParseTrack(s string) (chart.Track, bool) {
	artist, title, ok := strings.Cut(s, " - ")
	if !ok {
		artist, title, ok = strings.Cut(s, " \u2014 ")
	}
	t := chart.Track{Artist: strings.TrimSpace(artist), Title: strings.TrimSpace(title)}
	return t, ok && t.Valid()
}

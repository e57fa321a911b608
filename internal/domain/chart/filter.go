package chart

import (
	"fmt"
	"sort"
	"strings"
)

// FilterKind selects a projection of the roster.
type FilterKind string

const (
	FilterAll     FilterKind = "all"
	FilterNew     FilterKind = "new"
	FilterCurrent FilterKind = "current"
)

// ParseFilterKind parses a filter name; empty means all.
func ParseFilterKind(s string) (FilterKind, error) {
	switch FilterKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterNew:
		return FilterNew, nil
	case FilterCurrent:
		return FilterCurrent, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

// Filter returns the entries matching kind and search, sorted by artist then title.
// The input slice is not modified.
func Filter(entries []Entry, kind FilterKind, search string) []Entry {
	q := strings.ToLower(strings.TrimSpace(search))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		switch kind {
		case FilterNew:
			if !e.IsNew {
				continue
			}
		case FilterCurrent:
			if !e.IsCarried() {
				continue
			}
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Label()), q) {
			continue
		}
		out = append(out, e)
	}
	SortAlpha(out)
	return out
}

// SortAlpha sorts entries by lowercase artist, then lowercase title.
func SortAlpha(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return alphaLess(entries[i], entries[j])
	})
}

// SortByVotes sorts entries by votes descending with an alphabetical tie-break.
func SortByVotes(entries []Entry, votes map[int]int) {
	sort.SliceStable(entries, func(i, j int) bool {
		vi, vj := votes[entries[i].ID], votes[entries[j].ID]
		if vi != vj {
			return vi > vj
		}
		return alphaLess(entries[i], entries[j])
	})
}

// LessByName orders two artist/title pairs case-insensitively.
func LessByName(artistA, titleA, artistB, titleB string) bool {
	a, b := strings.ToLower(artistA), strings.ToLower(artistB)
	if a != b {
		return a < b
	}
	return strings.ToLower(titleA) < strings.ToLower(titleB)
}

func alphaLess(a, b Entry) bool {
	return LessByName(a.Artist, a.Title, b.Artist, b.Title)
}

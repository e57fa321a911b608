package chart

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizeResult describes the outcome of normalizing a raw roster.
type NormalizeResult struct {
	Entries []Entry
	// Input is the number of raw items considered.
	Input int
	// Dropped counts items rejected as malformed or duplicate.
	Dropped int
	// Fallback is set when strict normalization emptied a non-empty input
	// and the lenient parse was used instead.
	Fallback bool
}

// Normalize validates raw items, fills defaults and drops malformed or
// duplicate entries (the first occurrence of an id wins).
//
// A non-empty input is never reduced to empty by strict type checks alone:
// in that case the items are re-read leniently (string ids, camelCase keys,
// string booleans) and only structurally unusable items are discarded.
func Normalize(items []RawEntry) NormalizeResult {
	res := NormalizeResult{Input: len(items)}
	res.Entries = normalizeWith(items, parseStrict)
	if len(res.Entries) == 0 && len(items) > 0 {
		if lenient := normalizeWith(items, parseLenient); len(lenient) > 0 {
			res.Entries = lenient
			res.Fallback = true
		}
	}
	res.Dropped = len(items) - len(res.Entries)
	return res
}

// NormalizeEntries applies the same defaults and de-duplication to typed entries.
func NormalizeEntries(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	seen := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		e.Artist = strings.TrimSpace(e.Artist)
		e.Title = strings.TrimSpace(e.Title)
		if e.ID <= 0 || e.Artist == "" || e.Title == "" {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, applyDefaults(e))
	}
	return out
}

// ToRaw converts typed entries into raw form, the shape a document decodes into.
func ToRaw(entries []Entry) []RawEntry {
	out := make([]RawEntry, 0, len(entries))
	for _, e := range entries {
		raw := RawEntry{
			"id":             e.ID,
			"artist":         e.Artist,
			"title":          e.Title,
			"is_new":         e.IsNew,
			"weeks_in_chart": e.WeeksInChart,
			"source":         e.Source,
			"lock_media":     e.LockMedia,
		}
		if e.Cover != nil {
			raw["cover"] = *e.Cover
		} else {
			raw["cover"] = nil
		}
		if e.PreviewURL != nil {
			raw["preview_url"] = *e.PreviewURL
		} else {
			raw["preview_url"] = nil
		}
		out = append(out, raw)
	}
	return out
}

type parser func(RawEntry) (Entry, bool)

func normalizeWith(items []RawEntry, parse parser) []Entry {
	out := make([]Entry, 0, len(items))
	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		e, ok := parse(item)
		if !ok {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, applyDefaults(e))
	}
	return out
}

func applyDefaults(e Entry) Entry {
	if e.WeeksInChart < 1 {
		e.WeeksInChart = 1
	}
	e.Source = strings.TrimSpace(e.Source)
	if e.Source == "" {
		if e.IsNew {
			e.Source = SourceNew
		} else {
			e.Source = SourceCurrent
		}
	}
	e.Cover = blankToNil(e.Cover)
	e.PreviewURL = blankToNil(e.PreviewURL)
	return e
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func parseStrict(raw RawEntry) (Entry, bool) {
	var e Entry
	id, ok := strictInt(raw["id"])
	if !ok || id <= 0 {
		return Entry{}, false
	}
	e.ID = id

	artist, ok := raw["artist"].(string)
	if !ok || strings.TrimSpace(artist) == "" {
		return Entry{}, false
	}
	title, ok := raw["title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		return Entry{}, false
	}
	e.Artist = strings.TrimSpace(artist)
	e.Title = strings.TrimSpace(title)

	if e.IsNew, ok = optionalBool(raw["is_new"]); !ok {
		return Entry{}, false
	}
	if e.LockMedia, ok = optionalBool(raw["lock_media"]); !ok {
		return Entry{}, false
	}
	if v, present := raw["weeks_in_chart"]; present && v != nil {
		weeks, ok := strictInt(v)
		if !ok {
			return Entry{}, false
		}
		e.WeeksInChart = weeks
	}
	if e.Source, ok = optionalString(raw["source"]); !ok {
		return Entry{}, false
	}
	if e.Cover, ok = optionalStringPtr(raw["cover"]); !ok {
		return Entry{}, false
	}
	if e.PreviewURL, ok = optionalStringPtr(raw["preview_url"]); !ok {
		return Entry{}, false
	}
	return e, true
}

var lenientAliases = map[string][]string{
	"id":             {"id", "song_id", "songId", "ID"},
	"artist":         {"artist", "Artist", "performer"},
	"title":          {"title", "Title", "name", "song"},
	"is_new":         {"is_new", "isNew", "new"},
	"weeks_in_chart": {"weeks_in_chart", "weeksInChart", "weeks"},
	"source":         {"source", "Source"},
	"cover":          {"cover", "cover_url", "coverUrl", "artwork"},
	"preview_url":    {"preview_url", "previewUrl", "preview"},
	"lock_media":     {"lock_media", "lockMedia"},
}

func lookup(raw RawEntry, key string) any {
	for _, alias := range lenientAliases[key] {
		if v, ok := raw[alias]; ok && v != nil {
			return v
		}
	}
	return nil
}

func parseLenient(raw RawEntry) (Entry, bool) {
	var e Entry
	id, ok := lenientInt(lookup(raw, "id"))
	if !ok || id <= 0 {
		return Entry{}, false
	}
	e.ID = id
	e.Artist = strings.TrimSpace(lenientString(lookup(raw, "artist")))
	e.Title = strings.TrimSpace(lenientString(lookup(raw, "title")))
	if e.Artist == "" || e.Title == "" {
		return Entry{}, false
	}
	e.IsNew = lenientBool(lookup(raw, "is_new"))
	e.LockMedia = lenientBool(lookup(raw, "lock_media"))
	if weeks, ok := lenientInt(lookup(raw, "weeks_in_chart")); ok {
		e.WeeksInChart = weeks
	}
	e.Source = lenientString(lookup(raw, "source"))
	e.Cover = StringPtr(lenientString(lookup(raw, "cover")))
	e.PreviewURL = StringPtr(lenientString(lookup(raw, "preview_url")))
	return e, true
}

func strictInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func lenientInt(v any) (int, bool) {
	if i, ok := strictInt(v); ok {
		return i, true
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func optionalBool(v any) (bool, bool) {
	switch b := v.(type) {
	case nil:
		return false, true
	case bool:
		return b, true
	default:
		return false, false
	}
}

func lenientBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	case json.Number:
		i, err := b.Int64()
		return err == nil && i != 0
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
}

func optionalString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", true
	case string:
		return s, true
	default:
		return "", false
	}
}

func optionalStringPtr(v any) (*string, bool) {
	switch s := v.(type) {
	case nil:
		return nil, true
	case string:
		return &s, true
	default:
		return nil, false
	}
}

func lenientString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}

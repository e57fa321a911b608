package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/domain/roster"
	"github.com/rpggio/hitparade/internal/repository"
)

// RosterRepository implements roster.Repository on songs.json.
//
// The document is written as {"week_id": N, "items": [...]}; a bare list
// (the legacy layout) is still read and treated as the active week.
type RosterRepository struct {
	store *Store
	now   func() time.Time
}

// NewRosterRepository creates a new RosterRepository
func NewRosterRepository(store *Store) *RosterRepository {
	return &RosterRepository{store: store, now: time.Now}
}

type rosterEnvelope struct {
	WeekID    int               `json:"week_id"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
	Items     []json.RawMessage `json:"items"`
	Songs     []json.RawMessage `json:"songs,omitempty"`
}

type rosterDocument struct {
	WeekID    int           `json:"week_id"`
	UpdatedAt time.Time     `json:"updated_at"`
	Items     []chart.Entry `json:"items"`
}

// Load reads the roster document without validating entries.
func (r *RosterRepository) Load(ctx context.Context) (*roster.Document, error) {
	data, err := r.store.readFile(RosterFile)
	if err != nil {
		return nil, err
	}

	doc := &roster.Document{}
	var items []json.RawMessage
	switch trimmed := bytes.TrimSpace(data); trimmed[0] {
	case '[':
		if err := decodeStrict(trimmed, &items); err != nil {
			return nil, r.corrupt(err)
		}
	case '{':
		var env rosterEnvelope
		if err := decodeStrict(trimmed, &env); err != nil {
			return nil, r.corrupt(err)
		}
		doc.WeekID = env.WeekID
		items = env.Items
		if items == nil {
			items = env.Songs
		}
	default:
		return nil, r.corrupt(fmt.Errorf("unexpected leading %q", trimmed[0]))
	}

	skipped := 0
	doc.Items = make([]chart.RawEntry, 0, len(items))
	for _, raw := range items {
		var item chart.RawEntry
		if err := decodeStrict(raw, &item); err != nil || item == nil {
			skipped++
			continue
		}
		doc.Items = append(doc.Items, item)
	}
	if skipped > 0 {
		r.store.logger.Warn("roster items are not objects", "path", r.store.path(RosterFile), "skipped", skipped)
	}
	return doc, nil
}

// Save atomically replaces the roster, keeping the previous version as a backup.
func (r *RosterRepository) Save(ctx context.Context, weekID int, entries []chart.Entry) error {
	if entries == nil {
		entries = []chart.Entry{}
	}
	return r.store.writeJSON(RosterFile, rosterDocument{
		WeekID:    weekID,
		UpdatedAt: r.now().UTC(),
		Items:     entries,
	}, true)
}

func (r *RosterRepository) corrupt(err error) error {
	path := r.store.path(RosterFile)
	r.store.logger.Error("roster document unparseable", "path", path, "error", err)
	return fmt.Errorf("decoding %s: %v: %w", path, err, repository.ErrCorrupt)
}

package filestore

import (
	"context"

	"github.com/rpggio/hitparade/internal/domain/window"
)

// WeekMetaRepository implements window.Repository on weeks.json.
type WeekMetaRepository struct {
	store *Store
}

// NewWeekMetaRepository creates a new WeekMetaRepository
func NewWeekMetaRepository(store *Store) *WeekMetaRepository {
	return &WeekMetaRepository{store: store}
}

// Load reads the week meta document.
func (r *WeekMetaRepository) Load(ctx context.Context) (*window.Meta, error) {
	var meta window.Meta
	if err := r.store.readJSON(MetaFile, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Save atomically replaces the week meta document.
func (r *WeekMetaRepository) Save(ctx context.Context, meta *window.Meta) error {
	return r.store.writeJSON(MetaFile, meta, true)
}

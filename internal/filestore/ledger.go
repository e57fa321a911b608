package filestore

import (
	"context"

	"github.com/rpggio/hitparade/internal/domain/ballot"
)

// LedgerRepository implements ballot.Repository on votes.json.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// Load reads the vote ledger.
func (r *LedgerRepository) Load(ctx context.Context) (*ballot.Ledger, error) {
	var ledger ballot.Ledger
	if err := r.store.readJSON(LedgerFile, &ledger); err != nil {
		return nil, err
	}
	return &ledger, nil
}

// Save atomically replaces the vote ledger.
func (r *LedgerRepository) Save(ctx context.Context, ledger *ballot.Ledger) error {
	return r.store.writeJSON(LedgerFile, ledger, true)
}

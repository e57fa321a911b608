package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rpggio/hitparade/internal/domain/archive"
	"github.com/rpggio/hitparade/internal/repository"
)

// ArchiveRepository implements archive.Repository as one write-once file per week.
type ArchiveRepository struct {
	store *Store
}

// NewArchiveRepository creates a new ArchiveRepository
func NewArchiveRepository(store *Store) *ArchiveRepository {
	return &ArchiveRepository{store: store}
}

func archiveName(weekID int) string {
	return filepath.Join(ArchiveDir, fmt.Sprintf("week-%d.json", weekID))
}

// Create writes the snapshot unless one already exists for the week.
func (r *ArchiveRepository) Create(ctx context.Context, snap *archive.Snapshot) error {
	if snap == nil || snap.WeekID <= 0 {
		return repository.ErrInvalidInput
	}
	return r.store.createJSON(archiveName(snap.WeekID), snap)
}

// Get reads a week's snapshot.
func (r *ArchiveRepository) Get(ctx context.Context, weekID int) (*archive.Snapshot, error) {
	var snap archive.Snapshot
	if err := r.store.readJSON(archiveName(weekID), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// List returns the archived week ids ascending.
func (r *ArchiveRepository) List(ctx context.Context) ([]int, error) {
	entries, err := os.ReadDir(r.store.path(ArchiveDir))
	if errors.Is(err, fs.ErrNotExist) {
		return []int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	ids := []int{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "week-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "week-"), ".json"))
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

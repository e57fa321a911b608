package filestore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/rpggio/hitparade/internal/domain/activity"
	"github.com/rpggio/hitparade/internal/repository"
)

// ActivityRepository implements activity.Repository as an append-only JSON-lines file.
type ActivityRepository struct {
	store *Store
	mu    sync.Mutex
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(store *Store) *ActivityRepository {
	return &ActivityRepository{store: store}
}

// Append writes one entry as a single line.
func (r *ActivityRepository) Append(ctx context.Context, entry *activity.ActivityEntry) error {
	if entry == nil {
		return repository.ErrInvalidInput
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.OpenFile(r.store.path(ActivityFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open activity log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return f.Close()
}

// List returns matching entries newest first.
func (r *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	r.mu.Lock()
	data, err := os.ReadFile(r.store.path(ActivityFile))
	r.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return []activity.ActivityEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read activity log: %w", err)
	}

	var all []activity.ActivityEntry
	skipped := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry activity.ActivityEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			skipped++
			continue
		}
		if opts.Matches(entry) {
			all = append(all, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan activity log: %w", err)
	}
	if skipped > 0 {
		r.store.logger.Warn("skipped unreadable activity lines", "count", skipped)
	}

	out := make([]activity.ActivityEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

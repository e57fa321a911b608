package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/hitparade/internal/domain/archive"
	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestArchiveRepository_WriteOnce(t *testing.T) {
	ctx := context.Background()
	s := NewTestStore(t)
	repo := NewArchiveRepository(s)

	snap := &archive.Snapshot{
		WeekID:     3,
		ArchivedAt: time.Date(2025, 3, 8, 16, 0, 0, 0, time.UTC),
		Entries:    []chart.Entry{{ID: 1, Artist: "A", Title: "One", WeeksInChart: 1, Source: chart.SourceNew}},
		Tallies:    map[int]int{1: 5},
		Voters:     5,
		TotalVotes: 5,
	}
	require.NoError(t, repo.Create(ctx, snap))
	require.ErrorIs(t, repo.Create(ctx, snap), repository.ErrExists)

	got, err := repo.Get(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, snap, got)

	_, err = repo.Get(ctx, 4)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.ErrorIs(t, repo.Create(ctx, &archive.Snapshot{}), repository.ErrInvalidInput)
}

func TestArchiveRepository_List(t *testing.T) {
	ctx := context.Background()
	s := NewTestStore(t)
	repo := NewArchiveRepository(s)

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)

	for _, id := range []int{10, 2, 3} {
		require.NoError(t, repo.Create(ctx, &archive.Snapshot{WeekID: id}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), ArchiveDir, "notes.txt"), []byte("x"), 0o644))

	ids, err = repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3, 10}, ids)
}

func TestArchiveRepository_ConcurrentCreateKeepsFirst(t *testing.T) {
	ctx := context.Background()
	s := NewTestStore(t)
	repo := NewArchiveRepository(s)

	const writers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		winner = -1
		lost   int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(voters int) {
			defer wg.Done()
			err := repo.Create(ctx, &archive.Snapshot{WeekID: 3, Voters: voters})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winner = voters
			case errors.Is(err, repository.ErrExists):
				lost++
			default:
				t.Errorf("unexpected create error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, writers-1, lost)
	got, err := repo.Get(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, winner, got.Voters)

	files, err := os.ReadDir(filepath.Join(s.Dir(), ArchiveDir))
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "week-3.json", files[0].Name())
}

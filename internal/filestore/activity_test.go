package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpggio/hitparade/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_AppendList(t *testing.T) {
	ctx := context.Background()
	s := NewTestStore(t)
	repo := NewActivityRepository(s)

	entries, err := repo.List(ctx, activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Empty(t, entries)

	base := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, &activity.ActivityEntry{ID: "1", ActivityType: activity.TypeRosterReplaced, WeekID: 3, CreatedAt: base}))
	require.NoError(t, repo.Append(ctx, &activity.ActivityEntry{ID: "2", ActivityType: activity.TypeVotingOpened, WeekID: 3, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, repo.Append(ctx, &activity.ActivityEntry{ID: "3", ActivityType: activity.TypeWeekRolledOver, WeekID: 4, CreatedAt: base.Add(2 * time.Minute)}))

	// a torn trailing line is ignored
	f, err := os.OpenFile(filepath.Join(s.Dir(), ActivityFile), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id": "4", "ty`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err = repo.List(ctx, activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "3", entries[0].ID)
	require.Equal(t, "1", entries[2].ID)

	entries, err = repo.List(ctx, activity.ListActivityOptions{WeekID: 3, Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "2", entries[0].ID)

	opened := activity.TypeVotingOpened
	entries, err = repo.List(ctx, activity.ListActivityOptions{ActivityType: &opened})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

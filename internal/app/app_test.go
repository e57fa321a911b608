package app_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/hitparade/internal/app"
	"github.com/rpggio/hitparade/internal/config"
	"github.com/rpggio/hitparade/internal/domain/ballot"
	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/domain/enrich"
	"github.com/rpggio/hitparade/internal/domain/rollover"
	"github.com/rpggio/hitparade/internal/domain/roster"
	"github.com/rpggio/hitparade/internal/domain/window"
	"github.com/rpggio/hitparade/internal/filestore"
	"github.com/stretchr/testify/require"
)

type emptyCatalog struct{}

func (emptyCatalog) Lookup(context.Context, string, string) (*enrich.Media, error) { return nil, nil }

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func build(t *testing.T, dir string, clock *fakeClock) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.Data.Dir = dir
	cfg.Chart.TopN = 2
	cfg.Chart.MaxWeeksInChart = 3
	a, err := app.New(cfg, nil, app.Options{Clock: clock.Now, Lookup: emptyCatalog{}})
	require.NoError(t, err)
	return a
}

func metricValue(t *testing.T, a *app.App, name string) float64 {
	t.Helper()
	families, err := a.Metrics.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		if g := m.GetGauge(); g != nil {
			return g.GetValue()
		}
		return m.GetCounter().GetValue()
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func raw(id int, artist, title string) chart.RawEntry {
	return chart.RawEntry{"id": id, "artist": artist, "title": title}
}

func TestApp_New_RejectsBadSchedule(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Dir = t.TempDir()
	cfg.Window.Timezone = "Mars/Olympus"

	_, err := app.New(cfg, nil, app.Options{})
	require.ErrorContains(t, err, "window schedule")
}

func TestApp_SeveralWeeks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2026, time.October, 12, 10, 0, 0, 0, time.UTC)}
	a := build(t, dir, clock)

	weekID, err := a.Warm(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, weekID)
	require.Equal(t, 1.0, metricValue(t, a, "hitparade_active_week_id"))

	_, err = a.Roster.Replace(ctx, 1, []chart.RawEntry{
		raw(1, "Queen", "Bohemian Rhapsody"),
		raw(2, "ABBA", "Waterloo"),
		raw(3, "Blur", "Song 2"),
	}, roster.SaveOptions{})
	require.NoError(t, err)
	_, err = a.Window.Open(ctx, window.OpenRequest{})
	require.NoError(t, err)

	for user, songs := range map[string][]int{"a": {1, 2}, "b": {2}, "c": {2, 3}} {
		_, err := a.Ballots.Cast(ctx, ballot.CastRequest{WeekID: 1, UserID: user, SongIDs: songs})
		require.NoError(t, err)
	}

	// Saturday evening, after the scheduled close.
	clock.now = time.Date(2026, time.October, 17, 16, 0, 0, 0, time.UTC)
	_, err = a.Ballots.Cast(ctx, ballot.CastRequest{WeekID: 1, UserID: "late", SongIDs: []int{1}})
	require.ErrorIs(t, err, window.ErrVotingClosed)

	res, err := a.Rollover(ctx, rollover.Request{NewTracks: []chart.Track{{Artist: "Muse", Title: "Uprising"}}})
	require.NoError(t, err)
	require.Equal(t, 2, res.WeekID)
	// top 2 of three: ABBA (3 votes) then Blur and Queen tied at 1, Blur first alphabetically
	require.Equal(t, 2, res.Carried)
	require.Equal(t, 0, res.Retired)
	require.Equal(t, 1, res.Added)
	require.True(t, res.Archived)
	require.True(t, res.Opened)

	entries, err := a.Roster.Load(ctx, 2)
	require.NoError(t, err)
	var ids []int
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	require.ElementsMatch(t, []int{2, 3, 4}, ids)

	snap, err := a.Archive.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3, snap.Voters)
	require.Equal(t, 5, snap.TotalVotes)

	counts, err := a.Ballots.Counts(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, counts)

	require.Equal(t, 1.0, metricValue(t, a, "hitparade_rollovers_total"))

	// Reopen on the same directory: state comes back from disk.
	restarted := build(t, dir, clock)
	weekID, err = restarted.Warm(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, weekID)

	week, err := restarted.Roster.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, window.StateOpen, week.Status)
	require.Equal(t, 3, week.Songs)

	_, err = restarted.Ballots.Cast(ctx, ballot.CastRequest{WeekID: 2, UserID: "a", SongIDs: []int{4}})
	require.NoError(t, err)

	ids2, err := restarted.Archive.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{1}, ids2)
}

func votedWeekOne(t *testing.T, dir string) *app.App {
	t.Helper()
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, time.October, 12, 10, 0, 0, 0, time.UTC)}
	a := build(t, dir, clock)
	_, err := a.Warm(ctx)
	require.NoError(t, err)
	_, err = a.Roster.Replace(ctx, 1, []chart.RawEntry{
		raw(1, "Queen", "Bohemian Rhapsody"),
		raw(2, "ABBA", "Waterloo"),
		raw(3, "Blur", "Song 2"),
	}, roster.SaveOptions{})
	require.NoError(t, err)
	_, err = a.Window.Open(ctx, window.OpenRequest{})
	require.NoError(t, err)
	_, err = a.Ballots.Cast(ctx, ballot.CastRequest{WeekID: 1, UserID: "a", SongIDs: []int{1, 2}})
	require.NoError(t, err)
	return a
}

func TestApp_RolloverFailureKeepsWeekServing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := votedWeekOne(t, dir)

	// A directory where the week meta lives makes the final step fail.
	meta := filepath.Join(dir, filestore.MetaFile)
	require.NoError(t, os.Remove(meta))
	require.NoError(t, os.Mkdir(meta, 0o755))

	_, err := a.Rollover(ctx, rollover.Request{})
	require.ErrorContains(t, err, "advancing to week 2")

	active, err := a.Window.ActiveWeek(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, active)
	entries, err := a.Roster.Load(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	week, err := a.Roster.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, week.Songs)
	counts, err := a.Ballots.Counts(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, map[int]int{1: 1, 2: 1}, counts)

	require.NoError(t, os.Remove(meta))
	res, err := a.Rollover(ctx, rollover.Request{})
	require.NoError(t, err)
	require.Equal(t, 2, res.WeekID)
	require.False(t, res.Resumed)
	require.Equal(t, 2, res.Carried)

	snap, err := a.Archive.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, snap.Voters)
}

func TestApp_RolloverFinishesAfterRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := votedWeekOne(t, dir)

	// The process stopped right after writing next week's roster.
	require.NoError(t, a.Roster.Publish(ctx, 2, []chart.Entry{
		{ID: 2, Artist: "ABBA", Title: "Waterloo", WeeksInChart: 2},
		{ID: 9, Artist: "Muse", Title: "Uprising", IsNew: true, WeeksInChart: 1},
	}, roster.SaveOptions{}))

	restarted := build(t, dir, &fakeClock{now: time.Date(2026, time.October, 18, 10, 0, 0, 0, time.UTC)})
	weekID, err := restarted.Warm(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, weekID)

	res, err := restarted.Rollover(ctx, rollover.Request{})
	require.NoError(t, err)
	require.True(t, res.Resumed)
	require.Equal(t, 2, res.WeekID)
	require.Equal(t, 2, res.Total)
	require.Equal(t, 10, res.NextSongID)

	entries, err := restarted.Roster.Load(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	_, err = restarted.Ballots.Cast(ctx, ballot.CastRequest{WeekID: 2, UserID: "a", SongIDs: []int{9}})
	require.NoError(t, err)
}

// gatedCatalog blocks every lookup until release is closed.
type gatedCatalog struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (c *gatedCatalog) Lookup(ctx context.Context, _, _ string) (*enrich.Media, error) {
	c.once.Do(func() { close(c.started) })
	select {
	case <-c.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &enrich.Media{Cover: "https://cat/c.jpg", PreviewURL: "https://cat/p.m4a"}, nil
}

func TestApp_ReplaceDuringEnrichmentWins(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Data.Dir = t.TempDir()
	lookup := &gatedCatalog{started: make(chan struct{}), release: make(chan struct{})}
	a, err := app.New(cfg, nil, app.Options{Lookup: lookup})
	require.NoError(t, err)

	_, err = a.Roster.Replace(ctx, 1, []chart.RawEntry{raw(1, "Old", "a")}, roster.SaveOptions{})
	require.NoError(t, err)

	type outcome struct {
		res *enrich.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := a.Enrich.Enrich(ctx, enrich.Request{})
		done <- outcome{res, err}
	}()

	<-lookup.started
	_, err = a.Roster.Replace(ctx, 1, []chart.RawEntry{raw(7, "New", "x"), raw(8, "New", "y")}, roster.SaveOptions{})
	require.NoError(t, err)
	close(lookup.release)

	out := <-done
	require.NoError(t, out.err)
	require.Zero(t, out.res.Updated)

	entries, err := a.Roster.Load(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 7, entries[0].ID)
	require.Equal(t, 8, entries[1].ID)
}

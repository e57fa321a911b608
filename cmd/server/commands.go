package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rpggio/hitparade/internal/app"
	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/domain/enrich"
	"github.com/rpggio/hitparade/internal/domain/rollover"
	"github.com/rpggio/hitparade/internal/domain/window"
	"github.com/rpggio/hitparade/internal/transport"
	"github.com/spf13/cobra"
)

var (
	openClosesAt string
	openForce    bool

	rolloverNew      []string
	rolloverWeek     int
	rolloverTopN     int
	rolloverMaxWeeks int
	rolloverNoOpen   bool

	archiveWeek int

	aggregateWeeks string

	enrichForce   bool
	enrichPublish bool
)

var openVotingCmd = &cobra.Command{
	Use:   "open-voting",
	Short: "Open voting for the active week",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		req := window.OpenRequest{Force: openForce}
		if openClosesAt != "" {
			t, err := time.Parse(time.RFC3339, openClosesAt)
			if err != nil {
				return fmt.Errorf("--closes-at must be RFC3339: %w", err)
			}
			req.ClosesAt = &t
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
			return a.Window.Open(ctx, req)
		})
	},
}

var rolloverCmd = &cobra.Command{
	Use:   "rollover",
	Short: "Build next week's chart from this week's votes",
	Long: `Rank the active week by votes, carry the top entries forward,
retire those that reached the chart limit, append --new tracks and make
the result the active week.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tracks := make([]chart.Track, 0, len(rolloverNew))
		for _, line := range rolloverNew {
			t, ok := rollover.ParseTrack(line)
			if !ok {
				return fmt.Errorf(`--new %q: expected "Artist - Title"`, line)
			}
			tracks = append(tracks, t)
		}
		req := rollover.Request{
			WeekID:          rolloverWeek,
			NewTracks:       tracks,
			TopN:            rolloverTopN,
			MaxWeeksInChart: rolloverMaxWeeks,
		}
		if rolloverNoOpen {
			open := false
			req.OpenVoting = &open
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
			return a.Rollover(ctx, req)
		})
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Write the results snapshot of a week",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
			weekID := archiveWeek
			if weekID == 0 {
				active, err := a.Window.ActiveWeek(ctx)
				if err != nil {
					return nil, err
				}
				weekID = active
			}
			return a.Archive.Archive(ctx, weekID)
		})
	},
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Rank songs across archived weeks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ids, err := transport.ParseWeekList(aggregateWeeks)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
			return a.Archive.Aggregate(ctx, ids)
		})
	},
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill covers and previews for the active week from the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
			return a.Enrich.Enrich(ctx, enrich.Request{Force: enrichForce, Publish: enrichPublish})
		})
	},
}

func init() {
	openVotingCmd.Flags().StringVar(&openClosesAt, "closes-at", "", "close time (RFC3339) overriding the schedule")
	openVotingCmd.Flags().BoolVar(&openForce, "force", false, "restamp an open week or reopen a closed one")

	rolloverCmd.Flags().StringArrayVar(&rolloverNew, "new", nil, `new track as "Artist - Title" (repeatable)`)
	rolloverCmd.Flags().IntVar(&rolloverWeek, "week", 0, "week to create (default: active week + 1)")
	rolloverCmd.Flags().IntVar(&rolloverTopN, "top", 0, "entries carried forward (default from config)")
	rolloverCmd.Flags().IntVar(&rolloverMaxWeeks, "max-weeks", 0, "weeks in chart before retirement (default from config)")
	rolloverCmd.Flags().BoolVar(&rolloverNoOpen, "no-open", false, "leave voting closed on the new week")

	archiveCmd.Flags().IntVar(&archiveWeek, "week", 0, "week to archive (default: active week)")

	aggregateCmd.Flags().StringVar(&aggregateWeeks, "weeks", "", `archived weeks, e.g. "3,4" or "3-6"`)
	_ = aggregateCmd.MarkFlagRequired("weeks")

	enrichCmd.Flags().BoolVar(&enrichForce, "force", false, "overwrite existing media")
	enrichCmd.Flags().BoolVar(&enrichPublish, "publish", false, "open voting afterwards")

	rootCmd.AddCommand(openVotingCmd, rolloverCmd, archiveCmd, aggregateCmd, enrichCmd)
}

// withApp runs one operation against the configured data directory and
// prints its result as JSON.
func withApp(cmd *cobra.Command, run func(context.Context, *app.App) (any, error)) error {
	a, cleanup, err := setup(false)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := run(cmd.Context(), a)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

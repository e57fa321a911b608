package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rpggio/hitparade/internal/app"
	"github.com/rpggio/hitparade/internal/domain/activity"
	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/domain/enrich"
	"github.com/rpggio/hitparade/internal/domain/rollover"
	"github.com/rpggio/hitparade/internal/domain/roster"
	"github.com/rpggio/hitparade/internal/domain/window"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// textResult renders v as the JSON text content of a tool result.
func textResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// errorResult reports a domain failure as a tool error the model can act on.
func errorResult(err error) (*sdkmcp.CallToolResult, any, error) {
	data, merr := json.Marshal(MapError(err))
	if merr != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

type tools struct {
	app *app.App
}

func (t *tools) weekOrActive(ctx context.Context, weekID int) (int, error) {
	if weekID > 0 {
		return weekID, nil
	}
	return t.app.Window.ActiveWeek(ctx)
}

func registerTools(server *sdkmcp.Server, a *app.App) {
	t := &tools{app: a}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "current_week",
		Description: "Show the active week: id, title, voting status, open and close times, roster size and vote limit",
	}, t.currentWeek)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_songs",
		Description: "List a week's roster sorted by artist and title, optionally filtered to new or carried entries or by search text",
	}, t.listSongs)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "week_summary",
		Description: "Rank every roster entry of a week by votes, with voter and vote totals",
	}, t.weekSummary)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "replace_roster",
		Description: "Replace the active week's roster. Items are normalized; an empty list is refused unless allow_empty is set",
	}, t.replaceRoster)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "open_voting",
		Description: "Open voting for the active week; the close time follows the weekly schedule unless closes_at is given",
	}, t.openVoting)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "close_voting",
		Description: "Close voting for the active week now",
	}, t.closeVoting)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "enrich_roster",
		Description: "Fill missing covers and previews for the active week from the music catalog; locked entries are left alone",
	}, t.enrichRoster)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "rollover_week",
		Description: "Build the next week from this week's results plus new tracks, archive the finished week and make the new one active",
	}, t.rolloverWeek)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "archive_week",
		Description: "Write the write-once results snapshot of the active week",
	}, t.archiveWeek)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "aggregate_archives",
		Description: "Combine archived weeks into one ranking summed by song id",
	}, t.aggregateArchives)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "recent_activity",
		Description: "List recent operator actions, newest first",
	}, t.recentActivity)
}

func (t *tools) currentWeek(ctx context.Context, _ *sdkmcp.CallToolRequest, _ CurrentWeekParams) (*sdkmcp.CallToolResult, any, error) {
	week, err := t.app.Roster.Current(ctx)
	if err != nil {
		return errorResult(err)
	}
	return textResult(CurrentWeekResponse{Week: week, MaxVotes: t.app.Ballots.MaxVotes()})
}

func (t *tools) listSongs(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListSongsParams) (*sdkmcp.CallToolResult, any, error) {
	kind, err := chart.ParseFilterKind(in.Filter)
	if err != nil {
		return errorResult(invalidInput("%v", err))
	}
	weekID, err := t.weekOrActive(ctx, in.WeekID)
	if err != nil {
		return errorResult(err)
	}
	entries, err := t.app.Roster.Filter(ctx, weekID, kind, in.Search)
	if err != nil {
		return errorResult(err)
	}
	return textResult(map[string]any{"week_id": weekID, "items": entries})
}

func (t *tools) weekSummary(ctx context.Context, _ *sdkmcp.CallToolRequest, in WeekSummaryParams) (*sdkmcp.CallToolResult, any, error) {
	weekID, err := t.weekOrActive(ctx, in.WeekID)
	if err != nil {
		return errorResult(err)
	}
	summary, err := t.app.Ballots.Summary(ctx, weekID)
	if err != nil {
		return errorResult(err)
	}
	return textResult(summary)
}

func (t *tools) replaceRoster(ctx context.Context, _ *sdkmcp.CallToolRequest, in ReplaceRosterParams) (*sdkmcp.CallToolResult, any, error) {
	weekID, err := t.app.Window.ActiveWeek(ctx)
	if err != nil {
		return errorResult(err)
	}
	items := make([]chart.RawEntry, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, chart.RawEntry(item))
	}
	res, err := t.app.Roster.Replace(ctx, weekID, items, roster.SaveOptions{AllowEmpty: in.AllowEmpty})
	if err != nil {
		return errorResult(err)
	}
	t.app.Logger.Info("roster replaced via console", "operator", getOperator(ctx), "week_id", weekID)
	return textResult(res)
}

func (t *tools) openVoting(ctx context.Context, _ *sdkmcp.CallToolRequest, in OpenVotingParams) (*sdkmcp.CallToolResult, any, error) {
	req := window.OpenRequest{Force: in.Force}
	if in.ClosesAt != "" {
		closesAt, err := time.Parse(time.RFC3339, in.ClosesAt)
		if err != nil {
			return errorResult(invalidInput("closes_at must be RFC3339: %v", err))
		}
		req.ClosesAt = &closesAt
	}
	info, err := t.app.Window.Open(ctx, req)
	if err != nil {
		return errorResult(err)
	}
	return textResult(info)
}

func (t *tools) closeVoting(ctx context.Context, _ *sdkmcp.CallToolRequest, _ CloseVotingParams) (*sdkmcp.CallToolResult, any, error) {
	weekID, err := t.app.Window.ActiveWeek(ctx)
	if err != nil {
		return errorResult(err)
	}
	info, err := t.app.Window.Close(ctx, weekID)
	if err != nil {
		return errorResult(err)
	}
	return textResult(info)
}

func (t *tools) enrichRoster(ctx context.Context, _ *sdkmcp.CallToolRequest, in EnrichRosterParams) (*sdkmcp.CallToolResult, any, error) {
	res, err := t.app.Enrich.Enrich(ctx, enrich.Request{Force: in.Force, Publish: in.Publish})
	if err != nil {
		return errorResult(err)
	}
	return textResult(res)
}

func (t *tools) rolloverWeek(ctx context.Context, _ *sdkmcp.CallToolRequest, in RolloverWeekParams) (*sdkmcp.CallToolResult, any, error) {
	tracks := make([]chart.Track, 0, len(in.NewTracks))
	for _, line := range in.NewTracks {
		track, ok := rollover.ParseTrack(line)
		if !ok {
			return errorResult(invalidInput("track %q must look like 'Artist - Title'", line))
		}
		tracks = append(tracks, track)
	}
	res, err := t.app.Rollover(ctx, rollover.Request{
		WeekID:          in.WeekID,
		NewTracks:       tracks,
		TopN:            in.TopN,
		MaxWeeksInChart: in.MaxWeeksInChart,
		OpenVoting:      in.OpenVoting,
	})
	if err != nil {
		return errorResult(err)
	}
	t.app.Logger.Info("rollover via console", "operator", getOperator(ctx), "week_id", res.WeekID)
	return textResult(res)
}

func (t *tools) archiveWeek(ctx context.Context, _ *sdkmcp.CallToolRequest, in ArchiveWeekParams) (*sdkmcp.CallToolResult, any, error) {
	weekID, err := t.weekOrActive(ctx, in.WeekID)
	if err != nil {
		return errorResult(err)
	}
	snap, err := t.app.Archive.Archive(ctx, weekID)
	if err != nil {
		return errorResult(err)
	}
	return textResult(snap)
}

func (t *tools) aggregateArchives(ctx context.Context, _ *sdkmcp.CallToolRequest, in AggregateArchivesParams) (*sdkmcp.CallToolResult, any, error) {
	agg, err := t.app.Archive.Aggregate(ctx, in.WeekIDs)
	if err != nil {
		return errorResult(err)
	}
	return textResult(agg)
}

func (t *tools) recentActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecentActivityParams) (*sdkmcp.CallToolResult, any, error) {
	opts := activity.ListActivityOptions{Limit: in.Limit, WeekID: in.WeekID}
	if in.Type != "" {
		kind := activity.ActivityType(in.Type)
		opts.ActivityType = &kind
	}
	entries, err := t.app.Activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return errorResult(err)
	}
	return textResult(map[string]any{"items": entries})
}

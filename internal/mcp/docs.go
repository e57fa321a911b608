package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `hitparade runs a weekly music chart: listeners vote once per week for up to N songs from the active week's roster.

Core concepts:
- Week: numbered voting round. Exactly one week is active; only it can be read, voted on or changed.
- Roster: the active week's list of songs. Ids are never reused across weeks.
- Voting window: not_opened until an operator opens it, then open until the scheduled close (default Saturday 18:00 Europe/Moscow), then closed.
- Rollover: builds week N+1 from week N's top results plus new tracks, retires songs that charted too long, and makes N+1 active.
- Archive: write-once snapshot of a finished week's results, used for multi-week rankings.

Weekly workflow:
1) current_week to orient.
2) replace_roster (new week from scratch) or rollover_week (continue the chart).
3) enrich_roster to fetch covers and previews; publish=true opens voting afterwards.
4) open_voting if not opened by enrichment.
5) week_summary to watch results; close_voting to end early.
6) rollover_week when the week is over. The finished week is archived automatically when configured.

Safety rails:
- replace_roster refuses to wipe a non-empty roster unless allow_empty=true.
- A closed week reopens only with force=true.
- archive_week is write-once.

Docs:
- hitparade://docs/index
- hitparade://docs/rollover
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "hitparade://docs/index",
		Name:        "docs_index",
		Title:       "hitparade operator docs",
		Description: "Entry point: tools by task and the error codes they return.",
		Content: `# hitparade: Operator Docs Index

## Tools by task

| Task | Tool |
|---|---|
| Orient | current_week, list_songs, week_summary, recent_activity |
| Prepare a week | replace_roster, enrich_roster |
| Run voting | open_voting, close_voting |
| Finish a week | rollover_week, archive_week |
| Look back | aggregate_archives |

## Error codes

- WEEK_NOT_FOUND: the week is not the active one.
- VOTING_NOT_OPENED_YET / VOTING_CLOSED: window state blocks the action.
- REFUSED_EMPTY_WRITE: an empty roster would replace a non-empty one.
- BAD_INPUT_NORMALIZE_WIPED: no submitted item had an id, artist and title.
- NO_PREVIOUS_WEEK: rollover into week 1.
- ARCHIVE_MISSING / ARCHIVE_EXISTS: archive lookups and repeat archives.

Every error carries a recovery_hint.
`,
	},
	{
		URI:         "hitparade://docs/rollover",
		Name:        "docs_rollover",
		Title:       "How rollover builds the next week",
		Description: "Carry-over, retirement and id rules applied by rollover_week.",
		Content: `# Rollover

1. Entries of the finished week are ranked by votes, then artist and title.
2. The top N (default 20) are considered for carry-over.
3. Each carried entry gets weeks_in_chart + 1 and is_new=false. Entries that reach the maximum (default 10) retire instead.
4. New tracks ("Artist - Title") get fresh ids above every id ever issued, is_new=true, weeks_in_chart=1.
5. The finished week is archived first when archive_on_rollover is set.
6. Ballots for the new week start empty; voting opens unless open_voting=false.

An empty next roster is allowed and logged.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}

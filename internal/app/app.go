// Package app wires the file store and domain services into one graph
// shared by the HTTP API, the operator console and the CLI commands.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/hitparade/internal/catalog"
	"github.com/rpggio/hitparade/internal/config"
	"github.com/rpggio/hitparade/internal/domain/activity"
	"github.com/rpggio/hitparade/internal/domain/archive"
	"github.com/rpggio/hitparade/internal/domain/ballot"
	"github.com/rpggio/hitparade/internal/domain/enrich"
	"github.com/rpggio/hitparade/internal/domain/rollover"
	"github.com/rpggio/hitparade/internal/domain/roster"
	"github.com/rpggio/hitparade/internal/domain/window"
	"github.com/rpggio/hitparade/internal/filestore"
	"github.com/rpggio/hitparade/internal/identity"
	"github.com/rpggio/hitparade/internal/metrics"
)

// Options overrides collaborators, mostly for tests.
type Options struct {
	Clock   func() time.Time
	Lookup  enrich.Lookup
	Metrics *metrics.Metrics
}

// App holds every service built from one configuration.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Store    *filestore.Store
	Activity *activity.Service
	Window   *window.Service
	Roster   *roster.Service
	Ballots  *ballot.Service
	Archive  *archive.Service
	Enrich   *enrich.Service
	Identity *identity.Verifier
	Metrics  *metrics.Metrics

	rollover *rollover.Service
}

// New builds the service graph on top of cfg.Data.Dir.
func New(cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	schedule, err := window.ParseSchedule(cfg.Window.Weekday, cfg.Window.Time, cfg.Window.Timezone)
	if err != nil {
		return nil, fmt.Errorf("window schedule: %w", err)
	}

	store, err := filestore.New(cfg.Data.Dir, logger)
	if err != nil {
		return nil, err
	}

	activitySvc := activity.NewService(filestore.NewActivityRepository(store), logger)
	windowSvc := window.NewService(filestore.NewWeekMetaRepository(store), activitySvc, window.Options{
		Schedule:      schedule,
		InitialWeekID: cfg.Chart.InitialWeekID,
		Clock:         opts.Clock,
	}, logger)
	rosterSvc := roster.NewService(filestore.NewRosterRepository(store), windowSvc, activitySvc, logger)
	ballotSvc := ballot.NewService(filestore.NewLedgerRepository(store), rosterSvc, windowSvc, ballot.Options{
		MaxVotes: cfg.Chart.MaxVotesPerUser,
		Clock:    opts.Clock,
	}, logger)
	archiveSvc := archive.NewService(filestore.NewArchiveRepository(store), rosterSvc, ballotSvc, activitySvc, logger).
		WithClock(opts.Clock)
	rolloverSvc := rollover.NewService(rosterSvc, ballotSvc, windowSvc, archiveSvc, activitySvc, rollover.Options{
		TopN:              cfg.Chart.TopN,
		MaxWeeksInChart:   cfg.Chart.MaxWeeksInChart,
		ArchiveOnRollover: cfg.Chart.ArchiveOnRollover,
		OpenVoting:        true,
	}, logger)

	lookup := opts.Lookup
	if lookup == nil {
		lookup = catalog.NewClient(catalog.Options{
			BaseURL:       cfg.Catalog.BaseURL,
			Country:       cfg.Catalog.Country,
			Timeout:       cfg.Catalog.Timeout,
			RatePerSecond: cfg.Catalog.RatePerSecond,
			Recorder:      opts.Metrics,
			Logger:        logger,
		})
	}
	enrichSvc := enrich.NewService(lookup, rosterSvc, windowSvc, activitySvc, logger)

	verifier := identity.NewVerifier(identity.Options{
		BotToken:        cfg.Identity.BotToken,
		MaxAge:          cfg.Identity.MaxAge,
		AllowUnverified: cfg.Identity.AllowUnverified,
		Clock:           opts.Clock,
	})
	if !verifier.Enabled() {
		logger.Warn("identity verification disabled: no bot token configured",
			"allow_unverified", cfg.Identity.AllowUnverified)
	}
	if cfg.Auth.AdminToken == "" {
		logger.Warn("admin token not configured: admin operations will fail")
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Activity: activitySvc,
		Window:   windowSvc,
		Roster:   rosterSvc,
		Ballots:  ballotSvc,
		Archive:  archiveSvc,
		Enrich:   enrichSvc,
		Identity: verifier,
		Metrics:  opts.Metrics,
		rollover: rolloverSvc,
	}, nil
}

// Rollover runs a rollover and records it in metrics.
func (a *App) Rollover(ctx context.Context, req rollover.Request) (*rollover.Result, error) {
	res, err := a.rollover.Rollover(ctx, req)
	if err != nil {
		return nil, err
	}
	a.Metrics.Rollover()
	a.Metrics.SetActiveWeek(res.WeekID)
	return res, nil
}

// Warm loads the week meta so a broken data directory shows up at startup
// and the active week gauge is populated.
func (a *App) Warm(ctx context.Context) (int, error) {
	weekID, err := a.Window.ActiveWeek(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading week meta: %w", err)
	}
	a.Metrics.SetActiveWeek(weekID)
	return weekID, nil
}

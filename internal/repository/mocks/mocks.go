package mocks

import (
	"context"

	"github.com/rpggio/hitparade/internal/domain/activity"
	"github.com/rpggio/hitparade/internal/domain/archive"
	"github.com/rpggio/hitparade/internal/domain/ballot"
	"github.com/rpggio/hitparade/internal/domain/chart"
	"github.com/rpggio/hitparade/internal/domain/roster"
	"github.com/rpggio/hitparade/internal/domain/window"
	"github.com/stretchr/testify/mock"
)

// RosterRepository is a mock for roster.Repository.
type RosterRepository struct {
	mock.Mock
}

func (m *RosterRepository) Load(ctx context.Context) (*roster.Document, error) {
	args := m.Called(ctx)
	if doc, ok := args.Get(0).(*roster.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RosterRepository) Save(ctx context.Context, weekID int, entries []chart.Entry) error {
	args := m.Called(ctx, weekID, entries)
	return args.Error(0)
}

// LedgerRepository is a mock for ballot.Repository.
type LedgerRepository struct {
	mock.Mock
}

func (m *LedgerRepository) Load(ctx context.Context) (*ballot.Ledger, error) {
	args := m.Called(ctx)
	if ledger, ok := args.Get(0).(*ballot.Ledger); ok {
		return ledger, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LedgerRepository) Save(ctx context.Context, ledger *ballot.Ledger) error {
	args := m.Called(ctx, ledger)
	return args.Error(0)
}

// WeekMetaRepository is a mock for window.Repository.
type WeekMetaRepository struct {
	mock.Mock
}

func (m *WeekMetaRepository) Load(ctx context.Context) (*window.Meta, error) {
	args := m.Called(ctx)
	if meta, ok := args.Get(0).(*window.Meta); ok {
		return meta, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WeekMetaRepository) Save(ctx context.Context, meta *window.Meta) error {
	args := m.Called(ctx, meta)
	return args.Error(0)
}

// ArchiveRepository is a mock for archive.Repository.
type ArchiveRepository struct {
	mock.Mock
}

func (m *ArchiveRepository) Create(ctx context.Context, snap *archive.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *ArchiveRepository) Get(ctx context.Context, weekID int) (*archive.Snapshot, error) {
	args := m.Called(ctx, weekID)
	if snap, ok := args.Get(0).(*archive.Snapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ArchiveRepository) List(ctx context.Context) ([]int, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]int); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Append(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityLogger is a mock for activity.Logger.
type ActivityLogger struct {
	mock.Mock
}

func (m *ActivityLogger) LogActivity(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service handles operator audit log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// LogActivity appends an entry, assigning an id and timestamp when missing.
func (s *Service) LogActivity(ctx context.Context, entry *ActivityEntry) error {
	if entry == nil || entry.ActivityType == "" {
		return ErrInvalidInput
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	s.logger.Debug("activity logged", "type", entry.ActivityType, "week_id", entry.WeekID)
	return nil
}

// GetRecentActivity lists entries newest first.
func (s *Service) GetRecentActivity(ctx context.Context, opts ListActivityOptions) ([]ActivityEntry, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	return s.repo.List(ctx, opts)
}

// Record logs an entry and only warns on failure. Audit logging never fails
// the operation being audited.
func Record(ctx context.Context, log Logger, logger *slog.Logger, entry ActivityEntry) {
	if log == nil {
		return
	}
	if err := log.LogActivity(ctx, &entry); err != nil && logger != nil {
		logger.Warn("activity log append failed", "type", entry.ActivityType, "error", err)
	}
}

// Logger is the subset of Service other domain services depend on.
type Logger interface {
	LogActivity(ctx context.Context, entry *ActivityEntry) error
}

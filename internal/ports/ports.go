package ports

import (
	"context"
	"time"

	"mbnotifier/internal/domain"
)

// AssignmentSource pulls child profiles and their task listings from the
// parent portal.
type AssignmentSource interface {
	Login(ctx context.Context) error
	Children(ctx context.Context) ([]domain.ChildProfile, error)
	Assignments(ctx context.Context, child domain.ChildProfile, today time.Time, windowDays int) ([]domain.Assignment, error)
}

// ReportNotifier publishes one formatted report to a chat channel.
type ReportNotifier interface {
	Name() string
	PublishReport(ctx context.Context, children []domain.ChildProfile, today time.Time) error
}

// IgnoreStore persists the task-id → title ignore map between runs.
type IgnoreStore interface {
	Load() (map[string]string, error)
	Add(taskID, title string) (bool, error)
	Remove(taskID string) (bool, error)
}

// SnapshotStore caches the last scraped children for the bot listener.
type SnapshotStore interface {
	Save(children []domain.ChildProfile) error
	Load() ([]domain.ChildProfile, error)
}

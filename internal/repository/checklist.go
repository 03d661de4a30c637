package repository

import (
	"context"
	"time"

	"github.com/dealerops/compliance-tracker/internal/domain"
)

type ListChecklistsInput struct {
	BranchID   string
	CursorTime *time.Time // cursor on (created_at DESC, id DESC)
	CursorID   string
	Limit      int
}

type ChecklistRepository interface {
	Create(ctx context.Context, c *domain.Checklist) (*domain.Checklist, error)
	GetByID(ctx context.Context, id string) (*domain.Checklist, error)
	List(ctx context.Context, input ListChecklistsInput) ([]*domain.Checklist, error)
	SetPaused(ctx context.Context, id string, paused bool) error
	Complete(ctx context.Context, id string, completedAt time.Time, nextDueAt *time.Time) error
	Delete(ctx context.Context, id string) error

	// Atomic: claims due checklists, inserts their reminders, and advances
	// next_due_at in one tx. fire returns the reminder to insert
	// (nil skips insertion) and the advanced due time (nil clears it).
	ClaimAndRemind(ctx context.Context, limit int, fire func(*domain.Checklist) (*domain.Reminder, *time.Time)) ([]*domain.Reminder, error)
}

package repository

import (
	"context"
	"time"

	"github.com/dealerops/compliance-tracker/internal/domain"
)

type ListRemindersInput struct {
	Status      domain.ReminderStatus // empty = all statuses
	ChecklistID string                // empty = all checklists
	CursorTime  *time.Time            // nil = first page
	CursorID    string                // used only when CursorTime is non-nil
	Limit       int
}

// The dispatcher and escalator claim rows with FOR UPDATE SKIP LOCKED, which
// gives the per-record mutual exclusion needed for at-most-once delivery per
// trigger cycle when several dispatcher replicas run concurrently. The legal
// from-states of each claim are encoded in its WHERE clause, mirroring the
// transition guards in the dispatch package.
type ReminderRepository interface {
	Create(ctx context.Context, r *domain.Reminder) (*domain.Reminder, error)
	GetByID(ctx context.Context, id string) (*domain.Reminder, error)
	List(ctx context.Context, input ListRemindersInput) ([]*domain.Reminder, error)
	Cancel(ctx context.Context, id string) error

	// ClaimDue atomically moves due scheduled/pending reminders to
	// triggered and returns them for delivery.
	ClaimDue(ctx context.Context, limit int) ([]*domain.Reminder, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, lastError string) error

	// ClaimEscalatable moves triggered/failed reminders past their
	// escalation deadline to escalated and returns them.
	ClaimEscalatable(ctx context.Context, limit int) ([]*domain.Reminder, error)

	// ReleaseStuck returns reminders left in triggered by a crashed
	// dispatcher to pending once their trigger is older than staleCutoff.
	ReleaseStuck(ctx context.Context, staleCutoff time.Time, limit int) (int, error)
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerops/compliance-tracker/internal/dispatch"
	"github.com/dealerops/compliance-tracker/internal/domain"
	"github.com/dealerops/compliance-tracker/internal/repository"
)

type ReminderUsecase struct {
	repo repository.ReminderRepository
}

func NewReminderUsecase(repo repository.ReminderRepository) *ReminderUsecase {
	return &ReminderUsecase{repo: repo}
}

type CreateReminderInput struct {
	ChecklistID    *string
	IdempotencyKey string
	Recipient      string
	Subject        string
	Body           string
	RemindAt       time.Time
	DueAt          *time.Time
	EscalateAt     *time.Time
	Channels       []domain.Channel
	AutoEscalate   bool
	EscalateToUser *string
	EscalateToRole *string
}

// CreateReminder validates the guard invariants eagerly: a reminder that
// would misbehave at dispatch time is rejected here instead.
func (u *ReminderUsecase) CreateReminder(ctx context.Context, input CreateReminderInput) (*domain.Reminder, error) {
	channels := domain.DedupeChannels(input.Channels)
	if len(channels) == 0 {
		channels = []domain.Channel{domain.ChannelEmail}
	}

	rem := &domain.Reminder{
		ChecklistID:    input.ChecklistID,
		IdempotencyKey: input.IdempotencyKey,
		Recipient:      input.Recipient,
		Subject:        input.Subject,
		Body:           input.Body,
		RemindAt:       input.RemindAt,
		DueAt:          input.DueAt,
		EscalateAt:     input.EscalateAt,
		Status:         domain.StatusScheduled,
		Channels:       channels,
		AutoEscalate:   input.AutoEscalate,
		EscalateToUser: input.EscalateToUser,
		EscalateToRole: input.EscalateToRole,
	}

	if err := dispatch.ValidateGuards(rem); err != nil {
		return nil, err
	}

	created, err := u.repo.Create(ctx, rem)
	if err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	return created, nil
}

func (u *ReminderUsecase) GetReminder(ctx context.Context, id string) (*domain.Reminder, error) {
	rem, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return rem, nil
}

type ListRemindersInput struct {
	Status      domain.ReminderStatus
	ChecklistID string
	Cursor      string
	Limit       int
}

type ListRemindersResult struct {
	Reminders  []*domain.Reminder
	NextCursor *string
}

func (u *ReminderUsecase) ListReminders(ctx context.Context, input ListRemindersInput) (ListRemindersResult, error) {
	if input.Status != "" && !domain.ValidStatus(input.Status) {
		return ListRemindersResult{}, domain.ErrInvalidStatus
	}

	limit := clampLimit(input.Limit)

	repoInput := repository.ListRemindersInput{
		Status:      input.Status,
		ChecklistID: input.ChecklistID,
		Limit:       limit + 1,
	}

	if input.Cursor != "" {
		cursorTime, cursorID, err := decodeCursor(input.Cursor)
		if err != nil {
			return ListRemindersResult{}, domain.ErrInvalidCursor
		}
		repoInput.CursorTime = cursorTime
		repoInput.CursorID = cursorID
	}

	reminders, err := u.repo.List(ctx, repoInput)
	if err != nil {
		return ListRemindersResult{}, fmt.Errorf("list reminders: %w", err)
	}

	var nextCursor *string
	if len(reminders) == limit+1 {
		last := reminders[limit]
		s := encodeCursor(last.RemindAt, last.ID)
		nextCursor = &s
		reminders = reminders[:limit]
	}

	return ListRemindersResult{Reminders: reminders, NextCursor: nextCursor}, nil
}

func (u *ReminderUsecase) CancelReminder(ctx context.Context, id string) error {
	if err := u.repo.Cancel(ctx, id); err != nil {
		return err
	}
	return nil
}

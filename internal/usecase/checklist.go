package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerops/compliance-tracker/internal/domain"
	"github.com/dealerops/compliance-tracker/internal/repository"
	"github.com/dealerops/compliance-tracker/internal/schedule"
)

type ChecklistUsecase struct {
	repo repository.ChecklistRepository
	now  func() time.Time
}

func NewChecklistUsecase(repo repository.ChecklistRepository) *ChecklistUsecase {
	return &ChecklistUsecase{repo: repo, now: time.Now}
}

// WithClock overrides the clock. Tests use this; production code never should.
func (u *ChecklistUsecase) WithClock(now func() time.Time) *ChecklistUsecase {
	u.now = now
	return u
}

type CreateChecklistInput struct {
	BranchID   string
	Name       string
	Category   string
	AssignedTo *string
	Recurrence domain.RecurrenceRule
}

func validFrequency(f domain.Frequency) bool {
	switch f {
	case domain.FrequencyDaily, domain.FrequencyWeekly, domain.FrequencyMonthly,
		domain.FrequencyQuarterly, domain.FrequencyYearly, domain.FrequencyCustom:
		return true
	}
	return false
}

func (u *ChecklistUsecase) CreateChecklist(ctx context.Context, input CreateChecklistInput) (*domain.Checklist, error) {
	if !validFrequency(input.Recurrence.Frequency) {
		return nil, domain.ErrInvalidFrequency
	}
	if input.Recurrence.IntervalCount < 1 {
		input.Recurrence.IntervalCount = 1
	}

	c := &domain.Checklist{
		BranchID:   input.BranchID,
		Name:       input.Name,
		Category:   input.Category,
		AssignedTo: input.AssignedTo,
		Recurrence: input.Recurrence,
	}

	if next, ok := schedule.NextDueAt(c.Recurrence, u.now()); ok {
		c.NextDueAt = &next
	}

	created, err := u.repo.Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("create checklist: %w", err)
	}
	return created, nil
}

func (u *ChecklistUsecase) GetChecklist(ctx context.Context, id string) (*domain.Checklist, error) {
	c, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get checklist: %w", err)
	}
	return c, nil
}

type ListChecklistsInput struct {
	BranchID string
	Cursor   string
	Limit    int
}

type ListChecklistsResult struct {
	Checklists []*domain.Checklist
	NextCursor *string
}

func (u *ChecklistUsecase) ListChecklists(ctx context.Context, input ListChecklistsInput) (ListChecklistsResult, error) {
	limit := clampLimit(input.Limit)

	repoInput := repository.ListChecklistsInput{
		BranchID: input.BranchID,
		Limit:    limit + 1,
	}

	if input.Cursor != "" {
		cursorTime, cursorID, err := decodeCursor(input.Cursor)
		if err != nil {
			return ListChecklistsResult{}, domain.ErrInvalidCursor
		}
		repoInput.CursorTime = cursorTime
		repoInput.CursorID = cursorID
	}

	checklists, err := u.repo.List(ctx, repoInput)
	if err != nil {
		return ListChecklistsResult{}, fmt.Errorf("list checklists: %w", err)
	}

	var nextCursor *string
	if len(checklists) == limit+1 {
		last := checklists[limit]
		s := encodeCursor(last.CreatedAt, last.ID)
		nextCursor = &s
		checklists = checklists[:limit]
	}

	return ListChecklistsResult{Checklists: checklists, NextCursor: nextCursor}, nil
}

func (u *ChecklistUsecase) PauseChecklist(ctx context.Context, id string) error {
	if err := u.repo.SetPaused(ctx, id, true); err != nil {
		return fmt.Errorf("pause checklist: %w", err)
	}
	return nil
}

func (u *ChecklistUsecase) ResumeChecklist(ctx context.Context, id string) error {
	if err := u.repo.SetPaused(ctx, id, false); err != nil {
		return fmt.Errorf("resume checklist: %w", err)
	}
	return nil
}

// CompleteChecklist records a completion and advances next_due_at relative
// to the completion instant.
func (u *ChecklistUsecase) CompleteChecklist(ctx context.Context, id string) (*domain.Checklist, error) {
	c, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get checklist: %w", err)
	}

	completedAt := u.now()
	var nextDueAt *time.Time
	if next, ok := schedule.NextDueAt(c.Recurrence, completedAt); ok {
		nextDueAt = &next
	}

	if err := u.repo.Complete(ctx, id, completedAt, nextDueAt); err != nil {
		return nil, fmt.Errorf("complete checklist: %w", err)
	}

	c.LastCompletedAt = &completedAt
	c.NextDueAt = nextDueAt
	return c, nil
}

func (u *ChecklistUsecase) DeleteChecklist(ctx context.Context, id string) error {
	if err := u.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	return nil
}

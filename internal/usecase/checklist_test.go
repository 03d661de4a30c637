package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dealerops/compliance-tracker/internal/domain"
	"github.com/dealerops/compliance-tracker/internal/repository"
	"github.com/dealerops/compliance-tracker/internal/usecase"
)

// fakeChecklistRepo records calls and echoes back what the usecase hands it.
type fakeChecklistRepo struct {
	created   *domain.Checklist
	getResult *domain.Checklist
	getErr    error

	completedAt *time.Time
	nextDueAt   *time.Time

	listInput repository.ListChecklistsInput
	listOut   []*domain.Checklist
}

func (f *fakeChecklistRepo) Create(_ context.Context, c *domain.Checklist) (*domain.Checklist, error) {
	f.created = c
	c.ID = "chk-1"
	return c, nil
}

func (f *fakeChecklistRepo) GetByID(_ context.Context, _ string) (*domain.Checklist, error) {
	return f.getResult, f.getErr
}

func (f *fakeChecklistRepo) List(_ context.Context, input repository.ListChecklistsInput) ([]*domain.Checklist, error) {
	f.listInput = input
	return f.listOut, nil
}

func (f *fakeChecklistRepo) SetPaused(_ context.Context, _ string, _ bool) error { return nil }

func (f *fakeChecklistRepo) Complete(_ context.Context, _ string, completedAt time.Time, nextDueAt *time.Time) error {
	f.completedAt = &completedAt
	f.nextDueAt = nextDueAt
	return nil
}

func (f *fakeChecklistRepo) Delete(_ context.Context, _ string) error { return nil }

func (f *fakeChecklistRepo) ClaimAndRemind(_ context.Context, _ int, _ func(*domain.Checklist) (*domain.Reminder, *time.Time)) ([]*domain.Reminder, error) {
	return nil, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateChecklist_ComputesNextDueAt(t *testing.T) {
	repo := &fakeChecklistRepo{}
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	u := usecase.NewChecklistUsecase(repo).WithClock(fixedClock(now))

	start := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	created, err := u.CreateChecklist(context.Background(), usecase.CreateChecklistInput{
		BranchID: "branch-north",
		Name:     "Lift inspection",
		Category: "safety",
		Recurrence: domain.RecurrenceRule{
			Frequency:     domain.FrequencyMonthly,
			IntervalCount: 1,
			StartDate:     &start,
			DueTime:       "09:00",
		},
	})
	if err != nil {
		t.Fatalf("CreateChecklist: %v", err)
	}

	if created.NextDueAt == nil {
		t.Fatal("expected NextDueAt to be set")
	}
	// Jan 31 steps through the Feb 29 clamp before reaching March.
	want := time.Date(2024, time.March, 29, 9, 0, 0, 0, time.UTC)
	if !created.NextDueAt.Equal(want) {
		t.Errorf("NextDueAt = %v, want %v", created.NextDueAt, want)
	}
	if repo.created == nil {
		t.Fatal("expected repo.Create to be called")
	}
}

func TestCreateChecklist_InvalidFrequencyRejected(t *testing.T) {
	repo := &fakeChecklistRepo{}
	u := usecase.NewChecklistUsecase(repo)

	_, err := u.CreateChecklist(context.Background(), usecase.CreateChecklistInput{
		BranchID:   "branch-north",
		Name:       "Broken",
		Recurrence: domain.RecurrenceRule{Frequency: "fortnightly"},
	})
	if !errors.Is(err, domain.ErrInvalidFrequency) {
		t.Fatalf("err = %v, want ErrInvalidFrequency", err)
	}
	if repo.created != nil {
		t.Fatal("repo.Create must not be called for an invalid frequency")
	}
}

func TestCreateChecklist_ZeroIntervalClampedToOne(t *testing.T) {
	repo := &fakeChecklistRepo{}
	u := usecase.NewChecklistUsecase(repo)

	created, err := u.CreateChecklist(context.Background(), usecase.CreateChecklistInput{
		BranchID: "branch-north",
		Name:     "Daily walk",
		Recurrence: domain.RecurrenceRule{
			Frequency:     domain.FrequencyDaily,
			IntervalCount: 0,
		},
	})
	if err != nil {
		t.Fatalf("CreateChecklist: %v", err)
	}
	if created.Recurrence.IntervalCount != 1 {
		t.Errorf("IntervalCount = %d, want 1", created.Recurrence.IntervalCount)
	}
}

func TestCompleteChecklist_AdvancesFromCompletionInstant(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeChecklistRepo{
		getResult: &domain.Checklist{
			ID: "chk-1",
			Recurrence: domain.RecurrenceRule{
				Frequency:     domain.FrequencyDaily,
				IntervalCount: 1,
				StartDate:     &start,
				DueTime:       "08:00",
			},
		},
	}
	completedAt := time.Date(2024, time.June, 10, 8, 30, 0, 0, time.UTC)
	u := usecase.NewChecklistUsecase(repo).WithClock(fixedClock(completedAt))

	c, err := u.CompleteChecklist(context.Background(), "chk-1")
	if err != nil {
		t.Fatalf("CompleteChecklist: %v", err)
	}

	if repo.completedAt == nil || !repo.completedAt.Equal(completedAt) {
		t.Errorf("persisted completedAt = %v, want %v", repo.completedAt, completedAt)
	}
	want := time.Date(2024, time.June, 11, 8, 0, 0, 0, time.UTC)
	if repo.nextDueAt == nil || !repo.nextDueAt.Equal(want) {
		t.Errorf("persisted nextDueAt = %v, want %v", repo.nextDueAt, want)
	}
	if c.NextDueAt == nil || !c.NextDueAt.Equal(want) {
		t.Errorf("returned NextDueAt = %v, want %v", c.NextDueAt, want)
	}
}

func TestCompleteChecklist_NotFoundPropagates(t *testing.T) {
	repo := &fakeChecklistRepo{getErr: domain.ErrChecklistNotFound}
	u := usecase.NewChecklistUsecase(repo)

	_, err := u.CompleteChecklist(context.Background(), "missing")
	if !errors.Is(err, domain.ErrChecklistNotFound) {
		t.Fatalf("err = %v, want ErrChecklistNotFound", err)
	}
}

func TestListChecklists_BadCursorRejected(t *testing.T) {
	u := usecase.NewChecklistUsecase(&fakeChecklistRepo{})

	_, err := u.ListChecklists(context.Background(), usecase.ListChecklistsInput{Cursor: "%%%not-base64%%%"})
	if !errors.Is(err, domain.ErrInvalidCursor) {
		t.Fatalf("err = %v, want ErrInvalidCursor", err)
	}
}

func TestListChecklists_PaginationCursor(t *testing.T) {
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	var out []*domain.Checklist
	for i := 0; i < 3; i++ {
		out = append(out, &domain.Checklist{
			ID:        "chk-" + string(rune('a'+i)),
			CreatedAt: base.Add(time.Duration(-i) * time.Hour),
		})
	}
	repo := &fakeChecklistRepo{listOut: out}
	u := usecase.NewChecklistUsecase(repo)

	res, err := u.ListChecklists(context.Background(), usecase.ListChecklistsInput{Limit: 2})
	if err != nil {
		t.Fatalf("ListChecklists: %v", err)
	}

	// Repo is asked for one row beyond the page to detect a next page.
	if repo.listInput.Limit != 3 {
		t.Errorf("repo limit = %d, want 3", repo.listInput.Limit)
	}
	if len(res.Checklists) != 2 {
		t.Fatalf("page size = %d, want 2", len(res.Checklists))
	}
	if res.NextCursor == nil {
		t.Fatal("expected a next cursor")
	}
}

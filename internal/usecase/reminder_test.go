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

type fakeReminderRepo struct {
	created    *domain.Reminder
	createErr  error
	cancelErr  error
	listCalled bool
}

func (f *fakeReminderRepo) Create(_ context.Context, r *domain.Reminder) (*domain.Reminder, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = r
	r.ID = "rem-1"
	return r, nil
}

func (f *fakeReminderRepo) GetByID(_ context.Context, _ string) (*domain.Reminder, error) {
	return nil, domain.ErrReminderNotFound
}

func (f *fakeReminderRepo) List(_ context.Context, _ repository.ListRemindersInput) ([]*domain.Reminder, error) {
	f.listCalled = true
	return nil, nil
}

func (f *fakeReminderRepo) Cancel(_ context.Context, _ string) error { return f.cancelErr }

func (f *fakeReminderRepo) ClaimDue(_ context.Context, _ int) ([]*domain.Reminder, error) {
	return nil, nil
}

func (f *fakeReminderRepo) MarkSent(_ context.Context, _ string) error { return nil }

func (f *fakeReminderRepo) MarkFailed(_ context.Context, _, _ string) error { return nil }

func (f *fakeReminderRepo) ClaimEscalatable(_ context.Context, _ int) ([]*domain.Reminder, error) {
	return nil, nil
}

func (f *fakeReminderRepo) ReleaseStuck(_ context.Context, _ time.Time, _ int) (int, error) {
	return 0, nil
}

func validInput() usecase.CreateReminderInput {
	return usecase.CreateReminderInput{
		IdempotencyKey: "key-1",
		Recipient:      "user-tech-1",
		Subject:        "Lift inspection due",
		RemindAt:       time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC),
		Channels:       []domain.Channel{domain.ChannelEmail},
	}
}

func TestCreateReminder_DefaultsAndStatus(t *testing.T) {
	repo := &fakeReminderRepo{}
	u := usecase.NewReminderUsecase(repo)

	input := validInput()
	input.Channels = nil
	rem, err := u.CreateReminder(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	if rem.Status != domain.StatusScheduled {
		t.Errorf("status = %s, want scheduled", rem.Status)
	}
	if len(rem.Channels) != 1 || rem.Channels[0] != domain.ChannelEmail {
		t.Errorf("channels = %v, want default [email]", rem.Channels)
	}
}

func TestCreateReminder_DeduplicatesChannels(t *testing.T) {
	repo := &fakeReminderRepo{}
	u := usecase.NewReminderUsecase(repo)

	input := validInput()
	input.Channels = []domain.Channel{
		domain.ChannelSMS, domain.ChannelEmail, domain.ChannelSMS, domain.ChannelEmail,
	}
	rem, err := u.CreateReminder(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	want := []domain.Channel{domain.ChannelSMS, domain.ChannelEmail}
	if len(rem.Channels) != len(want) {
		t.Fatalf("channels = %v, want %v", rem.Channels, want)
	}
	for i := range want {
		if rem.Channels[i] != want[i] {
			t.Fatalf("channels = %v, want %v", rem.Channels, want)
		}
	}
}

func TestCreateReminder_GuardViolationsRejected(t *testing.T) {
	remindAt := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	before := remindAt.Add(-time.Hour)

	tests := []struct {
		name    string
		mutate  func(*usecase.CreateReminderInput)
		wantErr error
	}{
		{
			name:    "due before remind",
			mutate:  func(in *usecase.CreateReminderInput) { in.DueAt = &before },
			wantErr: domain.ErrDueBeforeRemind,
		},
		{
			name:    "escalate not after remind",
			mutate:  func(in *usecase.CreateReminderInput) { in.EscalateAt = &remindAt },
			wantErr: domain.ErrEscalateNotAfter,
		},
		{
			name: "unknown channel",
			mutate: func(in *usecase.CreateReminderInput) {
				in.Channels = []domain.Channel{"carrier_pigeon"}
			},
			wantErr: domain.ErrInvalidChannel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeReminderRepo{}
			u := usecase.NewReminderUsecase(repo)

			input := validInput()
			input.RemindAt = remindAt
			tt.mutate(&input)

			_, err := u.CreateReminder(context.Background(), input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if repo.created != nil {
				t.Fatal("repo.Create must not be called when guards fail")
			}
		})
	}
}

func TestCreateReminder_DuplicateKeyPropagates(t *testing.T) {
	repo := &fakeReminderRepo{createErr: domain.ErrDuplicateReminder}
	u := usecase.NewReminderUsecase(repo)

	_, err := u.CreateReminder(context.Background(), validInput())
	if !errors.Is(err, domain.ErrDuplicateReminder) {
		t.Fatalf("err = %v, want ErrDuplicateReminder", err)
	}
}

func TestListReminders_UnknownStatusRejected(t *testing.T) {
	repo := &fakeReminderRepo{}
	u := usecase.NewReminderUsecase(repo)

	_, err := u.ListReminders(context.Background(), usecase.ListRemindersInput{Status: "snoozed"})
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
	if repo.listCalled {
		t.Fatal("repo.List must not be called for an unknown status")
	}
}

func TestListReminders_KnownStatusAccepted(t *testing.T) {
	repo := &fakeReminderRepo{}
	u := usecase.NewReminderUsecase(repo)

	if _, err := u.ListReminders(context.Background(), usecase.ListRemindersInput{Status: domain.StatusFailed}); err != nil {
		t.Fatalf("ListReminders: %v", err)
	}
	if !repo.listCalled {
		t.Fatal("expected repo.List to be called")
	}
}

func TestCancelReminder_InvalidTransitionPropagates(t *testing.T) {
	repo := &fakeReminderRepo{
		cancelErr: domain.NewInvalidTransition(domain.StatusSent, domain.StatusCancelled),
	}
	u := usecase.NewReminderUsecase(repo)

	err := u.CancelReminder(context.Background(), "rem-1")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealerops/compliance-tracker/internal/domain"
	"github.com/dealerops/compliance-tracker/internal/metrics"
	"github.com/dealerops/compliance-tracker/internal/repository"
	"github.com/dealerops/compliance-tracker/internal/requestid"
	"github.com/dealerops/compliance-tracker/internal/schedule"
	"github.com/robfig/cron/v3"
)

const (
	sweepBatchSize = 100

	// Escalation policy applied to sweeper-created reminders. Manually
	// created reminders set their own.
	defaultEscalateAfter = 24 * time.Hour
	defaultEscalateRole  = "compliance_manager"
)

// Sweeper is the periodic job gluing the calculator to the reminder pipeline:
// it claims checklists whose next_due_at has passed, creates a reminder for
// each, and advances next_due_at, one transaction per batch.
type Sweeper struct {
	checklists repository.ChecklistRepository
	logger     *slog.Logger
	cronSpec   string
	now        func() time.Time
}

func NewSweeper(checklists repository.ChecklistRepository, logger *slog.Logger, cronSpec string) *Sweeper {
	return &Sweeper{
		checklists: checklists,
		logger:     logger.With("component", "sweeper"),
		cronSpec:   cronSpec,
		now:        time.Now,
	}
}

// Start blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.cronSpec, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid sweep cron spec %q: %w", s.cronSpec, err)
	}

	s.logger.Info("sweeper started", "cron", s.cronSpec)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("sweeper shut down")
	return nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	ctx = requestid.WithRequestID(ctx, requestid.New())
	start := s.now()

	created, err := s.checklists.ClaimAndRemind(ctx, sweepBatchSize, s.fire)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep claim and remind", "error", err)
		return
	}

	metrics.SweepCycleDuration.Observe(s.now().Sub(start).Seconds())
	if len(created) > 0 {
		metrics.SweepFiredTotal.Add(float64(len(created)))
		s.logger.InfoContext(ctx, "sweep fired reminders", "count", len(created))
	}
}

// fire builds the reminder for a due checklist and computes the advanced due
// time. A checklist with no current due date creates nothing but still has
// its schedule recomputed.
func (s *Sweeper) fire(c *domain.Checklist) (*domain.Reminder, *time.Time) {
	now := s.now()

	var next *time.Time
	if n, ok := schedule.NextDueAt(c.Recurrence, now); ok {
		next = &n
	}

	if c.NextDueAt == nil {
		return nil, next
	}

	recipient := "branch:" + c.BranchID
	if c.AssignedTo != nil && *c.AssignedTo != "" {
		recipient = *c.AssignedTo
	}

	escalateAt := c.NextDueAt.Add(defaultEscalateAfter)
	role := defaultEscalateRole

	rem := &domain.Reminder{
		ChecklistID:    &c.ID,
		IdempotencyKey: fmt.Sprintf("chk:%s:%d", c.ID, c.NextDueAt.Unix()),
		Recipient:      recipient,
		Subject:        fmt.Sprintf("Compliance checklist due: %s", c.Name),
		Body:           fmt.Sprintf("Checklist %q (%s) is due. Complete it and record the result.", c.Name, c.Category),
		RemindAt:       *c.NextDueAt,
		DueAt:          c.NextDueAt,
		EscalateAt:     &escalateAt,
		Status:         domain.StatusScheduled,
		Channels:       []domain.Channel{domain.ChannelEmail, domain.ChannelInApp},
		AutoEscalate:   true,
		EscalateToRole: &role,
	}
	return rem, next
}

package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/dealerops/compliance-tracker/internal/metrics"
	"github.com/dealerops/compliance-tracker/internal/repository"
	"github.com/dealerops/compliance-tracker/internal/requestid"
)

// Escalator promotes unresolved reminders past their escalation deadline and
// rescues reminders stranded in triggered by a crashed dispatcher.
type Escalator struct {
	repo         repository.ReminderRepository
	logger       *slog.Logger
	interval     time.Duration
	staleTimeout time.Duration
	now          func() time.Time
}

func NewEscalator(repo repository.ReminderRepository, logger *slog.Logger, interval, staleTimeout time.Duration) *Escalator {
	return &Escalator{
		repo:         repo,
		logger:       logger.With("component", "escalator"),
		interval:     interval,
		staleTimeout: staleTimeout,
		now:          time.Now,
	}
}

func (e *Escalator) Start(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("escalator started", "interval", e.interval, "stale_timeout", e.staleTimeout)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("escalator shut down")
			return
		case <-ticker.C:
			e.cycle(ctx)
		}
	}
}

func (e *Escalator) cycle(ctx context.Context) {
	ctx = requestid.WithRequestID(ctx, requestid.New())
	staleCutoff := e.now().Add(-e.staleTimeout)

	released, err := e.repo.ReleaseStuck(ctx, staleCutoff, 100)
	if err != nil {
		e.logger.ErrorContext(ctx, "release stuck reminders", "error", err)
	} else if released > 0 {
		metrics.StuckReleasedTotal.Add(float64(released))
		e.logger.WarnContext(ctx, "released stuck reminders back to pending", "count", released)
	}

	escalated, err := e.repo.ClaimEscalatable(ctx, 100)
	if err != nil {
		e.logger.ErrorContext(ctx, "claim escalatable reminders", "error", err)
		return
	}

	for _, rem := range escalated {
		metrics.EscalationsTotal.Inc()
		if target, ok := rem.EscalationTarget(); ok {
			e.logger.WarnContext(ctx, "reminder escalated",
				"reminder_id", rem.ID, "target", target, "escalate_at", rem.EscalateAt)
		} else {
			e.logger.WarnContext(ctx, "reminder escalated with no target configured", "reminder_id", rem.ID)
		}
	}
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dealerops/compliance-tracker/internal/domain"
	"github.com/dealerops/compliance-tracker/internal/metrics"
	"github.com/dealerops/compliance-tracker/internal/notify"
	"github.com/dealerops/compliance-tracker/internal/repository"
	"github.com/dealerops/compliance-tracker/internal/requestid"
)

// Dispatcher polls for due reminders, claims them (the claim itself performs
// the scheduled/pending → triggered transition atomically) and delivers each
// over its channels. Delivery succeeding on at least one channel counts as
// sent; failing on all of them counts as failed.
type Dispatcher struct {
	id           string
	repo         repository.ReminderRepository
	senders      notify.Registry
	logger       *slog.Logger
	pollInterval time.Duration
	concurrency  int
	sem          chan struct{}
	now          func() time.Time
}

func NewDispatcher(
	repo repository.ReminderRepository,
	senders notify.Registry,
	logger *slog.Logger,
	pollInterval time.Duration,
	concurrency int,
) *Dispatcher {
	hostname, _ := os.Hostname()
	id := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	return &Dispatcher{
		id:           id,
		repo:         repo,
		senders:      senders,
		logger:       logger.With("component", "dispatcher", "dispatcher_id", id),
		pollInterval: pollInterval,
		concurrency:  concurrency,
		sem:          make(chan struct{}, concurrency),
		now:          time.Now,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	d.logger.Info("dispatcher started", "concurrency", d.concurrency)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher shut down")
			return
		case <-ticker.C:
			d.processBatch(ctx)
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) {
	available := cap(d.sem) - len(d.sem)
	if available == 0 {
		return
	}

	reminders, err := d.repo.ClaimDue(ctx, available)
	if err != nil {
		d.logger.Error("claim due reminders", "error", err)
		return
	}
	if len(reminders) == 0 {
		return
	}

	d.logger.Info("claimed reminders", "count", len(reminders),
		"slots_used", len(d.sem)+len(reminders), "slots_total", cap(d.sem))

	for _, rem := range reminders {
		d.sem <- struct{}{}
		go func(r *domain.Reminder) {
			metrics.RemindersInFlight.Inc()
			defer metrics.RemindersInFlight.Dec()
			defer func() { <-d.sem }()
			d.deliver(ctx, r)
		}(rem)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, rem *domain.Reminder) {
	// correlation id for every log line of this delivery attempt
	ctx = requestid.WithRequestID(ctx, requestid.New())

	metrics.ReminderPickupLatency.Observe(d.now().Sub(rem.RemindAt).Seconds())
	start := d.now()

	msg := notify.Message{
		Recipient: rem.Recipient,
		Subject:   rem.Subject,
		Body:      rem.Body,
	}

	delivered := false
	var failures []string

	for _, channel := range rem.Channels {
		sender, ok := d.senders.For(channel)
		if !ok {
			failures = append(failures, fmt.Sprintf("%s: no sender configured", channel))
			metrics.ChannelSendsTotal.WithLabelValues(string(channel), "failure").Inc()
			continue
		}
		if err := sender.Send(ctx, msg); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", channel, err))
			metrics.ChannelSendsTotal.WithLabelValues(string(channel), "failure").Inc()
			continue
		}
		delivered = true
		metrics.ChannelSendsTotal.WithLabelValues(string(channel), "success").Inc()
	}

	duration := d.now().Sub(start)

	if delivered {
		if err := MarkSent(rem, d.now()); err != nil {
			d.logger.ErrorContext(ctx, "sent transition rejected", "reminder_id", rem.ID, "error", err)
			return
		}
		if err := d.repo.MarkSent(ctx, rem.ID); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				d.logger.WarnContext(ctx, "reminder changed state during delivery",
					"reminder_id", rem.ID, "error", err)
			} else {
				d.logger.ErrorContext(ctx, "persist sent reminder", "reminder_id", rem.ID, "error", err)
			}
			return
		}
		metrics.DeliveryDuration.WithLabelValues("success").Observe(duration.Seconds())
		metrics.RemindersDispatchedTotal.WithLabelValues("sent").Inc()
		d.logger.InfoContext(ctx, "reminder sent", "reminder_id", rem.ID,
			"channels", len(rem.Channels), "duration", duration)
		return
	}

	reason := strings.Join(failures, "; ")
	if err := MarkFailed(rem, d.now(), reason); err != nil {
		d.logger.ErrorContext(ctx, "failed transition rejected", "reminder_id", rem.ID, "error", err)
		return
	}
	if err := d.repo.MarkFailed(ctx, rem.ID, reason); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			d.logger.WarnContext(ctx, "reminder changed state during delivery",
				"reminder_id", rem.ID, "error", err)
		} else {
			d.logger.ErrorContext(ctx, "persist failed reminder", "reminder_id", rem.ID, "error", err)
		}
		return
	}
	metrics.DeliveryDuration.WithLabelValues("failure").Observe(duration.Seconds())
	metrics.RemindersDispatchedTotal.WithLabelValues("failed").Inc()
	d.logger.WarnContext(ctx, "reminder failed on all channels", "reminder_id", rem.ID, "error", reason)
}

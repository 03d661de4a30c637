package dispatch

import (
	"time"

	"github.com/dealerops/compliance-tracker/internal/domain"
)

// The transition functions below mutate the reminder in memory only; callers
// persist the result. Being "due" never changes status by itself; only an
// explicit transition does. Illegal transitions return an error wrapping
// domain.ErrInvalidTransition and leave the reminder untouched.

// IsDue reports whether the reminder is eligible for dispatch consideration.
// A reminder stays due until it reaches sent or cancelled.
func IsDue(r *domain.Reminder, reference time.Time) bool {
	if r.Status == domain.StatusSent || r.Status == domain.StatusCancelled {
		return false
	}
	return !r.RemindAt.After(reference)
}

// Trigger moves a scheduled or pending reminder into delivery.
func Trigger(r *domain.Reminder, now time.Time) error {
	if r.Status != domain.StatusScheduled && r.Status != domain.StatusPending {
		return domain.NewInvalidTransition(r.Status, domain.StatusTriggered)
	}
	r.Status = domain.StatusTriggered
	r.LastTriggeredAt = &now
	return nil
}

// MarkSent records a delivery that succeeded on at least one channel.
func MarkSent(r *domain.Reminder, now time.Time) error {
	if r.Status != domain.StatusTriggered {
		return domain.NewInvalidTransition(r.Status, domain.StatusSent)
	}
	r.Status = domain.StatusSent
	r.SentCount++
	r.LastSentAt = &now
	return nil
}

// MarkFailed records a delivery that failed on every requested channel.
func MarkFailed(r *domain.Reminder, now time.Time, reason string) error {
	if r.Status != domain.StatusTriggered {
		return domain.NewInvalidTransition(r.Status, domain.StatusFailed)
	}
	r.Status = domain.StatusFailed
	if reason != "" {
		r.LastError = &reason
	}
	return nil
}

// Retry returns a failed reminder to the pending pool. The retry policy
// itself (when, how often) belongs to the caller.
func Retry(r *domain.Reminder) error {
	if r.Status != domain.StatusFailed {
		return domain.NewInvalidTransition(r.Status, domain.StatusPending)
	}
	r.Status = domain.StatusPending
	return nil
}

// CanEscalate reports whether all escalation conditions hold: auto-escalation
// enabled, a deadline configured, the deadline reached, and a status that can
// still escalate.
func CanEscalate(r *domain.Reminder, reference time.Time) bool {
	if !r.AutoEscalate || r.EscalateAt == nil {
		return false
	}
	if r.Status != domain.StatusTriggered && r.Status != domain.StatusFailed {
		return false
	}
	return !reference.Before(*r.EscalateAt)
}

// Escalate promotes an unresolved reminder past its escalation deadline.
func Escalate(r *domain.Reminder, now time.Time) error {
	if !CanEscalate(r, now) {
		return domain.NewInvalidTransition(r.Status, domain.StatusEscalated)
	}
	r.Status = domain.StatusEscalated
	r.LastEscalatedAt = &now
	return nil
}

// Cancel is legal from any state except the terminal ones.
func Cancel(r *domain.Reminder) error {
	if r.Status == domain.StatusSent || r.Status == domain.StatusCancelled {
		return domain.NewInvalidTransition(r.Status, domain.StatusCancelled)
	}
	r.Status = domain.StatusCancelled
	return nil
}

// ValidateGuards checks the invariants that must hold on every reminder
// before it is accepted for persistence. Violations are rejected here, at
// create/update time, not discovered later during dispatch.
func ValidateGuards(r *domain.Reminder) error {
	if r.DueAt != nil && r.DueAt.Before(r.RemindAt) {
		return domain.ErrDueBeforeRemind
	}
	if r.EscalateAt != nil && !r.EscalateAt.After(r.RemindAt) {
		return domain.ErrEscalateNotAfter
	}
	for _, c := range r.Channels {
		if !domain.ValidChannel(c) {
			return domain.ErrInvalidChannel
		}
	}
	return nil
}

package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrReminderNotFound   = errors.New("reminder not found")
	ErrDuplicateReminder  = errors.New("reminder with this idempotency key already exists")
	ErrInvalidChannel     = errors.New("invalid delivery channel")
	ErrInvalidStatus      = errors.New("invalid reminder status")
	ErrDueBeforeRemind    = errors.New("due_at must not be earlier than remind_at")
	ErrEscalateNotAfter   = errors.New("escalate_at must be later than remind_at")
	ErrInvalidTransition  = errors.New("invalid reminder transition")
)

type ReminderStatus string

const (
	StatusScheduled ReminderStatus = "scheduled"
	StatusPending   ReminderStatus = "pending"
	StatusTriggered ReminderStatus = "triggered"
	StatusSent      ReminderStatus = "sent"
	StatusFailed    ReminderStatus = "failed"
	StatusEscalated ReminderStatus = "escalated"
	StatusCancelled ReminderStatus = "cancelled"
)

func ValidStatus(s ReminderStatus) bool {
	switch s {
	case StatusScheduled, StatusPending, StatusTriggered,
		StatusSent, StatusFailed, StatusEscalated, StatusCancelled:
		return true
	}
	return false
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
)

func ValidChannel(c Channel) bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

// DedupeChannels drops repeated channels while preserving first-seen order.
func DedupeChannels(channels []Channel) []Channel {
	seen := make(map[Channel]struct{}, len(channels))
	out := make([]Channel, 0, len(channels))
	for _, c := range channels {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Reminder is a single notification obligation. It is never deleted:
// cancellation is a terminal status, not a removal.
type Reminder struct {
	ID             string
	ChecklistID    *string // optional back-reference for context
	IdempotencyKey string
	Recipient      string
	Subject        string
	Body           string

	RemindAt   time.Time
	DueAt      *time.Time
	EscalateAt *time.Time

	Status   ReminderStatus
	Channels []Channel

	AutoEscalate   bool
	EscalateToUser *string
	EscalateToRole *string

	SentCount       int
	LastTriggeredAt *time.Time
	LastSentAt      *time.Time
	LastEscalatedAt *time.Time
	LastError       *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EscalationTarget resolves who receives the escalation. The user target
// takes precedence when both are configured.
func (r *Reminder) EscalationTarget() (string, bool) {
	if r.EscalateToUser != nil && *r.EscalateToUser != "" {
		return *r.EscalateToUser, true
	}
	if r.EscalateToRole != nil && *r.EscalateToRole != "" {
		return *r.EscalateToRole, true
	}
	return "", false
}

// NewInvalidTransition wraps ErrInvalidTransition naming both states, so
// callers can match with errors.Is while logs keep the full detail.
func NewInvalidTransition(from, to ReminderStatus) error {
	return fmt.Errorf("%w: from %q to %q", ErrInvalidTransition, from, to)
}

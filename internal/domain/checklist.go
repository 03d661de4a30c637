package domain

import (
	"errors"
	"time"
)

var (
	ErrChecklistNotFound      = errors.New("checklist not found")
	ErrChecklistNameConflict  = errors.New("checklist with this name already exists")
	ErrChecklistAlreadyPaused = errors.New("checklist is already paused")
	ErrChecklistNotPaused     = errors.New("checklist is not paused")
	ErrInvalidFrequency       = errors.New("invalid recurrence frequency")
	ErrInvalidCursor          = errors.New("invalid pagination cursor")
)

type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyCustom    Frequency = "custom"
)

type IntervalUnit string

const (
	UnitHours  IntervalUnit = "hours"
	UnitDays   IntervalUnit = "days"
	UnitWeeks  IntervalUnit = "weeks"
	UnitMonths IntervalUnit = "months"
	UnitYears  IntervalUnit = "years"
)

// RecurrenceRule describes how often a checklist comes due and from when.
// StartDate carries the calendar date only; DueTime ("HH:MM", optional)
// supplies the time of day, defaulting to midnight.
type RecurrenceRule struct {
	Frequency     Frequency
	IntervalCount int
	CustomUnit    IntervalUnit // only meaningful when Frequency is custom
	CustomValue   int          // falls back to IntervalCount when zero
	StartDate     *time.Time
	DueTime       string
}

// Checklist is a recurring compliance task for a dealership branch.
type Checklist struct {
	ID         string
	BranchID   string
	Name       string
	Category   string
	AssignedTo *string // user ID

	Recurrence RecurrenceRule

	NextDueAt       *time.Time
	LastCompletedAt *time.Time
	Paused          bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

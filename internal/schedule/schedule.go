// Package schedule computes when a recurring checklist next comes due.
// Everything here is pure: the reference instant is always an explicit
// argument, never a global clock read.
package schedule

import (
	"time"

	"github.com/dealerops/compliance-tracker/internal/domain"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// NextDueAt returns the first occurrence of the rule strictly after
// reference. The boolean is false when the rule has no start date or the
// frequency is unrecognized and the start has already passed.
//
// An occurrence landing exactly on reference is not considered due; the
// result is always strictly greater than reference.
func NextDueAt(rule domain.RecurrenceRule, reference time.Time) (time.Time, bool) {
	if rule.StartDate == nil {
		return time.Time{}, false
	}

	start := combine(*rule.StartDate, rule.DueTime, reference.Location())
	if start.After(reference) {
		return start, true
	}

	interval := rule.IntervalCount
	if interval < 1 {
		interval = 1
	}

	switch rule.Frequency {
	case domain.FrequencyDaily:
		return nextFixedStep(start, time.Duration(interval)*day, reference), true
	case domain.FrequencyWeekly:
		return nextFixedStep(start, time.Duration(interval)*week, reference), true
	case domain.FrequencyMonthly:
		return nextMonthStep(start, interval, reference), true
	case domain.FrequencyQuarterly:
		return nextMonthStep(start, interval*3, reference), true
	case domain.FrequencyYearly:
		return nextMonthStep(start, interval*12, reference), true
	case domain.FrequencyCustom:
		return nextCustomStep(rule, interval, start, reference), true
	default:
		// Unknown frequency: never step forward. The start has already
		// passed at this point, so there is nothing left to schedule.
		return time.Time{}, false
	}
}

func nextCustomStep(rule domain.RecurrenceRule, interval int, start, reference time.Time) time.Time {
	value := rule.CustomValue
	if value < 1 {
		value = interval
	}
	if value < 1 {
		value = 1
	}

	switch rule.CustomUnit {
	case domain.UnitHours:
		return nextFixedStep(start, time.Duration(value)*time.Hour, reference)
	case domain.UnitWeeks:
		return nextFixedStep(start, time.Duration(value)*week, reference)
	case domain.UnitMonths:
		return nextMonthStep(start, value, reference)
	case domain.UnitYears:
		return nextMonthStep(start, value*12, reference)
	default:
		// days, or an unrecognized unit: day-stepping is the safe default
		return nextFixedStep(start, time.Duration(value)*day, reference)
	}
}

// nextFixedStep advances by whole fixed-length steps. The step count is
// computed directly from the elapsed interval, so a schedule neglected for
// years costs the same as one checked yesterday.
func nextFixedStep(start time.Time, step time.Duration, reference time.Time) time.Time {
	k := reference.Sub(start) / step
	candidate := start.Add(k * step)
	for !candidate.After(reference) {
		candidate = candidate.Add(step)
	}
	return candidate
}

// nextMonthStep walks calendar months from the previous occurrence, clamping
// day-of-month overflow at every step. The clamp carries forward: a monthly
// rule anchored on Jan 31 visits Feb 29 (leap year) and then Mar 29, not
// Mar 31. Iteration count is bounded by the months elapsed divided by the
// step, which stays small even for long-neglected schedules.
func nextMonthStep(start time.Time, months int, reference time.Time) time.Time {
	candidate := start
	for !candidate.After(reference) {
		candidate = addMonthsNoOverflow(candidate, months)
	}
	return candidate
}

// addMonthsNoOverflow adds months without rolling into the following month:
// if the target month is shorter than the source day-of-month, the day is
// clamped to the target month's last day.
func addMonthsNoOverflow(t time.Time, months int) time.Time {
	y, m, d := t.Date()

	total := y*12 + int(m) - 1 + months
	targetYear := total / 12
	targetMonth := time.Month(total%12 + 1)

	if last := daysInMonth(targetYear, targetMonth); d > last {
		d = last
	}

	return time.Date(targetYear, targetMonth, d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the next month normalizes to the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// combine merges a calendar date with an optional "HH:MM" time of day in
// the given location. A missing or malformed time defaults to midnight.
func combine(date time.Time, dueTime string, loc *time.Location) time.Time {
	hour, minute := 0, 0
	if dueTime != "" {
		if t, err := time.Parse("15:04", dueTime); err == nil {
			hour, minute = t.Hour(), t.Minute()
		}
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
}

package schedule_test

import (
	"testing"
	"time"

	"github.com/dealerops/compliance-tracker/internal/domain"
	"github.com/dealerops/compliance-tracker/internal/schedule"
)

func date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func TestNextDueAt(t *testing.T) {
	tests := []struct {
		name      string
		rule      domain.RecurrenceRule
		reference time.Time
		want      time.Time
		wantNone  bool
	}{
		{
			name:      "no start date returns absent",
			rule:      domain.RecurrenceRule{Frequency: domain.FrequencyDaily, IntervalCount: 1},
			reference: at(2024, time.March, 15, 0, 0),
			wantNone:  true,
		},
		{
			name: "future start returned unchanged",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyWeekly,
				IntervalCount: 1,
				StartDate:     date(2024, time.June, 1),
				DueTime:       "08:30",
			},
			reference: at(2024, time.March, 15, 0, 0),
			want:      at(2024, time.June, 1, 8, 30),
		},
		{
			name: "daily advances past reference",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyDaily,
				IntervalCount: 1,
				StartDate:     date(2024, time.January, 1),
				DueTime:       "09:00",
			},
			reference: at(2024, time.January, 3, 10, 0),
			want:      at(2024, time.January, 4, 9, 0),
		},
		{
			name: "occurrence equal to reference is not due",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyDaily,
				IntervalCount: 1,
				StartDate:     date(2024, time.January, 1),
				DueTime:       "09:00",
			},
			reference: at(2024, time.January, 4, 9, 0),
			want:      at(2024, time.January, 5, 9, 0),
		},
		{
			name: "daily with interval three",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyDaily,
				IntervalCount: 3,
				StartDate:     date(2024, time.January, 1),
			},
			reference: at(2024, time.January, 7, 12, 0),
			want:      at(2024, time.January, 10, 0, 0),
		},
		{
			name: "biweekly lands exactly on reference and advances",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyWeekly,
				IntervalCount: 2,
				StartDate:     date(2024, time.January, 1),
				DueTime:       "08:00",
			},
			reference: at(2024, time.January, 15, 8, 0),
			want:      at(2024, time.January, 29, 8, 0),
		},
		{
			name: "monthly from jan 31 carries the leap-february clamp forward",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyMonthly,
				IntervalCount: 1,
				StartDate:     date(2024, time.January, 31),
				DueTime:       "09:00",
			},
			reference: at(2024, time.March, 15, 0, 0),
			want:      at(2024, time.March, 29, 9, 0),
		},
		{
			name: "monthly jan 31 clamps to feb 29 in a leap year",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyMonthly,
				IntervalCount: 1,
				StartDate:     date(2024, time.January, 31),
			},
			reference: at(2024, time.February, 10, 0, 0),
			want:      at(2024, time.February, 29, 0, 0),
		},
		{
			name: "monthly jan 31 clamps to feb 28 in a common year",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyMonthly,
				IntervalCount: 1,
				StartDate:     date(2025, time.January, 31),
			},
			reference: at(2025, time.February, 10, 0, 0),
			want:      at(2025, time.February, 28, 0, 0),
		},
		{
			name: "quarterly clamps 31st to april 30",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyQuarterly,
				IntervalCount: 1,
				StartDate:     date(2024, time.January, 31),
			},
			reference: at(2024, time.February, 1, 0, 0),
			want:      at(2024, time.April, 30, 0, 0),
		},
		{
			name: "yearly from leap day clamps to feb 28",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyYearly,
				IntervalCount: 1,
				StartDate:     date(2024, time.February, 29),
			},
			reference: at(2024, time.March, 1, 0, 0),
			want:      at(2025, time.February, 28, 0, 0),
		},
		{
			name: "custom six hour step",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyCustom,
				IntervalCount: 1,
				CustomUnit:    domain.UnitHours,
				CustomValue:   6,
				StartDate:     date(2024, time.January, 1),
			},
			reference: at(2024, time.January, 1, 14, 30),
			want:      at(2024, time.January, 1, 18, 0),
		},
		{
			name: "custom value falls back to interval count",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyCustom,
				IntervalCount: 5,
				CustomUnit:    domain.UnitDays,
				StartDate:     date(2024, time.January, 1),
			},
			reference: at(2024, time.January, 11, 0, 0),
			want:      at(2024, time.January, 16, 0, 0),
		},
		{
			name: "custom with nothing resolvable steps one day",
			rule: domain.RecurrenceRule{
				Frequency: domain.FrequencyCustom,
				StartDate: date(2024, time.January, 1),
			},
			reference: at(2024, time.January, 2, 12, 0),
			want:      at(2024, time.January, 3, 0, 0),
		},
		{
			name: "custom unrecognized unit falls back to days",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyCustom,
				IntervalCount: 1,
				CustomUnit:    "fortnights",
				CustomValue:   2,
				StartDate:     date(2024, time.January, 1),
			},
			reference: at(2024, time.January, 1, 1, 0),
			want:      at(2024, time.January, 3, 0, 0),
		},
		{
			name: "zero interval count is clamped to one",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyDaily,
				IntervalCount: 0,
				StartDate:     date(2024, time.January, 1),
			},
			reference: at(2024, time.January, 1, 5, 0),
			want:      at(2024, time.January, 2, 0, 0),
		},
		{
			name: "unknown frequency with past start returns absent",
			rule: domain.RecurrenceRule{
				Frequency:     "fortnightly",
				IntervalCount: 1,
				StartDate:     date(2024, time.January, 1),
			},
			reference: at(2024, time.March, 1, 0, 0),
			wantNone:  true,
		},
		{
			name: "unknown frequency with future start returns start",
			rule: domain.RecurrenceRule{
				Frequency: "fortnightly",
				StartDate: date(2024, time.June, 1),
			},
			reference: at(2024, time.March, 1, 0, 0),
			want:      at(2024, time.June, 1, 0, 0),
		},
		{
			name: "daily schedule neglected for decades",
			rule: domain.RecurrenceRule{
				Frequency:     domain.FrequencyDaily,
				IntervalCount: 1,
				StartDate:     date(2000, time.June, 15),
				DueTime:       "07:30",
			},
			reference: at(2024, time.August, 30, 12, 0),
			want:      at(2024, time.August, 31, 7, 30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := schedule.NextDueAt(tt.rule, tt.reference)
			if tt.wantNone {
				if ok {
					t.Fatalf("want absent, got %v", got)
				}
				return
			}
			if !ok {
				t.Fatal("want a due time, got absent")
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextDueAt = %v, want %v", got, tt.want)
			}
			if !got.After(tt.reference) {
				t.Errorf("result %v is not strictly after reference %v", got, tt.reference)
			}
		})
	}
}

func TestNextDueAt_MalformedDueTimeDefaultsToMidnight(t *testing.T) {
	rule := domain.RecurrenceRule{
		Frequency:     domain.FrequencyDaily,
		IntervalCount: 1,
		StartDate:     date(2024, time.May, 1),
		DueTime:       "half past nine",
	}

	got, ok := schedule.NextDueAt(rule, at(2024, time.May, 1, 6, 0))
	if !ok {
		t.Fatal("want a due time, got absent")
	}
	if want := at(2024, time.May, 2, 0, 0); !got.Equal(want) {
		t.Errorf("NextDueAt = %v, want %v", got, want)
	}
}
